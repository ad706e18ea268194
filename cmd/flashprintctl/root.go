package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CANDRY15/flashprint/cmd/flashprintctl/client"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by every command of one invocation
type app struct {
	conf *viper.Viper
	log  *logger.Logger
	out  io.Writer
	err  io.Writer

	// newClient is swapped in tests
	newClient func(baseURL string, opts ...client.Option) *client.Client
}

func newApp(out, errOut io.Writer) *app {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("api_url", "http://localhost:8080")
	conf.SetDefault("site_origin", "http://localhost:5173")
	conf.SetDefault("timeout", 60*time.Second)
	conf.SetDefault("log_level", "warn")
	conf.SetDefault("session_file", filepath.Join(homeDir(), ".flashprint", "session.json"))

	conf.SetEnvPrefix("FLASHPRINT")
	conf.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	conf.AutomaticEnv()

	return &app{
		conf:      conf,
		log:       logger.NewNop(),
		out:       out,
		err:       errOut,
		newClient: client.New,
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func newRootCmd(a *app) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "flashprintctl",
		Short:         "Manage the FlashPrint library from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(configFile); err != nil {
				return err
			}
			log, err := logger.New("development", a.conf.GetString("log_level"))
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.log = log
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.err)

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default $HOME/.flashprint.yaml)")
	flags.String("api-url", "", "FlashPrint API base URL")
	flags.Duration("timeout", 0, "request timeout")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	for _, name := range []string{"api-url", "timeout", "log-level"} {
		_ = a.conf.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	root.AddCommand(
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newFacultiesCmd(a),
		newSyllabusCmd(a),
		newAnalyticsCmd(a),
		newDashboardCmd(a),
		newContentCmd(a),
		newOpenCmd(a),
		newProbeCmd(a),
	)
	return root
}

// loadConfig reads the yaml config. A missing default file is not an error.
func (a *app) loadConfig(path string) error {
	if path != "" {
		a.conf.SetConfigFile(path)
		if err := a.conf.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	a.conf.SetConfigName(".flashprint")
	a.conf.SetConfigType("yaml")
	a.conf.AddConfigPath(homeDir())
	if err := a.conf.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// client builds an API client carrying the saved session, if any
func (a *app) client() (*client.Client, error) {
	session, err := loadSession(a.conf.GetString("session_file"))
	if err != nil {
		return nil, err
	}

	opts := []client.Option{client.WithHTTPClient(httpClient(a.conf.GetDuration("timeout")))}
	if session != nil {
		opts = append(opts, client.WithSession(session))
	}
	return a.newClient(a.conf.GetString("api_url"), opts...), nil
}

// requireSession is client for commands that need to be signed in
func (a *app) requireSession() (*client.Client, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	if c.Session() == nil {
		return nil, fmt.Errorf("not signed in, run `flashprintctl login` first")
	}
	return c, nil
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
