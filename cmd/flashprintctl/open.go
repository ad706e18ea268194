package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/CANDRY15/flashprint/cmd/flashprintctl/client"
	"github.com/CANDRY15/flashprint/database"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/services/interstitial"
	"github.com/spf13/cobra"
)

// pollInterval is the countdown refresh rate; tests shorten it
var pollInterval = time.Second

func newOpenCmd(a *app) *cobra.Command {
	var (
		download bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "open <slugOrId>",
		Short: "Open a document the way a reader does, countdown included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)

			action := interstitial.ActionView
			if download {
				action = interstitial.ActionDownload
			}

			result, err := a.waitAndDismiss(ctx, c, args[0], action)
			if err != nil {
				return err
			}

			if action == interstitial.ActionView {
				var view services.DocumentView
				if err := json.Unmarshal(result, &view); err != nil {
					return fmt.Errorf("decode document: %w", err)
				}
				a.printView(&view)
				return nil
			}

			var dl struct {
				DownloadURL string `json:"download_url"`
			}
			if err := json.Unmarshal(result, &dl); err != nil {
				return fmt.Errorf("decode download: %w", err)
			}
			return a.saveDownload(ctx, c, dl.DownloadURL, output)
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, "download the file instead of viewing")
	cmd.Flags().StringVarP(&output, "output", "o", "", "download destination, defaults to the server filename")
	return cmd
}

// waitAndDismiss issues a ticket, shows the countdown, then dismisses it
func (a *app) waitAndDismiss(ctx context.Context, c *client.Client, slugOrID string, action interstitial.Action) (json.RawMessage, error) {
	state, err := c.CreateIntent(ctx, slugOrID, action)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if state.Dismissible {
			result, err := c.Dismiss(ctx, state.Ticket)
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				state.Dismissible = false
				continue
			}
			return result, err
		}

		fmt.Fprintf(a.err, "\r%s", state.Message)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		state, err = c.IntentState(ctx, state.Ticket)
		if err != nil {
			return nil, err
		}
		if state.Dismissible {
			fmt.Fprintln(a.err)
		}
	}
}

func (a *app) printView(v *services.DocumentView) {
	doc := v.Document
	a.printf("%s\n", doc.Title)
	a.printf("professor: %s\n", doc.Professor)
	a.printf("year: %s\n", doc.Year)
	if v.Faculty != nil {
		a.printf("faculty: %s\n", v.Faculty.Name)
	}
	a.printf("type: %s\n", v.Kind)
	if v.HasFile {
		a.printf("file: %s\n", v.ProxyURL)
	}
	if v.Preview.Message != "" {
		a.printf("%s\n", v.Preview.Message)
	}
	a.printf("order: %s\n", v.OrderLink)
}

func (a *app) saveDownload(ctx context.Context, c *client.Client, path, output string) error {
	tmp, err := os.CreateTemp(".", ".flashprint-download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	name, err := c.Download(ctx, path, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if output == "" {
		output = name
	}
	if output == "" {
		output = "document.bin"
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}
	a.printf("saved %s\n", output)
	return nil
}

func newProbeCmd(a *app) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the API, and optionally Postgres, are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(a.context(cmd), 10*time.Second)
			defer cancel()

			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.Ping(ctx); err != nil {
				return fmt.Errorf("api: %w", err)
			}
			a.printf("api: ok\n")

			if dsn == "" {
				dsn = a.conf.GetString("database_url")
			}
			if dsn == "" {
				return nil
			}
			latency, err := database.CheckPostgresDB(ctx, dsn)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			a.printf("database: ok (%s)\n", latency.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres DSN (or FLASHPRINT_DATABASE_URL)")
	return cmd
}
