package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/CANDRY15/flashprint/cmd/flashprintctl/client"
	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/spf13/cobra"
)

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

// preflight runs the same schema checks as the server
func preflight(v interface{}) error {
	if err := validation.NewValidator().ValidateStruct(v); err != nil {
		return fmt.Errorf("invalid input: %s", validation.FirstError(err))
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newFacultiesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faculties",
		Short: "Manage faculties",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List faculties",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			faculties, err := c.Faculties(a.context(cmd))
			if err != nil {
				return err
			}

			w := a.table()
			fmt.Fprintln(w, "ID\tSLUG\tNAME")
			for _, f := range faculties {
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Slug, f.Name)
			}
			return w.Flush()
		},
	}

	var in validation.FacultyInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a faculty",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := preflight(in); err != nil {
				return err
			}
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			f, err := c.CreateFaculty(a.context(cmd), in)
			if err != nil {
				return err
			}
			a.printf("created %s (%s)\n", f.Slug, f.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "faculty name")
	create.Flags().StringVar(&in.Slug, "slug", "", "slug, derived from the name when empty")
	create.Flags().StringVar(&in.Icon, "icon", "", "icon name")
	create.Flags().StringVar(&in.Color, "color", "", "color as #rrggbb")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a faculty with no syllabus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			if err := c.DeleteFaculty(a.context(cmd), args[0]); err != nil {
				return err
			}
			a.printf("deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}

func newSyllabusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syllabus",
		Short: "Manage syllabus documents",
	}

	var filter services.SyllabusFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List syllabus, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			rows, err := c.Syllabus(a.context(cmd), filter)
			if err != nil {
				return err
			}

			w := a.table()
			fmt.Fprintln(w, "ID\tSLUG\tYEAR\tSTATUS\tTITLE")
			for _, s := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, deref(s.Slug), s.Year, s.Status, s.Title)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVarP(&filter.Query, "query", "q", "", "filter on title and professor")
	list.Flags().StringVar(&filter.Year, "year", "", "promotion")
	list.Flags().StringVar(&filter.FacultyID, "faculty", "", "faculty id")

	var (
		in        validation.SyllabusInput
		file      string
		generator bool
	)
	upload := &cobra.Command{
		Use:   "upload",
		Short: "Create a syllabus, optionally with its PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := preflight(in); err != nil {
				return err
			}
			flow := model.FlowManagement
			if generator {
				flow = model.FlowGenerator
				if file == "" {
					return fmt.Errorf("--file is required with --generator")
				}
			}

			var attachment *client.Attachment
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				attachment = &client.Attachment{
					Filename:    filepath.Base(file),
					ContentType: http.DetectContentType(data),
					Data:        data,
				}
			}

			c, err := a.requireSession()
			if err != nil {
				return err
			}
			row, err := c.UploadSyllabus(a.context(cmd), flow, in, attachment)
			if err != nil {
				return err
			}
			a.printf("created %s\n", row.SlugOrID())
			a.printf("qr_code: %s\n", row.QRCode)
			return nil
		},
	}
	uf := upload.Flags()
	uf.StringVar(&in.Title, "title", "", "title")
	uf.StringVar(&in.Professor, "professor", "", "professor")
	uf.StringVar(&in.Year, "year", "", "promotion (Bac1..Master4)")
	uf.StringVar(&in.FacultyID, "faculty", "", "faculty id")
	uf.BoolVar(&in.Popular, "popular", false, "flag as popular")
	uf.StringVar(&in.Description, "description", "", "description (generator flow)")
	uf.StringVar(&in.CompanyName, "company", "", "company name (generator flow)")
	uf.StringVar(&in.Website, "website", "", "website (generator flow)")
	uf.StringVar(&file, "file", "", "path of the PDF")
	uf.BoolVar(&generator, "generator", false, "use the QR generator flow")

	var confirm bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a syllabus and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to delete without --yes")
			}
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			if err := c.DeleteSyllabus(a.context(cmd), args[0], true); err != nil {
				return err
			}
			a.printf("deleted %s\n", args[0])
			return nil
		},
	}
	del.Flags().BoolVarP(&confirm, "yes", "y", false, "confirm the deletion")

	repair := &cobra.Command{
		Use:   "repair",
		Short: "Finish syllabus rows left pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			report, err := c.RepairSyllabus(a.context(cmd))
			if err != nil {
				return err
			}
			a.printf("scanned %d, repaired %d, failed %d\n", report.Scanned, report.Repaired, report.Failed)
			for _, e := range report.Errors {
				fmt.Fprintln(a.err, e)
			}
			return nil
		},
	}

	var (
		variant string
		size    int
		output  string
	)
	qr := &cobra.Command{
		Use:   "qr <id>",
		Short: "Download the QR code of a syllabus as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			png, err := c.QRCodePNG(a.context(cmd), args[0], variant, size)
			if err != nil {
				return err
			}
			if output == "" {
				output = "qr-" + args[0] + ".png"
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.printf("wrote %s\n", output)
			return nil
		},
	}
	qr.Flags().StringVar(&variant, "variant", "stored", "stored or whatsapp")
	qr.Flags().IntVar(&size, "size", 0, "size in pixels")
	qr.Flags().StringVarP(&output, "output", "o", "", "output file")

	cmd.AddCommand(list, upload, del, repair, qr)
	return cmd
}

func newAnalyticsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show per-document views, downloads and scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			report, err := c.Analytics(a.context(cmd))
			if err != nil {
				return err
			}

			w := a.table()
			fmt.Fprintln(w, "TITLE\tVIEWS\tDOWNLOADS\tQR SCANS\tTOTAL")
			for _, d := range report.Documents {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", d.Title, d.Views, d.Downloads, d.QRScans, d.Total)
			}
			fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t%d\n", report.TotalViews, report.TotalDownloads, report.TotalQRScans, report.TotalEvents)
			return w.Flush()
		},
	}
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the admin dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			d, err := c.Dashboard(a.context(cmd))
			if err != nil {
				return err
			}
			a.printf("documents: %d\nfaculties: %d\npopular: %d\npending: %d\n",
				d.Documents, d.Faculties, d.PopularDocuments, d.PendingDocuments)
			return nil
		},
	}
}

func newContentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage editable site copy",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List site content",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			rows, err := c.Content(a.context(cmd))
			if err != nil {
				return err
			}

			w := a.table()
			fmt.Fprintln(w, "SECTION\tKEY\tVALUE")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Section, r.Key, r.Value)
			}
			return w.Flush()
		},
	}

	var contentType string
	set := &cobra.Command{
		Use:   "set <section> <key> <value>",
		Short: "Create or replace a content fragment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := services.ContentInput{Section: args[0], Key: args[1], Value: args[2], ContentType: contentType}
			if err := preflight(in); err != nil {
				return err
			}
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			row, err := c.SetContent(a.context(cmd), in)
			if err != nil {
				return err
			}
			a.printf("%s.%s updated\n", row.Section, row.Key)
			return nil
		},
	}
	set.Flags().StringVar(&contentType, "type", "text", "text, html or markdown")

	cmd.AddCommand(list, set)
	return cmd
}
