package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"churchclerk/internal/cli"
	"churchclerk/internal/core"
	"churchclerk/internal/notify"
	"churchclerk/internal/storage"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	var password string
	add := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Create a staff account",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cli.Options{}, func(cmd *cobra.Command, args []string, app *cli.App) error {
			if password == "" {
				password = os.Getenv("CLERK_PASSWORD")
			}
			u, err := app.Auth.CreateStaff(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created staff user %s.\n", u.Username)
			return nil
		}),
	}
	add.Flags().StringVarP(&password, "password", "p", "", "password (defaults to $CLERK_PASSWORD)")

	cmd.AddCommand(add)
	return cmd
}

func remindCommand() *cobra.Command {
	var (
		channel string
		pending bool
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "remind [CERTIFICATE_ID...]",
		Short: "Send pick-up reminders for certificates",
		Long: "Sends reminders for the given certificate ids, or with --pending for every\n" +
			"uncollected certificate due under the configured sweep policy.",
		RunE: withApp(cli.Options{Gateways: true, Broker: true}, func(cmd *cobra.Command, args []string, app *cli.App) error {
			ch := core.Channel(channel)
			if !ch.Valid() {
				return fmt.Errorf("unknown channel %q", channel)
			}
			ids := args
			if pending {
				due, err := app.Sweeper().Pending(cmd.Context())
				if err != nil {
					return err
				}
				ids = nil
				for _, c := range due {
					ids = append(ids, c.ID)
				}
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No certificates to remind.")
				return nil
			}
			if dryRun {
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}
			out, err := app.Certificates.SendReminders(cmd.Context(), ch, ids)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Summary())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&channel, "channel", "c", string(core.ChannelSMS), "sms, email or whatsapp")
	cmd.Flags().BoolVar(&pending, "pending", false, "remind every certificate due under the sweep policy")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the selected ids without sending")
	return cmd
}

func periodFlags(cmd *cobra.Command, start, end *string) {
	cmd.Flags().StringVar(start, "start", "", "period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(end, "end", "", "period end (YYYY-MM-DD)")
}

func reportCommand() *cobra.Command {
	var start, end, outDir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the period report as a PDF",
		RunE: withApp(cli.Options{}, func(cmd *cobra.Command, args []string, app *cli.App) error {
			p := core.NewPeriod(start, end)
			if (start != "" || end != "") && !p.Bounded() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Incomplete or invalid period; reporting all time.")
			}

			tmp, err := os.CreateTemp(outDir, "report-*.pdf")
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer os.Remove(tmp.Name())

			name, err := app.Reports.WritePDF(cmd.Context(), tmp, p)
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			dest := filepath.Join(outDir, name)
			if err := os.Rename(tmp.Name(), dest); err != nil {
				return fmt.Errorf("save report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s).\n", dest, p)
			return nil
		}),
	}
	periodFlags(cmd, &start, &end)
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func exportCommand() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Append the period summary to the Google spreadsheet",
		RunE: withApp(cli.Options{}, func(cmd *cobra.Command, args []string, app *cli.App) error {
			p := core.NewPeriod(start, end)
			ref, err := app.Reports.Export(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s.\n", p, ref)
			return nil
		}),
	}
	periodFlags(cmd, &start, &end)
	return cmd
}

func activityCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the most recent audit trail entries",
		RunE: withApp(cli.Options{}, func(cmd *cobra.Command, args []string, app *cli.App) error {
			entries, err := app.Store.ListActivity(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tKIND\tRECORD\tACTOR\tDETAIL")
			for _, a := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					a.OccurredAt.In(app.Config.Location()).Format("2006-01-02 15:04"),
					a.Kind, a.RecordID, a.Actor, a.Detail)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}

func whatsappCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatsapp",
		Short: "Manage the linked WhatsApp device",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "link",
		Short: "Link this desk as a WhatsApp device by scanning a QR code",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			dir := s.cfg.WhatsAppDataDir
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("create whatsapp data dir: %w", err)
			}
			wa, err := notify.OpenWhatsApp(cmd.Context(), dir)
			if err != nil {
				return err
			}
			defer wa.Disconnect()
			return wa.Pair(cmd.Context(), cmd.OutOrStdout())
		},
	})
	return cmd
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to the SQLite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			if s.cfg.DataBackend != "sqlite" {
				return errors.New("migrations only apply to the sqlite backend")
			}
			if err := os.MkdirAll(filepath.Dir(s.cfg.SQLiteDBPath), 0755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if err := storage.RunMigrations(s.cfg.SQLiteDBPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s.\n", s.cfg.SQLiteDBPath)
			return nil
		},
	}
}
