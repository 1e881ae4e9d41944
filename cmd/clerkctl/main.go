package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"churchclerk/internal/cli"
	"churchclerk/internal/config"
	clog "churchclerk/internal/log"
)

const programName = "clerkctl"

type appKey struct{}

type session struct {
	cfg    *config.Config
	logger *clog.Logger
}

// withApp wires the services for a single command run. migrate and
// whatsapp link do not use it since they must work before the store opens.
func withApp(opts cli.Options, run func(cmd *cobra.Command, args []string, app *cli.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s := sessionFrom(cmd)
		app, err := cli.NewApp(cmd.Context(), s.cfg, s.logger, opts)
		if err != nil {
			return err
		}
		defer app.Close()
		return run(cmd, args, app)
	}
}

func sessionFrom(cmd *cobra.Command) *session {
	return cmd.Context().Value(appKey{}).(*session)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Administer the clerk desk from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := cli.SetupLogger(cfg, programName)
		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &session{cfg: cfg, logger: logger}))
		return nil
	}

	rootCmd.AddCommand(userCommand())
	rootCmd.AddCommand(remindCommand())
	rootCmd.AddCommand(reportCommand())
	rootCmd.AddCommand(exportCommand())
	rootCmd.AddCommand(activityCommand())
	rootCmd.AddCommand(whatsappCommand())
	rootCmd.AddCommand(migrateCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
