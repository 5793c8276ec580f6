package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/PabloGalante/chatflow/internal/config"
	"github.com/PabloGalante/chatflow/internal/observability"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	cfg *config.Config
	log *zerolog.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatflow",
		Short: "AI routing and projections for chat messages",
		Long:  "chatflow routes every new chat message to AI actions (priority detection, calendar extraction) and keeps per-chat and per-user aggregates.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.Log.Level = logLevel
			}

			observability.Init(nil, loaded.Log.Level, loaded.Log.Pretty)
			log = observability.Sub("cli")

			if issues := config.Validate(loaded); len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			cfg = loaded
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "chatflow.yaml", "config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, silent)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProcessCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newRouteCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
