package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/chatflow/internal/domain"
)

func newProcessCmd() *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "process [trigger.json]",
		Short: "Run the pipeline once for a trigger payload (file or stdin) and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var ev domain.TriggerEvent
			if err := json.NewDecoder(in).Decode(&ev); err != nil {
				return fmt.Errorf("decoding trigger: %w", err)
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if seedFile != "" {
				f, err := loadFixtures(seedFile)
				if err != nil {
					return err
				}
				if _, err := f.apply(cmd.Context(), a.store, time.Now()); err != nil {
					return fmt.Errorf("seeding: %w", err)
				}
			}

			report := a.orchestrator.HandleNewMessage(cmd.Context(), ev)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed", "", "fixtures to load before processing (useful with memory storage)")
	return cmd
}
