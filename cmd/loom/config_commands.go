package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := ctx.resolvedConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults are in effect")
			}
			fmt.Fprintf(out, "  data_dir:            %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "  log_dir:             %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "  workers:             %d\n", cfg.Workflow.Workers)
			fmt.Fprintf(out, "  queue_poll_interval: %ds\n", cfg.Workflow.QueuePollInterval)
			fmt.Fprintf(out, "  lease_stale_after:   %ds\n", cfg.Workflow.LeaseStaleAfter)
			fmt.Fprintf(out, "  claim_batch_size:    %d\n", cfg.Workflow.ClaimBatchSize)
			if cfg.Extraction.Endpoint != "" {
				fmt.Fprintf(out, "  extraction_endpoint: %s\n", cfg.Extraction.Endpoint)
			} else {
				fmt.Fprintln(out, "  extraction_endpoint: (heuristic extractor)")
			}
			fmt.Fprintf(out, "  min_confidence:      %.2f\n", cfg.Extraction.MinConfidence)
			fmt.Fprintf(out, "  log_format:          %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "  log_level:           %s\n", cfg.Logging.Level)
			return nil
		},
	}
}
