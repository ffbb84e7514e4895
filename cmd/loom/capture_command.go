package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/pipeline"
	"loom/internal/queue"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var (
		basketID    string
		workspaceID string
		sourceRef   string
		filePath    string
	)

	cmd := &cobra.Command{
		Use:   "capture [content]",
		Short: "Queue raw content for capture into a basket",
		Long: "Queue raw content for the capture stage. Content comes from the argument,\n" +
			"--file, or stdin; the daemon stores it as an immutable dump and the pipeline\n" +
			"takes it from there.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readCaptureContent(cmd, args, filePath)
			if err != nil {
				return err
			}
			entry, err := pipeline.NewCaptureEntry(basketID, workspaceID, content, sourceRef)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(store *queue.Store) error {
				created, err := store.Enqueue(cmd.Context(), entry)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued capture entry %d for basket %s\n", created.ID, created.BasketID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&basketID, "basket", "b", "", "Target basket identifier (required)")
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace identifier")
	cmd.Flags().StringVar(&sourceRef, "source-ref", "", "Reference to where the content came from")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read content from a file instead of the argument")
	_ = cmd.MarkFlagRequired("basket")

	return cmd
}

func readCaptureContent(cmd *cobra.Command, args []string, filePath string) (string, error) {
	switch {
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			return "", errors.New("no content: pass an argument, --file, or pipe to stdin")
		}
		return content, nil
	}
}
