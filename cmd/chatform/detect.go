package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/skosovsky/chatform"
)

const detectLongDesc string = `Identify the provider dialect of a chat payload.

The payload is read from stdin as JSON and the inferred provider id is
printed to stdout.`

const detectShortDesc string = "Identify the dialect of a payload"

func newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: detectShortDesc,
		Long:  detectLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetect(cmd)
		},
	}
	cmd.Flags().String("direction", "", "payload direction: input or output")
	return cmd
}

func runDetect(cmd *cobra.Command) error {
	input, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	dir, _ := cmd.Flags().GetString("direction")
	tr, err := chatform.New()
	if err != nil {
		return err
	}
	provider, err := tr.Infer(input, nil, chatform.Direction(dir))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), provider)
	return nil
}
