package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/skosovsky/chatform"
	"github.com/skosovsky/chatform/profile"
)

const translateLongDesc string = `Translate a chat payload between provider dialects.

The payload is read from stdin as JSON. The source dialect is inferred
when --from is omitted. A profile file supplies defaults for every
option; explicit flags override it.

Examples:
  chatform translate --to anthropic < openai.json
  chatform translate --from gemini --to openai --mode passthrough < in.json
  chatform translate --profile profiles/export.yaml < in.json`

const translateShortDesc string = "Translate a payload between dialects"

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: translateShortDesc,
		Long:  translateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTranslate(cmd)
		},
	}
	cmd.Flags().String("from", "", "source provider (inferred when empty)")
	cmd.Flags().String("to", "", "target provider (canonical when empty)")
	cmd.Flags().String("direction", "", "payload direction: input or output")
	cmd.Flags().String("mode", "", "metadata mode: preserve, passthrough, or strip")
	cmd.Flags().String("system", "", "separated system instructions")
	cmd.Flags().String("profile", "", "path to a YAML translation profile")
	return cmd
}

func runTranslate(cmd *cobra.Command) error {
	opts, trOpts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}
	input, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	tr, err := chatform.New(trOpts...)
	if err != nil {
		return err
	}
	out, err := tr.Translate(input, opts)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), out)
}

// resolveOptions merges the optional profile with explicit flags; flags win.
func resolveOptions(cmd *cobra.Command) (chatform.Options, []chatform.Option, error) {
	var opts chatform.Options
	var trOpts []chatform.Option
	if path, _ := cmd.Flags().GetString("profile"); path != "" {
		p, err := profile.ParseFile(path)
		if err != nil {
			return chatform.Options{}, nil, err
		}
		opts = p.Options()
		trOpts = p.TranslatorOptions()
	}
	if v, _ := cmd.Flags().GetString("from"); v != "" {
		opts.From = v
	}
	if v, _ := cmd.Flags().GetString("to"); v != "" {
		opts.To = v
	}
	if v, _ := cmd.Flags().GetString("direction"); v != "" {
		opts.Direction = chatform.Direction(v)
	}
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		opts.Mode = chatform.MetadataMode(v)
	}
	if v, _ := cmd.Flags().GetString("system"); v != "" {
		opts.System = v
	}
	return opts, trOpts, nil
}

func writeOutput(w io.Writer, out *chatform.Output) error {
	payload := map[string]any{"messages": out.Messages}
	if out.System != nil {
		payload["system"] = out.System
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
