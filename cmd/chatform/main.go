// Command chatform translates chat message payloads between provider
// dialects on stdin/stdout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/skosovsky/chatform/adapter/anthropic"
	_ "github.com/skosovsky/chatform/adapter/fallback"
	_ "github.com/skosovsky/chatform/adapter/gemini"
	_ "github.com/skosovsky/chatform/adapter/ollama"
	_ "github.com/skosovsky/chatform/adapter/openai"
	_ "github.com/skosovsky/chatform/adapter/promptl"
)

const rootLongDesc string = `Chatform converts chat-style message payloads between provider dialects
through a canonical form, preserving vendor metadata.

Read a payload on stdin and write the converted payload to stdout:
  chatform translate --from openai --to anthropic < input.json
  chatform translate --profile export.yaml < input.json
  chatform detect < input.json`

const rootShortDesc string = "Chatform - chat payload translation"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatform",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newTranslateCmd())
	cmd.AddCommand(newDetectCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatform:", err)
		os.Exit(1)
	}
}
