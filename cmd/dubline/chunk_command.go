package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dubline/internal/textchunk"
)

func newChunkCommand(ctx *commandContext) *cobra.Command {
	var maxChars int
	var policyFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "chunk [file]",
		Short: "Show how text would be split for synthesis",
		Long:  "Splits text from a file (or stdin when no file or '-' is given) into the chunks sent to the TTS provider.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-chars") {
				maxChars = cfg.Text.MaxChars
			}
			if !cmd.Flags().Changed("policy") {
				policyFlag = cfg.Text.OversizePolicy
			}
			policy, err := textchunk.ParsePolicy(policyFlag)
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read text: %w", err)
			}

			chunks, err := textchunk.Split(string(data), maxChars, policy)
			if err != nil {
				return err
			}
			if jsonOutput {
				type chunkJSON struct {
					Index int    `json:"index"`
					Chars int    `json:"chars"`
					Text  string `json:"text"`
				}
				out := make([]chunkJSON, 0, len(chunks))
				for _, c := range chunks {
					out = append(out, chunkJSON{Index: c.Index, Chars: c.Len(), Text: c.Text})
				}
				return writeJSON(cmd, out)
			}

			out := cmd.OutOrStdout()
			if len(chunks) == 0 {
				fmt.Fprintln(out, "No chunks")
				return nil
			}
			rows := make([][]string, 0, len(chunks))
			for _, c := range chunks {
				rows = append(rows, []string{
					strconv.Itoa(c.Index),
					strconv.Itoa(c.Len()),
					strings.TrimSpace(c.Text),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{{title: "#", right: true}, {title: "Chars", right: true}, {title: "Text", maxWidth: 72}},
				rows,
			))
			fmt.Fprintf(out, "%d chunks, budget %d, policy %s\n", len(chunks), maxChars, policy)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Chunk budget in characters (default: text.max_chars)")
	cmd.Flags().StringVar(&policyFlag, "policy", "", "Oversize sentence policy: split, keep or reject (default: text.oversize_policy)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print chunks as JSON")
	return cmd
}
