package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-mentor/internal/config"
	"github.com/sevigo/code-mentor/internal/knowledge"
)

var knowledgeJSON bool

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Prints the active best-practice knowledge corpus",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		corpus := knowledge.DefaultCorpus()
		source := "built-in"
		if cfg.KnowledgeCorpusPath != "" {
			loaded, err := knowledge.LoadCorpus(cfg.KnowledgeCorpusPath)
			if err == nil {
				corpus = loaded
				source = cfg.KnowledgeCorpusPath
			} else {
				fmt.Fprintf(os.Stderr, "warning: %v, falling back to built-in corpus\n", err)
			}
		}

		if knowledgeJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(corpus)
		}

		fmt.Printf("Knowledge corpus (%s), %d item(s):\n\n", source, len(corpus))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tCONTENT\tRESOURCE")
		for _, item := range corpus {
			fmt.Fprintf(w, "%s\t%s\t%s\n", item.Category, truncate(item.Content, 80), item.Resource)
		}
		return w.Flush()
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	knowledgeCmd.Flags().BoolVar(&knowledgeJSON, "json", false, "Output the corpus as JSON")
	rootCmd.AddCommand(knowledgeCmd)
}
