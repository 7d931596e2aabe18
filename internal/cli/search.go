package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run the retriever and print what it found",
		Long:  "Expand the query, search the knowledge index and fall back to web and papers the way a clinical turn does.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 0, "Passages from the index (overrides retrieval.top_k)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")
	if limit > 0 {
		cfg.Retrieval.TopK = limit
	}

	lex, err := openLexicon()
	if err != nil {
		exitErr("lexicon", err)
	}
	idx, err := openIndex(cmd.Context())
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	r, err := newRetriever(idx, lex)
	if err != nil {
		exitErr("retriever", err)
	}
	res := r.Retrieve(cmd.Context(), query)

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}
