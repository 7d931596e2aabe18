package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rcliao/discharge-care/internal/chunker"
	"github.com/rcliao/discharge-care/internal/knowledge"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [document]",
		Short: "Build the knowledge index from a reference document",
		Long: "Chunk a plain-text reference document, embed every passage and write a fresh index file.\n" +
			"An existing index at the same path is replaced.",
		Args: cobra.ExactArgs(1),
		Run:  runIngest,
	}

	cmd.Flags().IntP("size", "s", chunker.DefaultFixedSize, "Characters per passage (fixed strategy)")
	cmd.Flags().String("strategy", string(chunker.StrategyFixed), "Chunking strategy: fixed or paragraph")
	cmd.Flags().StringP("out", "o", "", "Index path (overrides index.path)")
	cmd.Flags().Bool("publish", false, "Upload the index to object storage after building")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	size, _ := cmd.Flags().GetInt("size")
	strategy, _ := cmd.Flags().GetString("strategy")
	out, _ := cmd.Flags().GetString("out")
	publish, _ := cmd.Flags().GetBool("publish")
	if out == "" {
		out = cfg.Index.Path
	}

	opts := chunker.DefaultOptions()
	opts.FixedSize = size
	switch chunker.Strategy(strategy) {
	case chunker.StrategyFixed, chunker.StrategyParagraph:
		opts.Strategy = chunker.Strategy(strategy)
	default:
		exitErr("strategy", fmt.Errorf("unknown strategy %q", strategy))
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		exitErr("read document", err)
	}
	embedder, err := newEmbedder(0)
	if err != nil {
		exitErr("embedder", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		exitErr("create index dir", err)
	}

	manifest, err := knowledge.Build(cmd.Context(), knowledge.BuildParams{
		Path:     out,
		Source:   filepath.Base(args[0]),
		Text:     string(text),
		Chunking: opts,
		Embedder: embedder,
		Model:    embedModelName(),
		Logger:   logger,
	})
	if err != nil {
		exitErr("build index", err)
	}

	if publish {
		publishIndex(cmd, out)
	}

	b, _ := json.MarshalIndent(manifest, "", "  ")
	fmt.Println(string(b))
}

func embedModelName() string {
	if cfg.Embed.Model != "" {
		return cfg.Embed.Provider + ":" + cfg.Embed.Model
	}
	return cfg.Embed.Provider
}
