package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/discharge-care/internal/knowledge"
)

func init() {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the index file to object storage",
		Long:  "Upload the built index file to the configured bucket so serving replicas can fetch it.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			publishIndex(cmd, cfg.Index.Path)
			fmt.Printf(`{"ok":true,"object":%q}`+"\n", cfg.Storage.Object)
		},
	}

	RootCmd.AddCommand(cmd)
}

func publishIndex(cmd *cobra.Command, path string) {
	store, err := knowledge.NewArtifactStore(cfg.StorageSettings())
	if err != nil {
		exitErr("object store", err)
	}
	if err := store.Publish(cmd.Context(), path, cfg.Storage.Object); err != nil {
		exitErr("publish", err)
	}
	logger.Info("index published", "path", path, "bucket", cfg.Storage.Bucket, "object", cfg.Storage.Object)
}
