package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/discharge-care/internal/api"
	"github.com/rcliao/discharge-care/internal/knowledge"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API",
		Long:  "Serve the HTTP and WebSocket chat API. With --fetch-index the published index is downloaded first.",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().Bool("fetch-index", false, "Download the published index before serving")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	fetch, _ := cmd.Flags().GetBool("fetch-index")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if fetch {
		store, err := knowledge.NewArtifactStore(cfg.StorageSettings())
		if err != nil {
			exitErr("object store", err)
		}
		if err := store.Fetch(ctx, cfg.Storage.Object, cfg.Index.Path); err != nil {
			exitErr("fetch index", err)
		}
		logger.Info("index fetched", "object", cfg.Storage.Object, "path", cfg.Index.Path)
	}

	a, err := buildApp(ctx)
	if err != nil {
		exitErr("start", err)
	}
	defer a.Close()

	go a.sessions.Run(ctx, cfg.Session.Sweep, cfg.Session.IdleTTL)

	srv := api.New(a.orch, a.patients, api.WithIndex(a.index), api.WithLogger(logger))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		exitErr("serve", err)
	}
}
