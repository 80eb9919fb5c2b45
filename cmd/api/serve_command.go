package main

import (
	"context"
	"log"
	"time"

	"github.com/ethanbaker/minutes/internal/api"
	meetings_module "github.com/ethanbaker/minutes/internal/api/modules/meetings"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the transcription retry sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}
}

func runServe(cmd *cobra.Command, ctx *commandContext) error {
	runCtx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := ctx.build(runCtx)
	if err != nil {
		return err
	}
	a.Start()

	s := a.Settings.Server
	opts := api.Options{
		Port:           s.Port,
		AllowedOrigins: s.AllowedOrigins,
		APIKey:         s.APIKey,
		UploadDir:      s.UploadDir,
	}
	if opts.APIKey == "" {
		log.Println("[API-MAIN]: Warning, API_KEY not set, meeting routes are unauthenticated")
	}

	ctrl := meetings_module.NewController(a.Store, a.Dispatcher, a.QA, a.Avatar, s.UploadDir)
	serveErr := api.Serve(runCtx, opts, api.NewEngine(opts, ctrl))

	// Let in-flight processing runs finish before closing the store
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API-MAIN]: Shutdown: %v", err)
	}

	return serveErr
}
