package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethanbaker/minutes/internal/app"
	"github.com/ethanbaker/minutes/pkg/utils"
	"github.com/spf13/cobra"
)

type commandContext struct {
	envFile string
}

// settings loads the env file and converts it to typed settings
func (c *commandContext) settings() (*app.Settings, error) {
	return app.LoadSettings(utils.NewConfigFromEnv(c.envFile))
}

// build wires the application for a single command
func (c *commandContext) build(ctx context.Context) (*app.App, error) {
	s, err := c.settings()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, s, nil)
}

func newRootCommand() *cobra.Command {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "minutes",
		Short:         "Meeting transcription and summarization service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.envFile, "env", envFile, "Path to the .env file")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newSweepCommand(ctx))

	return rootCmd
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
