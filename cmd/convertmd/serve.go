// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshint/convertmd/internal/batch"
	"github.com/meshint/convertmd/internal/container"
	"github.com/meshint/convertmd/internal/convert"
	"github.com/meshint/convertmd/internal/metrics"
	"github.com/meshint/convertmd/internal/server"
	"github.com/meshint/convertmd/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion pipeline over HTTP",
	Long: `Serve runs the batch conversion pipeline behind an HTTP API for UI
frontends: POST /api/convert accepts one or many files as multipart form
data and returns Markdown (single file) or a ZIP archive (batch), with
health at /healthz and Prometheus metrics at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Int64("max-upload", 0, "max upload size in bytes (default 256 MiB)")
	serveCmd.Flags().Int("workers", 0, "conversion worker pool size (default: available parallelism, capped at 5)")
	serveCmd.Flags().Duration("timeout", convert.DefaultTimeout, "per-file conversion timeout")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	maxUpload, _ := cmd.Flags().GetInt64("max-upload")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	conv, err := convert.NewMarkitdownConverter(rt)
	if err != nil {
		return err
	}

	adapter := convert.NewAdapter(conv, timeout)
	pipeline := batch.NewPipeline(adapter, workers, logger)
	srv := server.New(pipeline, metrics.New(), types.ServeConfig{
		Addr:           addr,
		MaxUploadBytes: maxUpload,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx, addr)
}
