package main

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/sanonone/kektorgraph/internal/server"
	"github.com/sanonone/kektorgraph/pkg/shard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local shard engine over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.HTTPAddr = serveAddr
		}
		eng, err := openEngine()
		if err != nil {
			return err
		}
		cat, err := cfg.NewCatalog()
		if err != nil {
			return multierror.Append(err, eng.Close())
		}

		srv := server.NewServer(eng, cat, cfg.Server.HTTPAddr, cfg.Server.AuthToken, slog.Default())

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Run() }()

		var result *multierror.Error
		select {
		case err := <-errCh:
			result = multierror.Append(result, err)
		case <-cmd.Context().Done():
			slog.Info("Shutdown signal received")
			result = multierror.Append(result, srv.Shutdown())
		}

		if err := eng.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close engine: %w", err))
		}
		return result.ErrorOrNil()
	},
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "http-addr", "", "Override server.http_addr.")
}

// openEngine opens the shard engine described by the server section.
func openEngine() (*shard.Engine, error) {
	opts := shard.DefaultOptions(cfg.Server.DataDir)
	opts.Database = cfg.Server.Database
	opts.Logger = slog.Default()
	eng, err := shard.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	return eng, nil
}
