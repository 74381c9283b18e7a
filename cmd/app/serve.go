package main

import (
	"github.com/spf13/cobra"

	"studio-portrait/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portrait HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, detector, err := a.newPipeline()
			if err != nil {
				return err
			}
			defer detector.Close()

			var cache *server.ResultCache
			if a.cfg.Cache.Enabled {
				cache, err = server.NewResultCache(a.cfg.Cache.NumCounters, a.cfg.Cache.MaxCost, a.cfg.Cache.TTL)
				if err != nil {
					return err
				}
				defer cache.Close()
			}

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := server.New(pipeline, cache, server.Options{
				Addr:         addr,
				MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
				JPEGQuality:  a.cfg.Server.JPEGQuality,
			}, a.logger)

			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}
