package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/segasurvey/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the survey web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		gen := newGenerator(db)
		pool := newPool(gen)
		pool.Start(cfg.Generation.Workers)
		defer pool.Stop()

		srv, err := server.New(server.Deps{
			DB:        db,
			Mixer:     newMixer(db),
			Generator: gen,
			Pool:      pool,
			Config:    cfg,
			Logger:    log,
		})
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		defer srv.Close()

		fmt.Printf("Starting server at http://%s\n", cfg.Server.Addr())
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cmd.Context(), srv, cfg.Server.Addr())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}
