package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/portfolio-research/internal/config"
	"github.com/jonathan/portfolio-research/internal/jobs"
	"github.com/jonathan/portfolio-research/internal/server"
)

var servePort int

// sweepInterval is how often expired job records are purged.
const sweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that accepts research jobs and serves their status and results.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	go sweepExpired(ctx, st.store)

	srv := server.New(server.Config{
		Port:         cfg.Port,
		Store:        st.store,
		Orchestrator: st.orch,
		JobRetention: cfg.JobRetention,
	})
	return srv.Start()
}

// sweepExpired periodically purges job records past their retention window.
func sweepExpired(ctx context.Context, store jobs.Store) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		switch s := store.(type) {
		case *jobs.PostgresStore:
			n, err := s.DeleteExpired(ctx)
			if err != nil {
				log.Printf("Expiry sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("Expiry sweep removed %d job(s)", n)
			}
		case *jobs.MemoryStore:
			if n := s.PurgeExpired(); n > 0 {
				log.Printf("Expiry sweep removed %d job(s)", n)
			}
		}
	}
}
