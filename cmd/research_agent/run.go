package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/portfolio-research/internal/config"
	"github.com/jonathan/portfolio-research/internal/jobs"
)

var runDeepResearch bool

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run one research query to completion and print the answer",
	Long:  `Run the full research pipeline synchronously for a single query. Useful for local testing without the HTTP server.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResearch,
}

func init() {
	runCmd.Flags().BoolVar(&runDeepResearch, "deep", false, "Enable deep research rounds")
	rootCmd.AddCommand(runCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	query := strings.Join(args, " ")
	job := jobs.New(query, runDeepResearch, cfg.JobRetention)
	if err := st.store.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	start := time.Now()
	if err := st.orch.Run(ctx, job.ID); err != nil {
		return err
	}

	final, err := st.store.Get(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to read job result: %w", err)
	}

	if final.Status == jobs.StatusFailed {
		return fmt.Errorf("research failed: %s", final.Error)
	}

	cmd.Println(final.Result)
	cmd.Printf("\n(completed in %s)\n", time.Since(start).Round(time.Second))
	return nil
}
