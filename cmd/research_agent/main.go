// Package main provides the entry point for the portfolio research service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "research_agent",
	Short: "Portfolio company research service",
	Long:  "Asynchronous research pipeline for portfolio companies: submit a question, poll for a synthesized markdown answer built from the internal knowledge base, the company website, and optional deep web research.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
