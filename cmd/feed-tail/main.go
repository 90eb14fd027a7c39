package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "feed-tail",
		Short:   "Follow the live disaster feed and query the dashboard backends",
		Version: Version,
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(tailCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
