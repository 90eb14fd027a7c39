package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-disaster-monitor/internal/backend"
	"github.com/mr1hm/go-disaster-monitor/internal/ingestion"
	"github.com/mr1hm/go-disaster-monitor/internal/logging"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
)

func backendFlags(cmd *cobra.Command) {
	cmd.Flags().String("social-url", envOr("SOCIAL_API_URL", backend.DefaultSocialURL), "Social API base URL")
	cmd.Flags().String("satellite-url", envOr("SATELLITE_API_URL", backend.DefaultSatelliteURL), "Satellite API base URL")
	cmd.Flags().Duration("timeout", 10*time.Second, "Request timeout")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

func backendClient(cmd *cobra.Command) *backend.Client {
	level, _ := cmd.Flags().GetString("log-level")
	slog.SetDefault(logging.New(os.Stderr, level, "text"))

	social, _ := cmd.Flags().GetString("social-url")
	satellite, _ := cmd.Flags().GetString("satellite-url")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg := backend.DefaultConfig()
	cfg.SocialURL = social
	cfg.SatelliteURL = satellite
	cfg.Timeout = timeout
	return backend.NewClient(cfg, normalize.New(nil), nil)
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard counters, derived from reports if the stats endpoint fails",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := backendClient(cmd)
			stats, _ := ingestion.StatsWithFallback(client, nil, nil)(cmd.Context())

			asJSON, _ := cmd.Flags().GetBool("json")
			return printStats(cmd.OutOrStdout(), stats, asJSON)
		},
	}
	backendFlags(cmd)
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the active satellite flood events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := backendClient(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			events := client.SatelliteEvents(ctx)

			asJSON, _ := cmd.Flags().GetBool("json")
			return printEvents(cmd.OutOrStdout(), events, asJSON)
		},
	}
	backendFlags(cmd)
	return cmd
}

func printStats(out io.Writer, stats models.Stats, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(stats)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total reports\t%d\n", stats.TotalReports)
	fmt.Fprintf(w, "Critical alerts\t%d\n", stats.CriticalAlerts)
	fmt.Fprintf(w, "Satellite events\t%d\n", stats.ActiveSatelliteEvents)
	fmt.Fprintf(w, "Posts (24h)\t%d\n", stats.SocialMediaPosts24h)
	return w.Flush()
}

func printEvents(out io.Writer, events []models.SatelliteEvent, asJSON bool) error {
	if asJSON {
		if events == nil {
			events = []models.SatelliteEvent{}
		}
		return json.NewEncoder(out).Encode(events)
	}
	if len(events) == 0 {
		_, err := fmt.Fprintln(out, "no active events")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tCOUNTRY\tACTIVATED\tTITLE")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.CEMSID, e.EventType, e.Country, e.ActivationTime, e.Title)
	}
	return w.Flush()
}
