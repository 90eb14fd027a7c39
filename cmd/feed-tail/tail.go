package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-disaster-monitor/internal/feed"
	"github.com/mr1hm/go-disaster-monitor/internal/logging"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

type tailOptions struct {
	disastersOnly bool
	json          bool
	limit         int
}

func tailCmd() *cobra.Command {
	var (
		url       string
		baseDelay time.Duration
		maxDelay  time.Duration
		opts      tailOptions
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Connect to the push feed and print entries as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			slog.SetDefault(logging.New(os.Stderr, level, "text"))

			client := feed.New(feed.Config{
				URL:        url,
				BaseDelay:  baseDelay,
				MaxDelay:   maxDelay,
				BufferSize: feed.DefaultBufferSize,
			})
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runTail(ctx, cmd.OutOrStdout(), client, opts)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", envOr("FEED_WS_URL", feed.DefaultURL), "Push feed websocket URL")
	cmd.Flags().DurationVar(&baseDelay, "base-delay", feed.DefaultBaseDelay, "First reconnect delay")
	cmd.Flags().DurationVar(&maxDelay, "max-delay", feed.DefaultMaxDelay, "Largest reconnect delay")
	cmd.Flags().BoolVarP(&opts.disastersOnly, "disasters-only", "d", false, "Only print disaster entries")
	cmd.Flags().BoolVarP(&opts.json, "json", "j", false, "Print entries as JSON lines")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Exit after n entries (0 follows forever)")

	return cmd
}

// tailSource is the part of the feed client runTail needs.
type tailSource interface {
	Connect()
	Subscribe() (uint64, <-chan models.FeedEntry)
	Unsubscribe(id uint64)
}

func runTail(ctx context.Context, out io.Writer, src tailSource, opts tailOptions) error {
	id, entries := src.Subscribe()
	defer src.Unsubscribe(id)
	src.Connect()

	enc := json.NewEncoder(out)
	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-entries:
			if !ok {
				return nil
			}
			if opts.disastersOnly && !e.IsDisaster {
				continue
			}
			if opts.json {
				if err := enc.Encode(e); err != nil {
					return fmt.Errorf("error writing entry: %w", err)
				}
			} else if _, err := fmt.Fprintln(out, formatEntry(e)); err != nil {
				return fmt.Errorf("error writing entry: %w", err)
			}
			printed++
			if opts.limit > 0 && printed >= opts.limit {
				return nil
			}
		}
	}
}

func formatEntry(e models.FeedEntry) string {
	var b strings.Builder
	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString("  ")

	if e.IsDisaster {
		tags := []string{"DISASTER"}
		if e.DisasterType != nil {
			tags = append(tags, *e.DisasterType)
		}
		if e.Severity != nil {
			tags = append(tags, string(*e.Severity))
		}
		b.WriteString("[" + strings.Join(tags, " ") + "]  ")
	}

	b.WriteString(e.ID)
	if e.Latitude != nil && e.Longitude != nil {
		fmt.Fprintf(&b, " @%.4f,%.4f", *e.Latitude, *e.Longitude)
	}
	b.WriteString("  ")
	b.WriteString(strings.ReplaceAll(e.Text, "\n", " "))
	return b.String()
}
