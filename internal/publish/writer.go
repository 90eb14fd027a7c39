// Package publish fans live feed entries and report snapshots out to Kafka
// for downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mr1hm/go-disaster-monitor/internal/config"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

// Writer produces feed entries and report snapshots to their topics.
type Writer struct {
	writer       *kafkago.Writer
	entriesTopic string
	reportsTopic string
}

func NewWriter(cfg config.KafkaConfig) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	return &Writer{
		writer:       w,
		entriesTopic: cfg.EntriesTopic,
		reportsTopic: cfg.ReportsTopic,
	}
}

func (w *Writer) PublishEntry(ctx context.Context, entry models.FeedEntry) error {
	msg, err := entryMessage(w.entriesTopic, entry)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("error publishing feed entry %s: %w", entry.ID, err)
	}
	return nil
}

// PublishSnapshot writes a whole collection snapshot as one message keyed by
// feed, so a compacted topic keeps only the latest snapshot per feed.
func (w *Writer) PublishSnapshot(ctx context.Context, feed string, reports []models.Report) error {
	msg, err := snapshotMessage(w.reportsTopic, feed, reports, time.Now())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("error publishing %s snapshot: %w", feed, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func entryMessage(topic string, entry models.FeedEntry) (kafkago.Message, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feed entry: %w", err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(entry.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "is_disaster", Value: []byte(strconv.FormatBool(entry.IsDisaster))},
			{Key: "received_at", Value: []byte(entry.Timestamp.UTC().Format(time.RFC3339))},
		},
	}, nil
}

type snapshot struct {
	Feed    string          `json:"feed"`
	Count   int             `json:"count"`
	Reports []models.Report `json:"reports"`
}

func snapshotMessage(topic, feed string, reports []models.Report, now time.Time) (kafkago.Message, error) {
	if reports == nil {
		reports = []models.Report{}
	}
	data, err := json.Marshal(snapshot{Feed: feed, Count: len(reports), Reports: reports})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s snapshot: %w", feed, err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(feed),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "feed", Value: []byte(feed)},
			{Key: "published_at", Value: []byte(now.UTC().Format(time.RFC3339))},
		},
	}, nil
}
