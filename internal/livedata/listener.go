// Package livedata subscribes to live document collections. Every delivery
// is a full snapshot of the collection that replaces whatever the consumer
// held before.
package livedata

import (
	"context"

	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
)

// Query names a collection and the field it is ordered by, newest first.
type Query struct {
	Collection string
	OrderBy    string
}

var (
	IVRReports      = Query{Collection: "ivr_reports", OrderBy: "created_at"}
	AppReports      = Query{Collection: "reports", OrderBy: "createdAt"}
	DisasterReports = Query{Collection: "disaster_reports", OrderBy: "created_at"}
	Alerts          = Query{Collection: "alerts", OrderBy: "created_at"}
)

// Listener delivers full snapshots of q to emit until ctx is cancelled or the
// underlying stream fails. It blocks for the life of the stream.
type Listener interface {
	Listen(ctx context.Context, q Query, emit func([]normalize.Document)) error
}
