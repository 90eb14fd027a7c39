package livedata

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
)

// NewFirestoreClient builds a Firestore client from base64 encoded service
// account credentials. Empty credentials fall back to application default
// credentials.
func NewFirestoreClient(ctx context.Context, projectID, encodedCreds string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if encodedCreds != "" {
		creds, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("error decoding firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return client, nil
}

type FirestoreListener struct {
	client *firestore.Client
}

func NewFirestoreListener(client *firestore.Client) *FirestoreListener {
	return &FirestoreListener{client: client}
}

func (l *FirestoreListener) Listen(ctx context.Context, q Query, emit func([]normalize.Document)) error {
	it := l.client.Collection(q.Collection).OrderBy(q.OrderBy, firestore.Desc).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) || ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("error listening to %s: %w", q.Collection, err)
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("error reading %s snapshot: %w", q.Collection, err)
		}

		out := make([]normalize.Document, 0, len(docs))
		for _, d := range docs {
			out = append(out, normalize.Document{ID: d.Ref.ID, Data: d.Data()})
		}
		emit(out)
	}
}
