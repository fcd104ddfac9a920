// Package fsstore implements docstore.Store with Cloud Firestore.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cropchain/cropchain-backend/pkg/config"
	"github.com/cropchain/cropchain-backend/pkg/docstore"
	"github.com/cropchain/cropchain-backend/pkg/logger"
)

// Store wraps a Firestore client.
type Store struct {
	client *firestore.Client
}

// New opens a Firestore client. An empty credentials file falls back to ADC.
func New(ctx context.Context, cfg config.FirestoreConfig, logg *logger.Logger) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", cfg.ProjectID), "firestore connection established")
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *firestore.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client required")
	}
	return &Store{client: client}, nil
}

func (s *Store) Batch() docstore.WriteBatch {
	return &batch{wb: s.client.Batch(), client: s.client}
}

func (s *Store) Get(ctx context.Context, ref docstore.DocumentRef) (*docstore.Snapshot, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("invalid document reference %q", ref.Path())
	}
	snap, err := s.client.Doc(ref.Path()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	out := toSnapshot(ref, snap)
	return &out, nil
}

func (s *Store) List(ctx context.Context, col docstore.CollectionRef, q docstore.Query) ([]docstore.Snapshot, error) {
	collection := s.client.Collection(col.Path())
	query := collection.Query
	for _, f := range q.Where {
		query = query.Where(f.Field, "==", f.Value)
	}
	if q.TimeField != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.TimeField, dir)
	}
	if q.After != "" {
		cursor, err := collection.Doc(q.After).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, docstore.ErrNotFound
			}
			return nil, err
		}
		query = query.StartAfter(cursor)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]docstore.Snapshot, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toSnapshot(col.Doc(doc.Ref.ID), doc))
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, ref docstore.DocumentRef, fields map[string]any) error {
	if !ref.Valid() {
		return fmt.Errorf("invalid document reference %q", ref.Path())
	}
	_, err := s.client.Doc(ref.Path()).Update(ctx, toUpdates(fields))
	if status.Code(err) == codes.NotFound {
		return docstore.ErrNotFound
	}
	return err
}

// Ping issues a cheap read to verify connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("firestore client is nil")
	}
	_, err := s.client.Collections(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

type batch struct {
	wb     *firestore.WriteBatch
	client *firestore.Client
	err    error
}

func (b *batch) Set(ref docstore.DocumentRef, data map[string]any) {
	if b.err != nil {
		return
	}
	if !ref.Valid() {
		b.err = fmt.Errorf("invalid document reference %q", ref.Path())
		return
	}
	b.wb.Set(b.client.Doc(ref.Path()), docstore.ResolveTimestamps(data, firestore.ServerTimestamp))
}

func (b *batch) Update(ref docstore.DocumentRef, fields map[string]any) {
	if b.err != nil {
		return
	}
	if !ref.Valid() {
		b.err = fmt.Errorf("invalid document reference %q", ref.Path())
		return
	}
	b.wb.Update(b.client.Doc(ref.Path()), toUpdates(fields))
}

func (b *batch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	_, err := b.wb.Commit(ctx)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
	}
	return err
}

func toSnapshot(ref docstore.DocumentRef, snap *firestore.DocumentSnapshot) docstore.Snapshot {
	return docstore.NewSnapshot(ref, snap.CreateTime, snap.DataTo)
}

// toUpdates converts a field map into Firestore updates in a stable order.
func toUpdates(fields map[string]any) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resolved := docstore.ResolveTimestamps(fields, firestore.ServerTimestamp)
	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: resolved[k]})
	}
	return updates
}

var _ docstore.Store = (*Store)(nil)
