// Package sqlstore implements docstore.Store on top of a relational database through GORM.
//
// All documents share the documents table. A batch commits inside a single transaction
// and every ServerTimestamp in it resolves to the same commit time.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cropchain/cropchain-backend/pkg/docstore"
)

// TableName is the table holding every document.
const TableName = "documents"

type documentRow struct {
	Path       string    `gorm:"column:path;type:text;primaryKey"`
	Collection string    `gorm:"column:collection;type:text;not null;index:idx_documents_collection_created"`
	DocID      string    `gorm:"column:doc_id;type:text;not null"`
	Data       string    `gorm:"column:data;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index:idx_documents_collection_created"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (documentRow) TableName() string {
	return TableName
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Store is a docstore.Store backed by GORM.
type Store struct {
	db  *gorm.DB
	tx  txRunner
	now func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the commit clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Store. tx may be nil, in which case transactions run directly on db.
func New(db *gorm.DB, tx txRunner, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db required")
	}
	s := &Store{db: db, tx: tx, now: func() time.Time { return time.Now().UTC() }}
	if s.tx == nil {
		s.tx = gormTx{db: db}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AutoMigrate creates the documents table; used by tests and sqlite dev setups.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&documentRow{})
}

func (s *Store) Batch() docstore.WriteBatch {
	return &batch{store: s}
}

func (s *Store) Get(ctx context.Context, ref docstore.DocumentRef) (*docstore.Snapshot, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("invalid document reference %q", ref.Path())
	}
	var row documentRow
	err := s.db.WithContext(ctx).Where("path = ?", ref.Path()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	snap := snapshotFromRow(row)
	return &snap, nil
}

// List loads the collection ordered by creation time and applies filters, the cursor
// and the limit in memory. Per-seller collections stay small.
func (s *Store) List(ctx context.Context, col docstore.CollectionRef, q docstore.Query) ([]docstore.Snapshot, error) {
	order := "created_at ASC, doc_id ASC"
	if q.Desc {
		order = "created_at DESC, doc_id DESC"
	}
	var rows []documentRow
	if err := s.db.WithContext(ctx).
		Where("collection = ?", col.Path()).
		Order(order).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	snaps := make([]docstore.Snapshot, 0, len(rows))
	skipping := q.After != ""
	for _, row := range rows {
		if skipping {
			if row.DocID == q.After {
				skipping = false
			}
			continue
		}
		if len(q.Where) > 0 {
			ok, err := matches(row.Data, q.Where)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", row.Path, err)
			}
			if !ok {
				continue
			}
		}
		snaps = append(snaps, snapshotFromRow(row))
		if q.Limit > 0 && len(snaps) == q.Limit {
			break
		}
	}
	if skipping {
		return nil, docstore.ErrNotFound
	}
	return snaps, nil
}

func (s *Store) Update(ctx context.Context, ref docstore.DocumentRef, fields map[string]any) error {
	if !ref.Valid() {
		return fmt.Errorf("invalid document reference %q", ref.Path())
	}
	now := s.now()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return mergeFields(tx, ref, fields, now)
	})
}

// mergeFields overlays fields on the stored document at ref.
func mergeFields(tx *gorm.DB, ref docstore.DocumentRef, fields map[string]any, now time.Time) error {
	var row documentRow
	if err := tx.Where("path = ?", ref.Path()).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return docstore.ErrNotFound
		}
		return err
	}
	current := map[string]any{}
	if err := json.Unmarshal([]byte(row.Data), &current); err != nil {
		return fmt.Errorf("decode %s: %w", row.Path, err)
	}
	for k, v := range docstore.ResolveTimestamps(fields, now) {
		current[k] = v
	}
	encoded, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode %s: %w", row.Path, err)
	}
	return tx.Model(&documentRow{}).
		Where("path = ?", row.Path).
		Updates(map[string]any{"data": string(encoded), "updated_at": now}).Error
}

type pendingWrite struct {
	ref   docstore.DocumentRef
	data  map[string]any
	merge bool
}

type batch struct {
	store  *Store
	writes []pendingWrite
}

func (b *batch) Set(ref docstore.DocumentRef, data map[string]any) {
	b.writes = append(b.writes, pendingWrite{ref: ref, data: data})
}

func (b *batch) Update(ref docstore.DocumentRef, fields map[string]any) {
	b.writes = append(b.writes, pendingWrite{ref: ref, data: fields, merge: true})
}

// Commit applies every write in order inside one transaction.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	for _, w := range b.writes {
		if !w.ref.Valid() {
			return fmt.Errorf("invalid document reference %q", w.ref.Path())
		}
	}
	now := b.store.now()

	return b.store.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, w := range b.writes {
			if w.merge {
				if err := mergeFields(tx, w.ref, w.data, now); err != nil {
					return fmt.Errorf("update %s: %w", w.ref.Path(), err)
				}
				continue
			}
			encoded, err := json.Marshal(docstore.ResolveTimestamps(w.data, now))
			if err != nil {
				return fmt.Errorf("encode %s: %w", w.ref.Path(), err)
			}
			row := documentRow{
				Path:       w.ref.Path(),
				Collection: w.ref.Collection(),
				DocID:      w.ref.ID(),
				Data:       string(encoded),
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "path"}},
				DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("set %s: %w", row.Path, err)
			}
		}
		return nil
	})
}

func snapshotFromRow(row documentRow) docstore.Snapshot {
	ref := docRef(row)
	data := row.Data
	return docstore.NewSnapshot(ref, row.CreatedAt, func(v any) error {
		return json.Unmarshal([]byte(data), v)
	})
}

func docRef(row documentRow) docstore.DocumentRef {
	// collection paths stored by this package were validated on write
	col, err := docstore.Collection(strings.Split(row.Collection, "/")...)
	if err != nil {
		return docstore.DocumentRef{}
	}
	return col.Doc(row.DocID)
}

func matches(raw string, filters []docstore.Filter) (bool, error) {
	data := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return false, err
	}
	for _, f := range filters {
		if data[f.Field] != f.Value {
			return false, nil
		}
	}
	return true, nil
}

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

var _ docstore.Store = (*Store)(nil)

