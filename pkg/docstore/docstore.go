// Package docstore describes the document database surface used for orders and notifications.
//
// Documents live at slash-separated paths made of alternating collection and document
// segments, e.g. users/{sellerId}/orders/{orderId}. Writes go through an atomic WriteBatch;
// ServerTimestamp values are replaced by the backend with its own commit time.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

type serverTimestamp struct{}

// ServerTimestamp marks a field whose value is assigned by the store at commit time.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Store is the document database consumed by the checkout, orders and notifications packages.
type Store interface {
	Batch() WriteBatch
	Get(ctx context.Context, ref DocumentRef) (*Snapshot, error)
	List(ctx context.Context, col CollectionRef, q Query) ([]Snapshot, error)
	Update(ctx context.Context, ref DocumentRef, fields map[string]any) error
}

// WriteBatch queues writes that commit or fail as a unit.
type WriteBatch interface {
	Set(ref DocumentRef, data map[string]any)
	// Update merges fields into an existing document; Commit fails with
	// ErrNotFound when it is missing.
	Update(ref DocumentRef, fields map[string]any)
	Commit(ctx context.Context) error
}

// CollectionRef points at a collection, possibly nested under a document.
type CollectionRef struct {
	path string
}

// Collection builds a collection reference from path segments. The number of
// segments must be odd (collection, doc, collection, ...).
func Collection(segments ...string) (CollectionRef, error) {
	if len(segments) == 0 || len(segments)%2 == 0 {
		return CollectionRef{}, fmt.Errorf("docstore: collection path needs an odd number of segments, got %d", len(segments))
	}
	for _, seg := range segments {
		if !ValidSegment(seg) {
			return CollectionRef{}, fmt.Errorf("docstore: invalid path segment %q", seg)
		}
	}
	return CollectionRef{path: strings.Join(segments, "/")}, nil
}

// ValidSegment reports whether seg can name a collection or document: not
// blank and free of "/".
func ValidSegment(seg string) bool {
	return strings.TrimSpace(seg) != "" && !strings.Contains(seg, "/")
}

// Path returns the slash-separated collection path.
func (c CollectionRef) Path() string {
	return c.path
}

// Doc references a document with the given id inside the collection.
func (c CollectionRef) Doc(id string) DocumentRef {
	return DocumentRef{collection: c.path, id: id}
}

// NewDoc references a document with a freshly generated id.
func (c CollectionRef) NewDoc() DocumentRef {
	return c.Doc(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// DocumentRef points at a single document.
type DocumentRef struct {
	collection string
	id         string
}

func (d DocumentRef) ID() string {
	return d.id
}

// Collection returns the path of the parent collection.
func (d DocumentRef) Collection() string {
	return d.collection
}

// Path returns the full document path.
func (d DocumentRef) Path() string {
	return d.collection + "/" + d.id
}

// Valid reports whether the reference has both a collection and an id.
func (d DocumentRef) Valid() bool {
	return d.collection != "" && strings.TrimSpace(d.id) != "" && !strings.Contains(d.id, "/")
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query narrows a List call. Results are ordered by TimeField (the server timestamp
// written when the document was created), newest first when Desc is set.
type Query struct {
	Where     []Filter
	TimeField string
	Desc      bool
	Limit     int
	// After is the id of the last document of the previous page.
	After string
}

// Snapshot is a read document.
type Snapshot struct {
	Ref        DocumentRef
	CreateTime time.Time
	decode     func(v any) error
}

// NewSnapshot is used by backends to build snapshots with their own decoder.
func NewSnapshot(ref DocumentRef, created time.Time, decode func(v any) error) Snapshot {
	return Snapshot{Ref: ref, CreateTime: created, decode: decode}
}

// DataTo decodes the document into v.
func (s Snapshot) DataTo(v any) error {
	if s.decode == nil {
		return fmt.Errorf("docstore: snapshot %s has no data", s.Ref.Path())
	}
	return s.decode(v)
}

// ResolveTimestamps returns a copy of data with every ServerTimestamp sentinel,
// including those nested in maps and slices, replaced by replacement.
func ResolveTimestamps(data map[string]any, replacement any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = resolveValue(v, replacement)
	}
	return out
}

func resolveValue(v any, replacement any) any {
	switch typed := v.(type) {
	case serverTimestamp:
		return replacement
	case map[string]any:
		return ResolveTimestamps(typed, replacement)
	case []map[string]any:
		items := make([]map[string]any, len(typed))
		for i, item := range typed {
			items[i] = ResolveTimestamps(item, replacement)
		}
		return items
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = resolveValue(item, replacement)
		}
		return items
	default:
		return v
	}
}
