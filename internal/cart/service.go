package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cropchain/cropchain-backend/pkg/docstore"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
)

// Service opens session-scoped carts.
type Service interface {
	Open(ctx context.Context, sessionID string) (*Session, error)
}

type service struct {
	repo  Repository
	logg  *logger.Logger
	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a one-slot semaphore so waiting for it can honour ctx.
type sessionLock struct {
	slot chan struct{}
	refs int
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo, logg: logg, locks: map[string]*sessionLock{}}, nil
}

// Open loads the session cart once. A load failure is logged and yields an
// empty cart. The returned Session holds the session lock until Close; a
// caller whose ctx ends while another request holds it gets CONFLICT.
func (s *service) Open(ctx context.Context, sessionID string) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}

	lock := s.acquire(sessionID)
	select {
	case lock.slot <- struct{}{}:
	case <-ctx.Done():
		s.releaseLock(sessionID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ctx.Err(), "cart is busy with another request")
	}

	items, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		s.logError(ctx, sessionID, "cart.load_failed", err)
		items = []CartItem{}
	}

	return &Session{
		id:    sessionID,
		items: items,
		save:  s.persist,
		release: func() {
			<-lock.slot
			s.releaseLock(sessionID)
		},
	}, nil
}

func (s *service) acquire(sessionID string) *sessionLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionLock{slot: make(chan struct{}, 1)}
		s.locks[sessionID] = lock
	}
	lock.refs++
	return lock
}

func (s *service) releaseLock(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		return
	}
	lock.refs--
	if lock.refs <= 0 {
		delete(s.locks, sessionID)
	}
}

func (s *service) persist(ctx context.Context, sessionID string, items []CartItem) {
	if err := s.repo.Save(ctx, sessionID, items); err != nil {
		s.logError(ctx, sessionID, "cart.save_failed", err)
	}
}

func (s *service) logError(ctx context.Context, sessionID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "session_id", sessionID), msg, err)
}

// Session is one loaded cart. Every mutation persists the full list; save
// failures are logged and never surface to the caller.
type Session struct {
	id      string
	mu      sync.Mutex
	items   []CartItem
	save    func(ctx context.Context, sessionID string, items []CartItem)
	release func()
	once    sync.Once
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Items returns a copy of the current lines.
func (s *Session) Items() []CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Count is the sum of quantities.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Count(s.items)
}

// AddItem appends item with qty, or increments the quantity of an existing line
// with the same id.
func (s *Session) AddItem(ctx context.Context, item CartItem, qty int) error {
	if strings.TrimSpace(item.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if item.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	// the seller id becomes a document path segment at checkout
	if item.UserID != nil && !docstore.ValidSegment(*item.UserID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid seller id").
			WithDetails(map[string]string{"userId": "must be non-blank and contain no \"/\""})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		item.Quantity = qty
		s.items = append(s.items, item)
	}
	s.save(ctx, s.id, cloneItems(s.items))
	return nil
}

// RemoveItem drops the line with id. Unknown ids are a no-op.
func (s *Session) RemoveItem(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.save(ctx, s.id, cloneItems(s.items))
}

// UpdateItemQuantity sets the quantity of id; qty <= 0 removes the line.
func (s *Session) UpdateItemQuantity(ctx context.Context, id string, qty int) {
	if qty <= 0 {
		s.RemoveItem(ctx, id)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = qty
		}
	}
	s.save(ctx, s.id, cloneItems(s.items))
}

// Clear empties the cart.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []CartItem{}
	s.save(ctx, s.id, []CartItem{})
}

// Close releases the session lock. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}
