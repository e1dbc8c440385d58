package cart

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codgamerofficial/Kultzr/internal/domain"
	"github.com/codgamerofficial/Kultzr/internal/pricing"
)

// Store is the single source of truth for one session's cart. Local
// mutations always succeed and complete before any replication is attempted;
// the remote persisted copy is written through asynchronously and its
// failures are logged, never surfaced.
//
// A Store is scoped to one session. Construct one per session; never share
// across sessions.
type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []domain.LineItem
	cfg       pricing.Config
	remote    Remote // nil for anonymous local-only carts
	now       func() time.Time

	// Replication queue. One write is in flight at a time and only the
	// newest pending state is kept, so the remote copy can never observe
	// mutations out of order.
	wmu     sync.Mutex
	pending *remoteWrite
	writing bool
}

type remoteWrite struct {
	items []domain.LineItem
	clear bool
}

func NewStore(sessionID string, cfg pricing.Config, remote Remote) *Store {
	return &Store{
		sessionID: sessionID,
		cfg:       cfg,
		remote:    remote,
		now:       time.Now,
	}
}

// Hydrate replaces an empty store's contents with the remotely persisted
// cart, if one exists. Called once at session start; a remote failure leaves
// the store empty and usable.
func (s *Store) Hydrate(ctx context.Context) {
	if s.remote == nil {
		return
	}

	items, err := s.remote.Load(ctx, s.sessionID)
	if err != nil {
		log.Printf("cart load for session %s failed: %v", s.sessionID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		s.items = items
	}
}

// AddItem appends a new line item with the price snapshotted from the
// product's (or variant's) current price, or increments the quantity of an
// existing item with the same (product, variant) identity. Quantities below
// 1 are clamped to 1.
func (s *Store) AddItem(p *domain.Product, v *domain.Variant, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	item := domain.LineItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   domain.UnitPrice(p, v),
		Quantity:    quantity,
		AddedAt:     s.now(),
	}
	if v != nil {
		item.VariantID = v.ID
		item.Size = v.Size
		item.Color = v.Color
	}

	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].SameIdentity(item) {
			s.items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.writeThrough(snapshot)
}

// UpdateQuantity sets the quantity of the identified line item. A quantity
// of zero or less removes the item; items are never kept at quantity zero.
func (s *Store) UpdateQuantity(productID, variantID int64, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(productID, variantID)
		return
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ProductID == productID && s.items[i].VariantID == variantID {
			s.items[i].Quantity = quantity
			break
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.writeThrough(snapshot)
}

// RemoveItem deletes the identified line item. Removing an item that is not
// in the cart is a no-op, not an error.
func (s *Store) RemoveItem(productID, variantID int64) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ProductID == productID && s.items[i].VariantID == variantID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.writeThrough(snapshot)
}

// Clear empties the cart. Called after a confirmed order submission and on
// sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.enqueue(&remoteWrite{clear: true})
}

func (s *Store) IsInCart(productID, variantID int64) bool {
	return s.Quantity(productID, variantID) > 0
}

func (s *Store) Quantity(productID, variantID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ProductID == productID && item.VariantID == variantID {
			return item.Quantity
		}
	}
	return 0
}

// Items returns a copy of the current line items.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Summary recomputes the cart totals from the current line items.
func (s *Store) Summary() pricing.Summary {
	s.mu.Lock()
	items := s.snapshotLocked()
	s.mu.Unlock()
	return pricing.Summarize(items, decimal.Zero, s.cfg)
}

func (s *Store) snapshotLocked() []domain.LineItem {
	snapshot := make([]domain.LineItem, len(s.items))
	copy(snapshot, s.items)
	return snapshot
}

// writeThrough replicates the given snapshot to the remote copy. Best-effort:
// runs off the mutation path, bounded by a timeout, and only logs on failure.
// The local state already committed and stays authoritative.
func (s *Store) writeThrough(items []domain.LineItem) {
	s.enqueue(&remoteWrite{items: items})
}

// enqueue hands a write to the session's replication worker. A burst of
// mutations collapses to the newest state; earlier pending snapshots are
// dropped unsent.
func (s *Store) enqueue(w *remoteWrite) {
	if s.remote == nil {
		return
	}

	s.wmu.Lock()
	s.pending = w
	if s.writing {
		s.wmu.Unlock()
		return
	}
	s.writing = true
	s.wmu.Unlock()

	go s.flushWrites()
}

func (s *Store) flushWrites() {
	for {
		s.wmu.Lock()
		w := s.pending
		s.pending = nil
		if w == nil {
			s.writing = false
			s.wmu.Unlock()
			return
		}
		s.wmu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		if w.clear {
			err = s.remote.Clear(ctx, s.sessionID)
		} else {
			err = s.remote.Save(ctx, s.sessionID, w.items)
		}
		cancel()
		if err != nil {
			log.Printf("cart write-through for session %s failed: %v", s.sessionID, err)
		}
	}
}
