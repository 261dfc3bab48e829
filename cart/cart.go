package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/storage"
	"github.com/pvaldez/pizza-express/utils"
)

// Store holds one customer's pending selection, backed by a durable KV
// snapshot so a reload (or a second surface on the same session) sees the
// same cart. Construct one per session with NewStore; there is no package
// singleton.
//
// The persisted snapshot is the source of truth: every mutation re-reads it
// first, so two surfaces sharing a key converge instead of clobbering each
// other. Storage failures degrade to the in-memory view and are only logged.
type Store struct {
	mu    sync.Mutex
	key   string
	kv    storage.KV
	items []models.CartItem

	subs    map[int]func()
	nextSub int
}

// NewStore loads the snapshot under key. A missing or corrupt snapshot loads
// as an empty cart.
func NewStore(kv storage.KV, key string) *Store {
	s := &Store{
		key:  key,
		kv:   kv,
		subs: make(map[int]func()),
	}
	s.reload(context.Background())
	return s
}

// reload replaces the in-memory items with the persisted snapshot.
// Caller holds the lock or is the constructor.
func (s *Store) reload(ctx context.Context) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if err != storage.ErrNotFound {
			utils.ErrorLogger.Printf("cart %s: read snapshot: %v", s.key, err)
		}
		s.items = nil
		return
	}
	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		utils.ErrorLogger.Printf("cart %s: corrupt snapshot, starting empty: %v", s.key, err)
		s.items = nil
		return
	}
	s.items = items
}

func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.items)
	if err != nil {
		utils.ErrorLogger.Printf("cart %s: marshal snapshot: %v", s.key, err)
		return
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		utils.ErrorLogger.Printf("cart %s: write snapshot: %v", s.key, err)
	}
}

// notify invokes subscribers outside the lock so a callback can read the
// store without deadlocking.
func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// AddItem appends a line item. Identically configured pizzas stay separate
// line items; callers that want one line bump the quantity on an existing id.
func (s *Store) AddItem(ctx context.Context, item models.CartItem) {
	s.mu.Lock()
	s.reload(ctx)
	s.items = append(s.items, item)
	s.persist(ctx)
	s.mu.Unlock()
	s.notify()
}

// UpdateQuantity sets the quantity on a line item, leaving its price alone.
// A quantity of zero or less removes the item. Unknown ids are a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, id)
		return
	}
	s.mu.Lock()
	s.reload(ctx)
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = quantity
			break
		}
	}
	s.persist(ctx)
	s.mu.Unlock()
	s.notify()
}

// RemoveItem drops a line item. No-op if absent.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.mu.Lock()
	s.reload(ctx)
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.persist(ctx)
	s.mu.Unlock()
	s.notify()
}

// Clear empties the cart and removes the persisted snapshot. Called after an
// order is successfully placed.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	if err := s.kv.Delete(ctx, s.key); err != nil {
		utils.ErrorLogger.Printf("cart %s: delete snapshot: %v", s.key, err)
	}
	s.mu.Unlock()
	s.notify()
}

// Items returns a copy of the current line items in insertion order.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// TotalItems is the sum of quantities across all line items.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// Subtotal applies the tiered pricing rules to the current items.
func (s *Store) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Subtotal(s.items)
}

// Tax on the current subtotal.
func (s *Store) Tax() float64 {
	return Tax(s.Subtotal())
}

// Total is subtotal plus tax. Tips are added at checkout, not here.
func (s *Store) Total() float64 {
	subtotal := s.Subtotal()
	return subtotal + Tax(subtotal)
}

// Subscribe registers a callback invoked after every mutation, so multiple
// surfaces can track one cart without shared framework state. The returned
// func unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
