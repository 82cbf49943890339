package cart

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/fjod/go_cart/shopping/internal/domain"
	"github.com/fjod/go_cart/shopping/internal/notify"
	"github.com/fjod/go_cart/shopping/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	msgAdded       = domain.Notification{Text: "Added to cart successfully", Kind: domain.KindSuccess}
	msgUpdated     = domain.Notification{Text: "Update successfully", Kind: domain.KindWarning}
	msgDeleted     = domain.Notification{Text: "Delete successfully", Kind: domain.KindDanger}
	msgCleared     = domain.Notification{Text: "Cart cleared", Kind: domain.KindSuccess}
	msgBadQuantity = domain.Notification{Text: "Quantity must be at least 1", Kind: domain.KindWarning}
	msgSaveFailed  = domain.Notification{Text: "Could not save cart", Kind: domain.KindDanger}
	msgLoadFailed  = domain.Notification{Text: "Could not load cart", Kind: domain.KindDanger}
)

// Failed reports whether n means the cart could not be read or written.
func Failed(n domain.Notification) bool {
	return n == msgSaveFailed || n == msgLoadFailed
}

// Snapshot is a consistent view of a cart for rendering.
type Snapshot struct {
	Items        []domain.LineItem
	Total        decimal.Decimal
	Notification domain.Notification
}

type Option func(*Store)

func WithSink(sink notify.Sink) Option {
	return func(s *Store) {
		s.sink = sink
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithID names the cart in emitted events and log lines.
func WithID(id string) Option {
	return func(s *Store) {
		s.id = id
	}
}

// Store owns the line items of one cart. The in-memory copy is authoritative;
// every mutation is written through to the adapter before it takes effect,
// and a failed write leaves the cart as it was.
type Store struct {
	mu      sync.Mutex
	adapter storage.Adapter
	sink    notify.Sink
	logger  *zap.Logger
	id      string

	items []domain.LineItem
	last  domain.Notification
	stale bool // last read failed; reload before the next write

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func NewStore(adapter storage.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter: adapter,
		sink:    notify.Discard,
		logger:  zap.NewNop(),
		subs:    make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("cart_id", s.id))
	return s
}

// Load replaces the in-memory cart with the persisted one. Missing or
// malformed data loads as an empty cart. When the backend itself fails the
// cart also reads as empty, but it is reloaded before the next mutation so a
// write never replaces a cart that could not be read.
func (s *Store) Load(ctx context.Context) []domain.LineItem {
	s.mu.Lock()
	items, err := s.read(ctx)
	s.items = items
	s.stale = err != nil
	items = slices.Clone(s.items)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return items
}

// read returns an error only when the backend could not answer.
func (s *Store) read(ctx context.Context) ([]domain.LineItem, error) {
	raw, err := s.adapter.Get(ctx, storage.KeyCart)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("failed to read cart", zap.Error(err))
		return nil, err
	}

	items, err := Decode(raw)
	if err != nil {
		s.logger.Warn("discarding persisted cart", zap.Error(err))
		return nil, nil
	}
	return items, nil
}

// AddToCart puts one unit of the product in the cart, merging with an
// existing line for the same product. Availability is not checked here.
func (s *Store) AddToCart(ctx context.Context, productID int64, name string, unitPrice decimal.Decimal) domain.Notification {
	return s.mutate(ctx, msgAdded, func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, productID); i >= 0 {
			items[i].Quantity++
			return items
		}
		return append(items, domain.LineItem{
			ProductID: productID,
			Name:      name,
			UnitPrice: unitPrice,
			Quantity:  1,
		})
	})
}

// UpdateCartItem sets the quantity of a line. Unknown products leave the cart
// unchanged; quantities below one are rejected without touching storage.
func (s *Store) UpdateCartItem(ctx context.Context, productID int64, quantity int) domain.Notification {
	if quantity < domain.MinQuantity {
		s.mu.Lock()
		s.last = msgBadQuantity
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.publish(ctx, snap)
		return msgBadQuantity
	}

	return s.mutate(ctx, msgUpdated, func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, productID); i >= 0 {
			items[i].Quantity = quantity
		}
		return items
	})
}

// DeleteCartItem removes the line for productID, if any.
func (s *Store) DeleteCartItem(ctx context.Context, productID int64) domain.Notification {
	return s.mutate(ctx, msgDeleted, func(items []domain.LineItem) []domain.LineItem {
		return slices.DeleteFunc(items, func(item domain.LineItem) bool {
			return item.ProductID == productID
		})
	})
}

// Clear empties the cart once checkout has taken it over.
func (s *Store) Clear(ctx context.Context) domain.Notification {
	return s.mutate(ctx, msgCleared, func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

// TotalPrice sums unit price times quantity over the current items.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Total(s.items)
}

func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// LastNotification returns the message of the most recent mutation.
func (s *Store) LastNotification() domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Store) DismissNotification() {
	s.mu.Lock()
	s.last = domain.Notification{}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) mutate(ctx context.Context, ok domain.Notification, fn func([]domain.LineItem) []domain.LineItem) domain.Notification {
	s.mu.Lock()
	if s.stale {
		items, err := s.read(ctx)
		if err != nil {
			s.last = msgLoadFailed
			snap := s.snapshotLocked()
			s.mu.Unlock()

			s.publish(ctx, snap)
			return msgLoadFailed
		}
		s.items = items
		s.stale = false
	}
	next := fn(slices.Clone(s.items))

	result := ok
	if err := s.write(ctx, next); err != nil {
		s.logger.Error("failed to persist cart", zap.Error(err))
		result = msgSaveFailed
	} else {
		s.items = next
	}
	s.last = result
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, snap)
	return result
}

func (s *Store) write(ctx context.Context, items []domain.LineItem) error {
	raw, err := Encode(items)
	if err != nil {
		return err
	}
	return s.adapter.Set(ctx, storage.KeyCart, raw)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:        slices.Clone(s.items),
		Total:        domain.Total(s.items),
		Notification: s.last,
	}
}

func (s *Store) publish(ctx context.Context, snap Snapshot) {
	s.sink.Notify(ctx, notify.Event{
		CartID:       s.id,
		Notification: snap.Notification,
		At:           time.Now(),
	})
	s.broadcast(snap)
}

func (s *Store) broadcast(snap Snapshot) {
	s.subsMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func indexOf(items []domain.LineItem, productID int64) int {
	return slices.IndexFunc(items, func(item domain.LineItem) bool {
		return item.ProductID == productID
	})
}
