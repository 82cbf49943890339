package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_cart/shopping/internal/domain"
	"github.com/fjod/go_cart/shopping/internal/notify"
	"github.com/fjod/go_cart/shopping/internal/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAdapter struct {
	m      sync.Mutex
	values map[string]string
	getErr error
	setErr error
	sets   int
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{values: make(map[string]string)}
}

func (a *mockAdapter) Get(_ context.Context, key string) (string, error) {
	a.m.Lock()
	defer a.m.Unlock()
	if a.getErr != nil {
		return "", a.getErr
	}
	v, ok := a.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (a *mockAdapter) Set(_ context.Context, key, value string) error {
	a.m.Lock()
	defer a.m.Unlock()
	if a.setErr != nil {
		return a.setErr
	}
	a.sets++
	a.values[key] = value
	return nil
}

func (a *mockAdapter) setCount() int {
	a.m.Lock()
	defer a.m.Unlock()
	return a.sets
}

type mockSink struct {
	m      sync.Mutex
	events []notify.Event
}

func (s *mockSink) Notify(_ context.Context, e notify.Event) {
	s.m.Lock()
	defer s.m.Unlock()
	s.events = append(s.events, e)
}

func (s *mockSink) kinds() []domain.Kind {
	s.m.Lock()
	defer s.m.Unlock()
	kinds := make([]domain.Kind, len(s.events))
	for i, e := range s.events {
		kinds[i] = e.Notification.Kind
	}
	return kinds
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func persisted(t *testing.T, a storage.Adapter) []domain.LineItem {
	t.Helper()
	raw, err := a.Get(context.Background(), storage.KeyCart)
	require.NoError(t, err)
	items, err := Decode(raw)
	require.NoError(t, err)
	return items
}

func TestScenario_AddAddUpdateDelete(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	sink := &mockSink{}
	store := NewStore(adapter, WithSink(sink))
	assert.Empty(t, store.Load(ctx))

	n := store.AddToCart(ctx, 1, "Widget", price("9.99"))
	assert.Equal(t, domain.KindSuccess, n.Kind)
	want := []domain.LineItem{{ProductID: 1, Name: "Widget", UnitPrice: price("9.99"), Quantity: 1}}
	if diff := cmp.Diff(want, store.Items(), decimalEqual); diff != "" {
		t.Errorf("after first add (-want +got):\n%s", diff)
	}

	store.AddToCart(ctx, 1, "Widget", price("9.99"))
	require.Len(t, store.Items(), 1)
	assert.Equal(t, 2, store.Items()[0].Quantity)

	n = store.UpdateCartItem(ctx, 1, 5)
	assert.Equal(t, domain.KindWarning, n.Kind)
	assert.Equal(t, 5, store.Items()[0].Quantity)

	n = store.DeleteCartItem(ctx, 1)
	assert.Equal(t, domain.KindDanger, n.Kind)
	assert.Empty(t, store.Items())
	assert.Empty(t, persisted(t, adapter))

	assert.Equal(t, []domain.Kind{
		domain.KindSuccess, domain.KindSuccess, domain.KindWarning, domain.KindDanger,
	}, sink.kinds())
}

func TestAddToCart_SameProductMerges(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())

	for calls := 1; calls <= 20; calls++ {
		store.AddToCart(ctx, 42, "Thing", price("1.50"))

		items := store.Items()
		require.Len(t, items, 1)
		assert.Equal(t, int64(42), items[0].ProductID)
		assert.Equal(t, calls, items[0].Quantity)
	}
}

func TestAddToCart_KeepsFirstSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())

	store.AddToCart(ctx, 1, "Old name", price("3"))
	store.AddToCart(ctx, 1, "New name", price("4"))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Old name", items[0].Name)
	assert.True(t, price("3").Equal(items[0].UnitPrice))
}

func TestAddToCart_AppendsInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())

	store.AddToCart(ctx, 3, "c", price("1"))
	store.AddToCart(ctx, 1, "a", price("1"))
	store.AddToCart(ctx, 2, "b", price("1"))

	ids := []int64{}
	for _, item := range store.Items() {
		ids = append(ids, item.ProductID)
	}
	assert.Equal(t, []int64{3, 1, 2}, ids)
}

func TestAddToCart_Persists(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	store := NewStore(adapter)

	store.AddToCart(ctx, 1, "Widget", price("9.99"))

	assert.JSONEq(t, `[{"id":1,"name":"Widget","price":9.99,"quantity":1}]`, adapter.values[storage.KeyCart])
}

func TestTotalPrice(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())
	assert.True(t, store.TotalPrice().IsZero())

	store.AddToCart(ctx, 1, "ten", price("10"))
	store.UpdateCartItem(ctx, 1, 2)
	store.AddToCart(ctx, 2, "five", price("5"))
	store.UpdateCartItem(ctx, 2, 3)

	assert.True(t, decimal.NewFromInt(35).Equal(store.TotalPrice()), "got %s", store.TotalPrice())
}

func TestTotalPrice_NoFloatDrift(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())

	store.AddToCart(ctx, 1, "a", price("0.1"))
	store.AddToCart(ctx, 2, "b", price("0.2"))

	assert.Equal(t, "0.3", store.TotalPrice().String())
}

func TestUpdateCartItem_RoundTripsThroughLoad(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	store := NewStore(adapter)
	store.AddToCart(ctx, 1, "Widget", price("9.99"))
	store.AddToCart(ctx, 2, "Gadget", price("1"))

	store.UpdateCartItem(ctx, 1, 7)

	fresh := NewStore(adapter)
	items := fresh.Load(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, 7, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestUpdateCartItem_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	store := NewStore(adapter)
	store.AddToCart(ctx, 1, "Widget", price("9.99"))
	before := store.Items()

	n := store.UpdateCartItem(ctx, 99, 4)

	assert.Equal(t, domain.KindWarning, n.Kind)
	assert.Equal(t, "Update successfully", n.Text)
	if diff := cmp.Diff(before, store.Items(), decimalEqual); diff != "" {
		t.Errorf("cart changed (-want +got):\n%s", diff)
	}
}

func TestUpdateCartItem_RejectsQuantityBelowOne(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	sink := &mockSink{}
	store := NewStore(adapter, WithSink(sink))
	store.AddToCart(ctx, 1, "Widget", price("9.99"))
	store.UpdateCartItem(ctx, 1, 3)
	setsBefore := adapter.setCount()

	for _, q := range []int{0, -1} {
		n := store.UpdateCartItem(ctx, 1, q)
		assert.Equal(t, domain.KindWarning, n.Kind)
		assert.Equal(t, "Quantity must be at least 1", n.Text)
	}

	assert.Equal(t, 3, store.Items()[0].Quantity)
	assert.Equal(t, setsBefore, adapter.setCount(), "rejected update must not persist")
	assert.Equal(t, 3, persisted(t, adapter)[0].Quantity)
	assert.Len(t, sink.kinds(), 4)
}

func TestDeleteCartItem_Missing(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	store := NewStore(adapter)
	store.AddToCart(ctx, 1, "Widget", price("9.99"))
	before := store.Items()

	n := store.DeleteCartItem(ctx, 404)

	assert.Equal(t, domain.KindDanger, n.Kind)
	if diff := cmp.Diff(before, store.Items(), decimalEqual); diff != "" {
		t.Errorf("cart changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, persisted(t, adapter), decimalEqual); diff != "" {
		t.Errorf("persisted cart changed (-want +got):\n%s", diff)
	}
}

func TestDeleteCartItem_OnlyMatching(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())
	store.AddToCart(ctx, 1, "a", price("1"))
	store.AddToCart(ctx, 2, "b", price("2"))
	store.AddToCart(ctx, 3, "c", price("3"))

	store.DeleteCartItem(ctx, 2)

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, int64(3), items[1].ProductID)
}

func TestLoad_MissingIsEmpty(t *testing.T) {
	store := NewStore(newMockAdapter())
	assert.Empty(t, store.Load(context.Background()))
}

func TestLoad_CorruptIsEmpty(t *testing.T) {
	adapter := newMockAdapter()
	adapter.values[storage.KeyCart] = `{"not":"a cart"`
	store := NewStore(adapter)

	assert.Empty(t, store.Load(context.Background()))
	assert.True(t, store.TotalPrice().IsZero())
}

func TestLoad_AdapterErrorIsEmpty(t *testing.T) {
	adapter := newMockAdapter()
	adapter.getErr = errors.New("connection refused")
	store := NewStore(adapter)

	assert.Empty(t, store.Load(context.Background()))
}

func TestLoad_ReplacesState(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	store := NewStore(adapter)
	store.AddToCart(ctx, 1, "Widget", price("9.99"))

	adapter.values[storage.KeyCart] = `[{"id":2,"name":"Gadget","price":4,"quantity":3}]`
	items := store.Load(ctx)

	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ProductID)
	assert.True(t, decimal.NewFromInt(12).Equal(store.TotalPrice()))
}

func TestPersistFailure_LeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	store := NewStore(adapter)
	store.AddToCart(ctx, 1, "Widget", price("9.99"))

	adapter.setErr = errors.New("disk full")
	n := store.AddToCart(ctx, 1, "Widget", price("9.99"))

	assert.Equal(t, domain.KindDanger, n.Kind)
	assert.Equal(t, "Could not save cart", n.Text)
	assert.Equal(t, 1, store.Items()[0].Quantity)
	assert.Equal(t, n, store.LastNotification())
}

func TestLastNotification_OnlyMostRecent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())
	assert.True(t, store.LastNotification().IsZero())

	store.AddToCart(ctx, 1, "Widget", price("9.99"))
	store.DeleteCartItem(ctx, 1)
	assert.Equal(t, domain.KindDanger, store.LastNotification().Kind)

	store.DismissNotification()
	assert.True(t, store.LastNotification().IsZero())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	store := NewStore(adapter)
	store.AddToCart(ctx, 1, "Widget", price("9.99"))

	n := store.Clear(ctx)

	assert.Equal(t, domain.KindSuccess, n.Kind)
	assert.Empty(t, store.Items())
	assert.Equal(t, "[]", adapter.values[storage.KeyCart])
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())

	var snaps []Snapshot
	cancel := store.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	store.AddToCart(ctx, 1, "Widget", price("2.50"))
	store.AddToCart(ctx, 1, "Widget", price("2.50"))

	require.Len(t, snaps, 2)
	assert.True(t, price("5").Equal(snaps[1].Total))
	assert.Equal(t, domain.KindSuccess, snaps[1].Notification.Kind)

	cancel()
	store.DeleteCartItem(ctx, 1)
	assert.Len(t, snaps, 2)
}

func TestSubscriberMayReadStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockAdapter())

	var total decimal.Decimal
	store.Subscribe(func(Snapshot) { total = store.TotalPrice() })

	store.AddToCart(ctx, 1, "Widget", price("2.50"))
	assert.True(t, price("2.50").Equal(total))
}

func TestConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	adapter := newMockAdapter()
	store := NewStore(adapter)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AddToCart(ctx, 1, "Widget", price("1"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Items()[0].Quantity)
	assert.Equal(t, 50, persisted(t, adapter)[0].Quantity)
}
