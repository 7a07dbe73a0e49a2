package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/models"
)

func testProduct(id string, price float64) models.Product {
	return models.Product{
		ID:      id,
		Name:    "product " + id,
		Code:    "code-" + id,
		Pricing: []models.Pricing{{SellingPrice: models.NewMoneyFromFloat(price), MRP: models.NewMoneyFromFloat(price)}},
	}
}

func testCart() *models.Cart {
	return &models.Cart{
		ID:     "cart-1",
		Status: constants.CartStatusActive,
		Items: []models.CartLine{
			{Product: testProduct("A", 50), Quantity: 1, AddedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		},
		Audit: &models.Audit{
			ID: "audit-1",
			Items: []models.CartLine{
				{Product: testProduct("A", 50), Quantity: 1, AddedAt: time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)},
			},
		},
		Flags: []models.Issue{{Issue: "weight mismatch", FlaggedAt: time.Date(2024, 1, 1, 10, 6, 0, 0, time.UTC)}},
	}
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	if err := store.Install(testCart()); err != nil {
		t.Fatalf("install cart failed: %v", err)
	}
	return store
}

type stubFetcher struct {
	cart  *models.Cart
	err   error
	calls int
}

func (f *stubFetcher) FetchCart(_ context.Context, _ string) (*models.Cart, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.cart.Clone(), nil
}

func TestStoreLoadInstallsSnapshot(t *testing.T) {
	store := NewStore()
	if store.State() != constants.LoadStateNoCart {
		t.Fatalf("unexpected initial state: %s", store.State())
	}
	fetcher := &stubFetcher{cart: testCart()}
	snapshot, err := store.Load(context.Background(), fetcher, "cart-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snapshot.ID != "cart-1" || store.CartID() != "cart-1" {
		t.Fatalf("unexpected cart id: %s / %s", snapshot.ID, store.CartID())
	}
	if store.State() != constants.LoadStateLoaded {
		t.Fatalf("unexpected state: %s", store.State())
	}
}

func TestStoreLoadFailureKeepsPriorSnapshot(t *testing.T) {
	store := loadedStore(t)
	fetchErr := errors.New("network down")
	if _, err := store.Load(context.Background(), &stubFetcher{err: fetchErr}, "cart-1"); !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if !store.Loaded() || store.CartID() != "cart-1" {
		t.Fatalf("prior snapshot should be kept")
	}
	if store.State() != constants.LoadStateLoaded {
		t.Fatalf("state should settle back to loaded, got %s", store.State())
	}

	empty := NewStore()
	if _, err := empty.Load(context.Background(), &stubFetcher{err: fetchErr}, "cart-1"); err == nil {
		t.Fatalf("expected error")
	}
	if empty.State() != constants.LoadStateNoCart {
		t.Fatalf("unexpected state: %s", empty.State())
	}
}

func TestStoreLoadMatchesStepwiseLoad(t *testing.T) {
	fetchErr := errors.New("network down")
	cases := []struct {
		name    string
		prior   bool
		fetcher *stubFetcher
	}{
		{"success_from_empty", false, &stubFetcher{cart: testCart()}},
		{"failure_from_empty", false, &stubFetcher{err: fetchErr}},
		{"failure_keeps_prior", true, &stubFetcher{err: fetchErr}},
		{"invalid_snapshot", true, &stubFetcher{cart: &models.Cart{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sync, stepwise := NewStore(), NewStore()
			if tc.prior {
				sync, stepwise = loadedStore(t), loadedStore(t)
			}
			_, syncErr := sync.Load(context.Background(), tc.fetcher, "cart-1")

			stepwise.BeginLoad()
			if stepwise.State() != constants.LoadStateLoading {
				t.Fatalf("expected loading state, got %s", stepwise.State())
			}
			snapshot, stepErr := tc.fetcher.FetchCart(context.Background(), "cart-1")
			if stepErr != nil {
				stepwise.FailLoad()
			} else {
				stepErr = stepwise.Install(snapshot)
			}

			if (syncErr == nil) != (stepErr == nil) {
				t.Fatalf("error mismatch: %v vs %v", syncErr, stepErr)
			}
			if sync.State() != stepwise.State() || sync.CartID() != stepwise.CartID() {
				t.Fatalf("state mismatch: %s/%s vs %s/%s", sync.State(), sync.CartID(), stepwise.State(), stepwise.CartID())
			}
		})
	}
}

func TestStoreInstallRejectsMissingID(t *testing.T) {
	store := NewStore()
	if err := store.Install(&models.Cart{}); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("expected ErrSnapshotInvalid, got %v", err)
	}
	if store.Loaded() {
		t.Fatalf("invalid snapshot should not be installed")
	}
}

func TestStoreInstallMergesDuplicateLines(t *testing.T) {
	snapshot := testCart()
	snapshot.Items = append(snapshot.Items, models.CartLine{Product: testProduct("A", 50), Quantity: 4})
	store := NewStore()
	if err := store.Install(snapshot); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	items := store.Snapshot().Items
	if len(items) != 1 || items[0].Quantity != 4 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if !items[0].AddedAt.Equal(snapshot.Items[0].AddedAt) {
		t.Fatalf("first added_at should be kept")
	}
}

func TestStoreApplyWithoutCart(t *testing.T) {
	store := NewStore()
	effects, err := store.Apply(CartUpdate{CartID: "cart-1", Product: testProduct("B", 10), Quantity: 1})
	if !errors.Is(err, ErrNoCartLoaded) || len(effects) != 0 {
		t.Fatalf("expected no-op with ErrNoCartLoaded, got %v %v", effects, err)
	}
}

func TestStoreCartUpdateReplacesQuantity(t *testing.T) {
	store := loadedStore(t)
	effects, err := store.Apply(CartUpdate{CartID: "cart-1", Product: testProduct("A", 50), Quantity: 5, AddedAt: time.Now()})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	items := store.Snapshot().Items
	if len(items) != 1 || items[0].Product.ID != "A" || items[0].Quantity != 5 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if len(effects) != 1 || effects[0].Severity != constants.SeveritySuccess {
		t.Fatalf("unexpected effects: %+v", effects)
	}
	if effects[0].Message != "New item added to cart: product A" {
		t.Fatalf("unexpected message: %s", effects[0].Message)
	}
}

func TestStoreCartUpdateSequenceKeepsFirstAddedAt(t *testing.T) {
	store := NewStore()
	if err := store.Install(&models.Cart{ID: "cart-1"}); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	first := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, qty := range []int{1, 3, 2, 7} {
		ev := CartUpdate{CartID: "cart-1", Product: testProduct("X", 1), Quantity: qty, AddedAt: first.Add(time.Duration(i) * time.Minute)}
		if _, err := store.Apply(ev); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
	}
	items := store.Snapshot().Items
	if len(items) != 1 {
		t.Fatalf("expected one line, got %d", len(items))
	}
	if items[0].Quantity != 7 {
		t.Fatalf("expected last quantity 7, got %d", items[0].Quantity)
	}
	if !items[0].AddedAt.Equal(first) {
		t.Fatalf("expected first added_at, got %s", items[0].AddedAt)
	}
}

func TestStoreCartUpdateAppendsNewProduct(t *testing.T) {
	store := loadedStore(t)
	if _, err := store.Apply(CartUpdate{CartID: "cart-1", Product: testProduct("B", 30), Quantity: 2}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	items := store.Snapshot().Items
	if len(items) != 2 || items[0].Product.ID != "A" || items[1].Product.ID != "B" {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestStoreApplyIsIdempotent(t *testing.T) {
	events := []Event{
		CartUpdate{CartID: "cart-1", Product: testProduct("B", 30), Quantity: 2},
		FraudUpdate{CartID: "cart-1", AuditID: "audit-1", Product: testProduct("C", 5), Quantity: 3},
	}
	for _, ev := range events {
		once := loadedStore(t)
		twice := loadedStore(t)
		if _, err := once.Apply(ev); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := twice.Apply(ev); err != nil {
				t.Fatalf("apply failed: %v", err)
			}
		}
		a, b := once.Snapshot(), twice.Snapshot()
		if len(a.Items) != len(b.Items) || len(a.AuditItems()) != len(b.AuditItems()) {
			t.Fatalf("%s not idempotent: %+v vs %+v", ev.Kind(), a, b)
		}
		for i := range a.AuditItems() {
			if a.AuditItems()[i].Quantity != b.AuditItems()[i].Quantity {
				t.Fatalf("%s audit quantity differs", ev.Kind())
			}
		}
	}
}

func TestStoreRoutingMismatchIsNoop(t *testing.T) {
	store := loadedStore(t)
	before := store.Snapshot()
	events := []Event{
		CartUpdate{CartID: "cart-2", Product: testProduct("B", 30), Quantity: 2},
		FraudUpdate{CartID: "cart-2", AuditID: "audit-1", Product: testProduct("B", 30), Quantity: 2},
		FraudAlert{CartID: "cart-2"},
		PurchaseComplete{CartID: "cart-2", TrolleyCode: "T-1"},
	}
	for _, ev := range events {
		effects, err := store.Apply(ev)
		if !errors.Is(err, ErrRoutingMismatch) || len(effects) != 0 {
			t.Fatalf("%s: expected silent mismatch, got %v %v", ev.Kind(), effects, err)
		}
	}
	after := store.Snapshot()
	if len(after.Items) != len(before.Items) || len(after.AuditItems()) != len(before.AuditItems()) || len(after.Flags) != len(before.Flags) {
		t.Fatalf("store changed on mismatched events")
	}
}

func TestStoreFraudUpdateAuditMismatchIsNoop(t *testing.T) {
	store := loadedStore(t)
	_, err := store.Apply(FraudUpdate{CartID: "cart-1", AuditID: "audit-x", Product: testProduct("B", 30), Quantity: 3})
	if !errors.Is(err, ErrRoutingMismatch) {
		t.Fatalf("expected ErrRoutingMismatch, got %v", err)
	}
	if len(store.Snapshot().AuditItems()) != 1 {
		t.Fatalf("audit items changed")
	}
}

func TestStoreFraudUpdateAppendsInOrder(t *testing.T) {
	store := loadedStore(t)
	effects, err := store.Apply(FraudUpdate{CartID: "cart-1", AuditID: "audit-1", Product: testProduct("B", 30), Quantity: 3})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	audit := store.Snapshot().AuditItems()
	if len(audit) != 2 || audit[0].Product.ID != "A" || audit[0].Quantity != 1 || audit[1].Product.ID != "B" || audit[1].Quantity != 3 {
		t.Fatalf("unexpected audit items: %+v", audit)
	}
	if effects[0].Severity != constants.SeverityError || effects[0].Message != "Item added after verification: product B" {
		t.Fatalf("unexpected effect: %+v", effects[0])
	}
	if len(store.Snapshot().Items) != 1 {
		t.Fatalf("fraud update must not touch cart items")
	}
}

func TestStoreNotificationOnlyEvents(t *testing.T) {
	store := loadedStore(t)
	effects, err := store.Apply(FraudAlert{CartID: "cart-1"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !effects[0].HighPriority || effects[0].Severity != constants.SeverityWarning {
		t.Fatalf("unexpected alert effect: %+v", effects[0])
	}

	effects, err = store.Apply(PurchaseComplete{CartID: "cart-1", TrolleyCode: "T-42"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !effects[0].RefreshRequired {
		t.Fatalf("purchase complete should require refresh")
	}
	if effects[0].Message != "Purchase complete on trolley with code: T-42. Refresh to see changes!" {
		t.Fatalf("unexpected message: %s", effects[0].Message)
	}
	if store.Snapshot().Status != constants.CartStatusActive {
		t.Fatalf("status must only change via reload")
	}
}

func TestStoreTotalPrice(t *testing.T) {
	store := NewStore()
	if !store.TotalPrice().IsZero() {
		t.Fatalf("empty store total should be zero")
	}
	if err := store.Install(&models.Cart{ID: "cart-1"}); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if !store.TotalPrice().IsZero() {
		t.Fatalf("empty items total should be zero")
	}
	_, _ = store.Apply(CartUpdate{CartID: "cart-1", Product: testProduct("A", 50), Quantity: 2})
	_, _ = store.Apply(CartUpdate{CartID: "cart-1", Product: testProduct("B", 30), Quantity: 1})
	if got := store.TotalPrice().String(); got != "130.00" {
		t.Fatalf("expected 130.00, got %s", got)
	}
}

func TestLinesTotalDefaults(t *testing.T) {
	lines := []models.CartLine{
		{Product: models.Product{ID: "no-price"}, Quantity: 3},
		{Product: testProduct("zero-qty", 12.5), Quantity: 0},
	}
	if got := LinesTotal(lines).String(); got != "12.50" {
		t.Fatalf("expected 12.50, got %s", got)
	}
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	store := loadedStore(t)
	snapshot := store.Snapshot()
	snapshot.Items[0].Quantity = 99
	snapshot.Items[0].Product.Pricing[0].SellingPrice = models.NewMoneyFromFloat(1)
	if store.Snapshot().Items[0].Quantity != 1 {
		t.Fatalf("snapshot mutation leaked into store")
	}
	if store.TotalPrice().String() != "50.00" {
		t.Fatalf("pricing mutation leaked into store")
	}
}
