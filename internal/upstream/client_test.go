package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trolley-watch/internal/models"
)

func newTestClient(baseURL string, credentials CredentialProvider) *Client {
	return NewClient(Options{BaseURL: baseURL, Timeout: 2 * time.Second, DisableTransport: true}, credentials)
}

func TestFetchCartWithoutCredentialSendsNothing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, StaticCredential(""))
	if _, err := client.FetchCart(context.Background(), "cart-1"); !errors.Is(err, ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing, got %v", err)
	}
	if err := client.SyncAudit(context.Background(), "audit-1", nil); !errors.Is(err, ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("no request should be sent without credential")
	}
}

func TestFetchCartDecodesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/pos/smart-cart/cart-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"cart":{"_id":"cart-1","status":"active","items":[{"quantity":2,"product":{"_id":"A","pricing":[{"selling_price":50}]}}],"auditId":{"_id":"audit-1","items":[]}}}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, StaticCredential("secret"))
	cart, err := client.FetchCart(context.Background(), "cart-1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if cart.ID != "cart-1" || len(cart.Items) != 1 || cart.AuditID() != "audit-1" {
		t.Fatalf("unexpected cart: %+v", cart)
	}
}

func TestFetchCartNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, StaticCredential("secret"))
	if _, err := client.FetchCart(context.Background(), "missing"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestFetchCartServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, StaticCredential("secret"))
	if _, err := client.FetchCart(context.Background(), "cart-1"); !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, BreakerFailures: 2, BreakerOpenFor: time.Minute, DisableTransport: true}, StaticCredential("secret"))
	for i := 0; i < 3; i++ {
		if _, err := client.FetchCart(context.Background(), "cart-1"); !errors.Is(err, ErrNetworkFailure) {
			t.Fatalf("attempt %d: expected ErrNetworkFailure, got %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected breaker to stop after 2 requests, got %d", got)
	}
}

func TestCanceledRequestsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pos/smart-cart/slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`{"cart":{"_id":"cart-ok","items":[]}}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, BreakerFailures: 2, BreakerOpenFor: time.Minute, DisableTransport: true}, StaticCredential("secret"))
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := client.FetchCart(ctx, "slow")
		if !errors.Is(err, ErrNetworkFailure) || !errors.Is(err, context.Canceled) {
			t.Fatalf("fetch %d: expected canceled network failure, got %v", i, err)
		}
		cancel()
	}
	if _, err := client.FetchCart(context.Background(), "cart-ok"); err != nil {
		t.Fatalf("fetch after canceled requests failed: %v", err)
	}
}

func TestSyncAuditNotFoundIsAuditError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, BreakerFailures: 1, BreakerOpenFor: time.Minute, DisableTransport: true}, StaticCredential("secret"))
	for i := 0; i < 2; i++ {
		err := client.SyncAudit(context.Background(), "audit-9", nil)
		if !errors.Is(err, ErrAuditNotFound) || errors.Is(err, ErrCartNotFound) {
			t.Fatalf("attempt %d: expected ErrAuditNotFound, got %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("404 should not open the breaker, got %d requests", got)
	}
}

func TestSyncAuditPostsProducts(t *testing.T) {
	var body struct {
		Products []models.CartLine `json:"products"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pos/smart-cart/audit-sync/audit-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body failed: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL+"/", StaticCredential("secret"))
	lines := []models.CartLine{{Product: models.Product{ID: "A"}, Quantity: 3}}
	if err := client.SyncAudit(context.Background(), "audit-1", lines); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(body.Products) != 1 || body.Products[0].Product.ID != "A" || body.Products[0].Quantity != 3 {
		t.Fatalf("unexpected body: %+v", body.Products)
	}
}

func TestChainCredentialsFallback(t *testing.T) {
	failing := CredentialFunc(func(context.Context) (string, error) {
		return "", errors.New("redis down")
	})
	chain := ChainCredentials(failing, StaticCredential(""), StaticCredential("fallback"))
	token, err := chain.Credential(context.Background())
	if err != nil || token != "fallback" {
		t.Fatalf("unexpected credential: %q %v", token, err)
	}

	empty := ChainCredentials(failing)
	if token, err := empty.Credential(context.Background()); token != "" || err == nil {
		t.Fatalf("expected error from chain, got %q %v", token, err)
	}
}
