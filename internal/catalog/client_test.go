package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"

	"github.com/nao1215/foilscan/internal/model"
)

type storefront struct {
	mu       sync.Mutex
	products map[string][]map[string]any
	failOn   map[string]int
	requests []string
}

func (s *storefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.URL.RequestURI())

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "collections" || parts[2] != "products.json" {
		http.NotFound(w, r)
		return
	}
	handle := parts[1]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	if fail, ok := s.failOn[handle]; ok && fail == page {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	all := s.products[handle]
	start := (page - 1) * limit
	end := min(start+limit, len(all))
	batch := []map[string]any{}
	if start < len(all) {
		batch = all[start:end]
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"products": batch})
}

func product(id int, title string) map[string]any {
	return map[string]any{
		"id":           id,
		"handle":       fmt.Sprintf("product-%d", id),
		"title":        title,
		"product_type": "",
		"vendor":       "",
		"body_html":    "<p>Fast and <strong>efficient</strong>.</p><p>Aspect Ratio of 9.9</p>",
		"images":       []map[string]any{{"src": "https://cdn.example.com/" + strconv.Itoa(id) + ".jpg"}},
		"variants":     []map[string]any{{"price": "1299.00", "available": true}},
		"tags":         "carbon, front wing ,",
		"created_at":   "2025-01-02T03:04:05Z",
		"updated_at":   "2025-02-02T03:04:05Z",
	}
}

func newTestClient(t *testing.T, sf *storefront, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(sf)
	t.Cleanup(srv.Close)
	base := []Option{
		WithBaseURL(srv.URL),
		WithRateLimit(rate.Inf, 1),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }),
	}
	return NewClient(append(base, opts...)...)
}

func TestFetchCollectionPages(t *testing.T) {
	t.Parallel()

	var wings []map[string]any
	for i := 1; i <= 5; i++ {
		wings = append(wings, product(i, fmt.Sprintf("AXIS Spitfire %d Carbon Hydrofoil Wing", 600+i*100)))
	}
	sf := &storefront{products: map[string][]map[string]any{FrontWings: wings}}
	c := newTestClient(t, sf, WithPageSize(2))

	col, _ := LookupCollection(FrontWings)
	products, err := c.FetchCollection(context.Background(), col)
	if err != nil {
		t.Fatalf("FetchCollection() error: %v", err)
	}
	if len(products) != 5 {
		t.Fatalf("got %d products, expected 5", len(products))
	}
	if len(sf.requests) != 3 {
		t.Errorf("got %d requests, expected 3 pages", len(sf.requests))
	}
	if !strings.Contains(sf.requests[0], "limit=2") || !strings.Contains(sf.requests[0], "page=1") {
		t.Errorf("unexpected first request %q", sf.requests[0])
	}

	want := model.ProductRecord{
		ID:          1,
		Handle:      "product-1",
		Title:       "AXIS Spitfire 700 Carbon Hydrofoil Wing",
		ProductType: "Front Wings",
		Vendor:      DefaultVendor,
		Description: "Fast and efficient. Aspect Ratio of 9.9",
		Image:       "https://cdn.example.com/1.jpg",
		Price:       "1299.00",
		Available:   true,
		URL:         c.baseURL + "/products/product-1",
		Specs: model.ProductSpecs{
			Name:        "AXIS Spitfire 700 Carbon Hydrofoil Wing",
			ProductType: "Front Wings",
			Area:        700,
			Series:      "Spitfire",
		},
		Tags:      []string{"carbon", "front wing"},
		CreatedAt: "2025-01-02T03:04:05Z",
		UpdatedAt: "2025-02-02T03:04:05Z",
	}
	if diff := cmp.Diff(want, products[0]); diff != "" {
		t.Errorf("product mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchCollectionPartialFailure(t *testing.T) {
	t.Parallel()

	var masts []map[string]any
	for i := 1; i <= 3; i++ {
		masts = append(masts, product(i, "AXIS 75cm Carbon Mast"))
	}
	sf := &storefront{
		products: map[string][]map[string]any{Masts: masts},
		failOn:   map[string]int{Masts: 2},
	}
	c := newTestClient(t, sf, WithPageSize(2))

	products, err := c.FetchCollection(context.Background(), Collection{Handle: Masts, Name: "Masts"})
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("got error %v, expected ErrUnexpectedStatus", err)
	}
	if len(products) != 2 {
		t.Errorf("got %d products, expected the 2 from page 1", len(products))
	}
}

func TestFetchCollectionPageLimit(t *testing.T) {
	t.Parallel()

	var wings []map[string]any
	for i := 1; i <= 6; i++ {
		wings = append(wings, product(i, "AXIS ART 999"))
	}
	sf := &storefront{products: map[string][]map[string]any{FrontWings: wings}}
	c := newTestClient(t, sf, WithPageSize(2), WithMaxPages(2))

	products, err := c.FetchCollection(context.Background(), Collection{Handle: FrontWings, Name: "Front Wings"})
	if !errors.Is(err, ErrTooManyPages) {
		t.Fatalf("got error %v, expected ErrTooManyPages", err)
	}
	if len(products) != 4 {
		t.Errorf("got %d products, expected 4", len(products))
	}
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	sf := &storefront{
		products: map[string][]map[string]any{
			FrontWings: {product(1, "AXIS ART 999"), product(2, "AXIS BSC 1060")},
			RearWings:  {product(3, "AXIS Progressive 400 Rear Wing")},
			Masts:      {product(4, "AXIS 900mm Aluminium Mast")},
		},
		failOn: map[string]int{Fuselages: 1},
	}
	c := newTestClient(t, sf)

	cat, err := c.FetchAll(context.Background(), DefaultCollections(), 2)
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("got error %v, expected the fuselage failure", err)
	}
	if cat.Meta.Version != CatalogVersion || cat.Meta.Source != c.baseURL {
		t.Errorf("unexpected meta %+v", cat.Meta)
	}
	if cat.TotalProducts() != 4 {
		t.Errorf("got %d products, expected 4", cat.TotalProducts())
	}
	if got := cat.Collections[Fuselages]; got.Count != 0 || got.Name != "Fuselages" {
		t.Errorf("failed collection should be present and empty, got %+v", got)
	}
	if got := cat.Collections[RearWings].Products[0].Specs.Style; got != "Progressive" {
		t.Errorf("got rear wing style %q", got)
	}
	if got := cat.Collections[Masts].Products[0].Specs; got.LengthCM != 90 || got.Material != "Aluminium" {
		t.Errorf("got mast specs %+v", got)
	}
}

func TestFetchHonoursCancellation(t *testing.T) {
	t.Parallel()

	sf := &storefront{products: map[string][]map[string]any{FrontWings: {product(1, "AXIS ART 999")}}}
	c := newTestClient(t, sf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.FetchCollection(ctx, Collection{Handle: FrontWings}); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestTagsUnmarshal(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		`["a","b"]`: {"a", "b"},
		`"a, b ,,"`: {"a", "b"},
		`""`:        {},
	}
	for in, want := range tests {
		var got tags
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", in, err)
		}
		if diff := cmp.Diff(want, []string(got)); diff != "" {
			t.Errorf("Unmarshal(%s) mismatch (-want +got):\n%s", in, diff)
		}
	}
	var bad tags
	if err := json.Unmarshal([]byte(`42`), &bad); err == nil {
		t.Error("expected an error for a number")
	}
}
