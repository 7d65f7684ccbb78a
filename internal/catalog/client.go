package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/foilscan/internal/model"
)

// Defaults for the storefront client.
const (
	DefaultPageSize    = 250
	DefaultMaxPages    = 40
	DefaultHTTPTimeout = 30 * time.Second
	DefaultUserAgent   = "foilscan-catalog/1.0"

	// CatalogVersion is the layout version of the catalog document.
	CatalogVersion = "1.0"
)

// Client fetches products from the storefront.
type Client struct {
	http     *resty.Client
	baseURL  string
	limiter  *rate.Limiter
	pageSize int
	maxPages int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the storefront address.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithRateLimit sets the request rate. The default is one request per
// second without bursts.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithPageSize sets the number of products requested per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMaxPages bounds the pages fetched per collection.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock overrides time.Now for the catalog timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a storefront client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     resty.New(),
		baseURL:  DefaultBaseURL,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		now:      time.Now,
	}
	c.http.SetTimeout(DefaultHTTPTimeout)
	c.http.SetHeader("User-Agent", DefaultUserAgent)
	c.http.SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.http.SetBaseURL(c.baseURL)
	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})
	return c
}

// FetchCollection returns every product of col. On error it returns the
// products fetched so far together with the error.
func (c *Client) FetchCollection(ctx context.Context, col Collection) ([]model.ProductRecord, error) {
	products := make([]model.ProductRecord, 0)

	for page := 1; ; page++ {
		if page > c.maxPages {
			return products, fmt.Errorf("%w: %s", ErrTooManyPages, col.Handle)
		}

		batch, err := c.fetchPage(ctx, col.Handle, page)
		if err != nil {
			return products, fmt.Errorf("fetch %s page %d: %w", col.Handle, page, err)
		}
		for _, p := range batch {
			products = append(products, cleanProduct(p, col, c.baseURL))
		}

		c.logger.Debug("catalog page fetched",
			"collection", col.Handle,
			"page", page,
			"products", len(batch),
		)
		if len(batch) < c.pageSize {
			return products, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, handle string, page int) ([]shopifyProduct, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("handle", handle).
		SetQueryParams(map[string]string{
			"limit": strconv.Itoa(c.pageSize),
			"page":  strconv.Itoa(page),
		}).
		Get("/collections/{handle}/products.json")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status())
	}

	var body productsPage
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return body.Products, nil
}

// FetchAll fetches collections concurrently into a catalog document.
//
// Collections are fetched even when others fail; the returned catalog
// holds whatever was retrieved and the error joins every failure.
func (c *Client) FetchAll(ctx context.Context, collections []Collection, concurrency int) (*model.Catalog, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	cat := &model.Catalog{
		Meta: model.CatalogMeta{
			CapturedAt: c.now().UTC(),
			Source:     c.baseURL,
			Version:    CatalogVersion,
		},
		Collections: make(map[string]model.CollectionData, len(collections)),
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for _, col := range collections {
		g.Go(func() error {
			products, err := c.FetchCollection(ctx, col)

			mu.Lock()
			defer mu.Unlock()
			cat.Collections[col.Handle] = model.CollectionData{
				Name:     col.Name,
				Count:    len(products),
				Products: products,
			}
			if err != nil {
				c.logger.Warn("collection fetch failed",
					"collection", col.Handle,
					"products", len(products),
					"error", err,
				)
				errs = append(errs, err)
				return nil
			}
			c.logger.Info("collection fetched",
				"collection", col.Handle,
				"products", len(products),
			)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // errors are collected per collection

	return cat, errors.Join(errs...)
}
