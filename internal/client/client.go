// Package client talks to the remote product service over its REST contract.
// Every method is a single HTTP call: no retries, no caching, no request
// de-duplication.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wichananm65/inventory-catalog/internal/product"
)

const (
	DefaultBaseURL = "http://localhost:8081/api/products"
	DefaultTimeout = 10 * time.Second

	requestIDHeader = "X-Request-ID"
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

type Client struct {
	rc      *resty.Client
	baseURL string
	log     *zap.Logger
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	rc := resty.New()
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	rc.SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	c := &Client{rc: rc, baseURL: baseURL, log: opts.Logger.Named("client")}
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(requestIDHeader) == "" {
			r.SetHeader(requestIDHeader, uuid.NewString())
		}
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.log.Debug("product service call",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("took", resp.Time()),
			zap.String("request_id", resp.Request.Header.Get(requestIDHeader)),
		)
		return nil
	})
	return c
}

// BaseURL returns the collection URL requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// ListAll fetches the full current collection in server order.
func (c *Client) ListAll(ctx context.Context) ([]product.Product, error) {
	resp, err := c.rc.R().SetContext(ctx).Get("")
	if err != nil {
		return nil, transportError(OpList, err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(OpList, resp.StatusCode(), resp.Body())
	}

	out := make([]product.Product, 0)
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, transportError(OpList, err)
	}
	return out, nil
}

// GetOne fetches a single product by id.
func (c *Client) GetOne(ctx context.Context, id int64) (product.Product, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Get("/{id}")
	return c.decodeOne(OpGet, resp, err)
}

// Create submits p without an id and returns the stored record, including
// the id the service assigned.
func (c *Client) Create(ctx context.Context, p product.Product) (product.Product, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p.WithoutID()).
		Post("")
	return c.decodeOne(OpCreate, resp, err)
}

// Update sends the complete record as a replacement for the one stored under id.
func (c *Client) Update(ctx context.Context, id int64, p product.Product) (product.Product, error) {
	p.ID = id
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetBody(p).
		Put("/{id}")
	return c.decodeOne(OpUpdate, resp, err)
}

// Delete removes the product stored under id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Delete("/{id}")
	if err != nil {
		return transportError(OpDelete, err)
	}
	if !resp.IsSuccess() {
		return statusError(OpDelete, resp.StatusCode(), resp.Body())
	}
	return nil
}

func (c *Client) decodeOne(op Op, resp *resty.Response, err error) (product.Product, error) {
	if err != nil {
		return product.Product{}, transportError(op, err)
	}
	if !resp.IsSuccess() {
		return product.Product{}, statusError(op, resp.StatusCode(), resp.Body())
	}

	var p product.Product
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return product.Product{}, transportError(op, err)
	}
	return p, nil
}
