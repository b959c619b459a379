// Package catalog owns the in-memory product snapshot shown by the front end
// and keeps it in sync with the product service: every mutation is followed
// by a full reload, never by a local merge.
package catalog

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/wichananm65/inventory-catalog/internal/client"
	"github.com/wichananm65/inventory-catalog/internal/product"
)

// API is the subset of the product service client the controller needs.
type API interface {
	ListAll(ctx context.Context) ([]product.Product, error)
	GetOne(ctx context.Context, id int64) (product.Product, error)
	Create(ctx context.Context, p product.Product) (product.Product, error)
	Update(ctx context.Context, id int64, p product.Product) (product.Product, error)
	Delete(ctx context.Context, id int64) error
}

var _ API = (*client.Client)(nil)

// ErrMutationInFlight is returned when a save or delete targets an entity that
// already has a mutation outstanding.
var ErrMutationInFlight = errors.New("another change to this product is still in progress")

// ErrFormClosed is returned by Save when no create or edit form is open.
var ErrFormClosed = errors.New("no product form is open")

// ConfirmFunc asks the user whether p should really be deleted.
type ConfirmFunc func(p product.Product) bool

// ErrInvalidID is returned by Remove for ids the service can never assign.
var ErrInvalidID = errors.New("invalid product id")

// createKey is the in-flight key shared by all creates. Service ids are
// positive, so it never collides with a product's key.
const createKey int64 = -1

type Controller struct {
	api API
	log *zap.Logger

	mu         sync.Mutex
	products   []product.Product
	loading    bool
	searchTerm string
	form       FormMode
	target     product.Product
	formSeq    uint64
	lastErr    error

	// refresh ordering: issued counts started refreshes, applied is the
	// sequence number of the snapshot currently held.
	issued  uint64
	applied uint64

	inFlight map[int64]struct{}
}

func NewController(api API, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		api:      api,
		log:      log.Named("catalog"),
		loading:  true,
		inFlight: make(map[int64]struct{}),
	}
}

// Refresh reloads the full collection. On failure the previous snapshot is
// kept and the error is logged and recorded. A response that arrives after a
// later-issued refresh has already been applied is dropped.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	products, err := c.api.ListAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		if seq < c.applied {
			c.log.Debug("stale refresh failed", zap.Uint64("seq", seq), zap.Uint64("applied", c.applied), zap.Error(err))
			return err
		}
		c.lastErr = err
		c.log.Warn("refresh failed, keeping previous snapshot",
			zap.Error(err),
			zap.Int("snapshot_size", len(c.products)),
		)
		return err
	}
	if seq < c.applied {
		c.log.Debug("dropping stale refresh", zap.Uint64("seq", seq), zap.Uint64("applied", c.applied))
		return nil
	}

	c.applied = seq
	c.products = products
	c.lastErr = nil
	c.log.Debug("snapshot replaced", zap.Uint64("seq", seq), zap.Int("size", len(products)))
	return nil
}

// OpenCreate shows the form with a blank product.
func (c *Controller) OpenCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = FormCreating
	c.target = product.Blank()
	c.formSeq++
}

// OpenEdit shows the form pre-filled with an exact copy of product id. The
// snapshot is consulted first; ids not in it are fetched from the service.
func (c *Controller) OpenEdit(ctx context.Context, id int64) error {
	c.mu.Lock()
	p, ok := c.find(id)
	c.mu.Unlock()

	if !ok {
		var err error
		p, err = c.api.GetOne(ctx, id)
		if err != nil {
			c.fail("open edit form", err, zap.Int64("id", id))
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = FormEditing
	c.target = p
	c.formSeq++
	return nil
}

// CloseForm hides the form and drops the editing target.
func (c *Controller) CloseForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeFormLocked()
}

// Save creates or updates submitted depending on whether the form was opened
// for an existing product. On success the form closes and the snapshot is
// reloaded; on failure the form stays open.
func (c *Controller) Save(ctx context.Context, submitted product.Product) error {
	c.mu.Lock()
	if c.form == FormHidden {
		c.mu.Unlock()
		return ErrFormClosed
	}
	id := c.target.ID
	formSeq := c.formSeq
	key := createKey
	if c.target.HasID() {
		key = id
	}
	if !c.acquireLocked(key) {
		c.mu.Unlock()
		c.log.Warn("save rejected, mutation in flight", zap.Int64("id", id))
		return ErrMutationInFlight
	}
	c.mu.Unlock()
	defer c.release(key)

	var (
		saved product.Product
		err   error
	)
	if key != createKey {
		saved, err = c.api.Update(ctx, id, submitted)
	} else {
		saved, err = c.api.Create(ctx, submitted)
	}
	if err != nil {
		c.fail("save product", err, zap.Int64("id", id))
		return err
	}
	c.log.Info("product saved", zap.Int64("id", saved.ID), zap.Bool("created", key == createKey))

	c.mu.Lock()
	// leave a form opened while the save was running alone
	if c.formSeq == formSeq {
		c.closeFormLocked()
	}
	c.lastErr = nil
	c.mu.Unlock()

	// the save already succeeded; a failed reload is recorded by Refresh itself
	_ = c.Refresh(ctx)
	return nil
}

// Remove deletes product id once confirm agrees. Declining issues no request.
// A successful delete, or one the service reports as already gone, is
// followed by a reload.
func (c *Controller) Remove(ctx context.Context, id int64, confirm ConfirmFunc) error {
	if id <= 0 {
		return ErrInvalidID
	}

	c.mu.Lock()
	p, ok := c.find(id)
	c.mu.Unlock()
	if !ok {
		p = product.Product{ID: id}
	}

	if confirm == nil || !confirm(p) {
		c.log.Debug("delete cancelled", zap.Int64("id", id))
		return nil
	}

	c.mu.Lock()
	if !c.acquireLocked(id) {
		c.mu.Unlock()
		c.log.Warn("delete rejected, mutation in flight", zap.Int64("id", id))
		return ErrMutationInFlight
	}
	c.mu.Unlock()
	defer c.release(id)

	err := c.api.Delete(ctx, id)
	switch {
	case err == nil:
		c.log.Info("product deleted", zap.Int64("id", id))
	case errors.Is(err, client.ErrNotFound):
		c.log.Info("product already gone", zap.Int64("id", id))
	default:
		c.fail("delete product", err, zap.Int64("id", id))
		return err
	}

	_ = c.Refresh(ctx)
	return nil
}

// SetSearchTerm changes the filter applied to the snapshot. It never triggers a request.
func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchTerm = term
}

// ClearError dismisses the last recorded failure.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
}

// Products returns a copy of the full snapshot.
func (c *Controller) Products() []product.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]product.Product(nil), c.products...)
}

// State returns everything needed to render the catalog. Filtered products
// and the summary are recomputed from the snapshot on each call.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Products:   Filter(c.products, c.searchTerm),
		Summary:    Summarize(c.products),
		Loading:    c.loading,
		SearchTerm: c.searchTerm,
		Form:       c.form,
		Err:        c.lastErr,
	}
	if c.form != FormHidden {
		target := c.target
		s.Target = &target
	}
	return s
}

func (c *Controller) find(id int64) (product.Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return product.Product{}, false
}

func (c *Controller) closeFormLocked() {
	c.form = FormHidden
	c.target = product.Product{}
}

func (c *Controller) acquireLocked(key int64) bool {
	if _, busy := c.inFlight[key]; busy {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

func (c *Controller) release(key int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}

func (c *Controller) fail(op string, err error, fields ...zap.Field) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.log.Warn(op+" failed", append(fields, zap.Error(err))...)
}
