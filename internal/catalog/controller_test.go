package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wichananm65/inventory-catalog/internal/client"
	"github.com/wichananm65/inventory-catalog/internal/product"
)

// fakeAPI serves the controller from an in-memory repository and lets tests
// inject failures or hold calls open.
type fakeAPI struct {
	repo *product.InMemoryRepository

	mu      sync.Mutex
	calls   map[string]int
	listErr error
	saveErr error
	delErr  error
	// listFn, when set, replaces the repository-backed list; n is the 1-based call number.
	listFn func(n int) ([]product.Product, error)
	// hold, when set, blocks Create/Update/Delete until closed; entered is signalled first.
	hold    chan struct{}
	entered chan struct{}
}

func newFakeAPI(seed ...product.Product) *fakeAPI {
	return &fakeAPI{repo: product.NewInMemoryRepository(seed), calls: map[string]int{}}
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) record(op string) (int, error) {
	f.mu.Lock()
	f.calls[op]++
	n := f.calls[op]
	var err error
	switch op {
	case "list":
		err = f.listErr
	case "create", "update":
		err = f.saveErr
	case "delete":
		err = f.delErr
	}
	hold, entered := f.hold, f.entered
	f.mu.Unlock()

	if hold != nil && op != "list" && op != "get" {
		if entered != nil {
			entered <- struct{}{}
		}
		<-hold
	}
	return n, err
}

func (f *fakeAPI) ListAll(ctx context.Context) ([]product.Product, error) {
	n, err := f.record("list")
	if f.listFn != nil {
		return f.listFn(n)
	}
	if err != nil {
		return nil, err
	}
	return f.repo.List(ctx)
}

func (f *fakeAPI) GetOne(ctx context.Context, id int64) (product.Product, error) {
	f.record("get")
	p, err := f.repo.GetByID(ctx, id)
	if errors.Is(err, product.ErrNotFound) {
		return p, &client.Error{Op: client.OpGet, Kind: client.KindNotFound, StatusCode: 404}
	}
	return p, err
}

func (f *fakeAPI) Create(ctx context.Context, p product.Product) (product.Product, error) {
	if _, err := f.record("create"); err != nil {
		return product.Product{}, err
	}
	return f.repo.Create(ctx, p)
}

func (f *fakeAPI) Update(ctx context.Context, id int64, p product.Product) (product.Product, error) {
	if _, err := f.record("update"); err != nil {
		return product.Product{}, err
	}
	return f.repo.Update(ctx, id, p)
}

func (f *fakeAPI) Delete(ctx context.Context, id int64) error {
	if _, err := f.record("delete"); err != nil {
		return err
	}
	if err := f.repo.Delete(ctx, id); errors.Is(err, product.ErrNotFound) {
		return &client.Error{Op: client.OpDelete, Kind: client.KindNotFound, StatusCode: 404}
	}
	return nil
}

func seedProducts() []product.Product {
	return []product.Product{
		{ID: 1, Name: "Widget", Description: "small", Price: decimal.RequireFromString("2.50"), Category: "Tools", StockQuantity: 3},
		{ID: 2, Name: "Gadget", Description: "shiny", Price: decimal.RequireFromString("10"), Category: "Electronics", StockQuantity: 0},
	}
}

func TestController_InitialStateIsLoading(t *testing.T) {
	c := NewController(newFakeAPI(), nil)
	s := c.State()
	if !s.Loading || len(s.Products) != 0 || s.Form != FormHidden || s.Target != nil {
		t.Fatalf("unexpected initial state %+v", s)
	}
}

func TestRefresh_ReplacesSnapshot(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, nil)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	s := c.State()
	if s.Loading {
		t.Fatalf("loading should be cleared after refresh")
	}
	if len(s.Products) != 2 || s.Products[0].ID != 1 || s.Products[1].ID != 2 {
		t.Fatalf("snapshot should keep server order, got %+v", s.Products)
	}
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, zap.New(core))
	ctx := context.Background()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := c.Products()

	api.mu.Lock()
	api.listErr = &client.Error{Op: client.OpList, Kind: client.KindTransport, Err: errors.New("connection refused")}
	api.mu.Unlock()
	_, _ = api.repo.Create(ctx, product.Product{Name: "unseen"})

	if err := c.Refresh(ctx); !errors.Is(err, client.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	after := c.Products()
	if len(after) != len(before) {
		t.Fatalf("failed refresh changed the snapshot: %+v", after)
	}
	if c.State().Err == nil {
		t.Fatalf("failure should be recorded for display")
	}
	if logs.FilterMessage("refresh failed, keeping previous snapshot").Len() != 1 {
		t.Fatalf("failed refresh should be logged, got %v", logs.All())
	}

	c.ClearError()
	if c.State().Err != nil {
		t.Fatalf("ClearError should drop the recorded failure")
	}
}

func TestRefresh_DropsStaleResponse(t *testing.T) {
	api := newFakeAPI()
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	api.listFn = func(n int) ([]product.Product, error) {
		if n == 1 {
			close(firstStarted)
			<-release
			return []product.Product{{ID: 1, Name: "old"}}, nil
		}
		return []product.Product{{ID: 1, Name: "new"}, {ID: 2, Name: "added"}}, nil
	}
	c := NewController(api, nil)

	done := make(chan struct{})
	go func() {
		_ = c.Refresh(context.Background())
		close(done)
	}()
	<-firstStarted

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(release)
	<-done

	got := c.Products()
	if len(got) != 2 || got[0].Name != "new" {
		t.Fatalf("older response overwrote a newer snapshot: %+v", got)
	}
}

func TestRefresh_StaleFailureKeepsErrorClear(t *testing.T) {
	api := newFakeAPI()
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	api.listFn = func(n int) ([]product.Product, error) {
		if n == 1 {
			close(firstStarted)
			<-release
			return nil, &client.Error{Op: client.OpList, Kind: client.KindTransport, Err: errors.New("timeout")}
		}
		return []product.Product{{ID: 1, Name: "fresh"}}, nil
	}
	c := NewController(api, nil)

	errc := make(chan error, 1)
	go func() { errc <- c.Refresh(context.Background()) }()
	<-firstStarted

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(release)
	if err := <-errc; !errors.Is(err, client.ErrTransport) {
		t.Fatalf("older refresh should still report its failure, got %v", err)
	}

	s := c.State()
	if s.Err != nil {
		t.Fatalf("older failure must not flag a current snapshot, got %v", s.Err)
	}
	if len(s.Products) != 1 || s.Products[0].Name != "fresh" {
		t.Fatalf("unexpected snapshot %+v", s.Products)
	}
}

func TestOpenCreate_YieldsBlankProduct(t *testing.T) {
	c := NewController(newFakeAPI(), nil)
	c.OpenCreate()

	s := c.State()
	if s.Form != FormCreating || s.Target == nil {
		t.Fatalf("expected creating form, got %+v", s)
	}
	blank := *s.Target
	if blank.HasID() || blank.Name != "" || blank.Description != "" || blank.Category != "" ||
		!blank.Price.IsZero() || blank.StockQuantity != 0 {
		t.Fatalf("create form should start blank, got %+v", blank)
	}
}

func TestOpenEdit_CopiesExactFields(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, nil)
	ctx := context.Background()
	_ = c.Refresh(ctx)

	if err := c.OpenEdit(ctx, 1); err != nil {
		t.Fatalf("open edit: %v", err)
	}
	s := c.State()
	want := seedProducts()[0]
	got := *s.Target
	if s.Form != FormEditing || got.ID != want.ID || got.Name != want.Name || got.Description != want.Description ||
		!got.Price.Equal(want.Price) || got.Category != want.Category || got.StockQuantity != want.StockQuantity {
		t.Fatalf("edit form should copy the product, got %+v", got)
	}
	if api.count("get") != 0 {
		t.Fatalf("products in the snapshot should not be fetched again")
	}

	// mutating the returned target must not leak into controller state
	s.Target.Name = "changed"
	if c.State().Target.Name != want.Name {
		t.Fatalf("State leaked the editing target")
	}
}

func TestOpenEdit_FetchesProductsOutsideSnapshot(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, nil)
	ctx := context.Background()

	if err := c.OpenEdit(ctx, 2); err != nil {
		t.Fatalf("open edit: %v", err)
	}
	if api.count("get") != 1 || c.State().Target.Name != "Gadget" {
		t.Fatalf("expected product 2 to be fetched")
	}

	if err := c.OpenEdit(ctx, 99); !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if c.State().Target.ID != 2 {
		t.Fatalf("failed open should leave the current form alone")
	}
}

func TestSave_CreateThenRefresh(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, nil)
	ctx := context.Background()
	_ = c.Refresh(ctx)

	c.OpenCreate()
	err := c.Save(ctx, product.Product{Name: "Doohickey", Price: decimal.NewFromInt(4), Category: "Tools", StockQuantity: 1})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if api.count("create") != 1 || api.count("update") != 0 {
		t.Fatalf("expected a single create, calls=%v", api.calls)
	}

	s := c.State()
	if s.Form != FormHidden || s.Target != nil {
		t.Fatalf("form should close after a successful save")
	}
	if len(s.Products) != 3 || s.Products[2].ID != 3 || s.Products[2].Name != "Doohickey" {
		t.Fatalf("snapshot should include the server-assigned id, got %+v", s.Products)
	}
	if api.count("list") != 2 {
		t.Fatalf("save should trigger exactly one refresh, got %d lists", api.count("list"))
	}
}

func TestSave_UpdateReplacesRecord(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, nil)
	ctx := context.Background()
	_ = c.Refresh(ctx)

	if err := c.OpenEdit(ctx, 1); err != nil {
		t.Fatalf("open edit: %v", err)
	}
	edited := *c.State().Target
	edited.Name = "Widget XL"
	edited.Description = ""
	edited.StockQuantity = 0

	if err := c.Save(ctx, edited); err != nil {
		t.Fatalf("save: %v", err)
	}
	if api.count("update") != 1 || api.count("create") != 0 {
		t.Fatalf("expected a single update, calls=%v", api.calls)
	}

	got := c.Products()[0]
	if got.ID != 1 || got.Name != "Widget XL" || got.Description != "" || got.StockQuantity != 0 {
		t.Fatalf("record should reflect every submitted field, got %+v", got)
	}
	if c.State().Summary.InStock != 0 {
		t.Fatalf("summary should follow the new snapshot")
	}
}

func TestSave_FailureKeepsFormOpen(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	api := newFakeAPI()
	api.saveErr = &client.Error{Op: client.OpCreate, Kind: client.KindValidation, StatusCode: 400}
	c := NewController(api, zap.New(core))

	c.OpenCreate()
	err := c.Save(context.Background(), product.Product{Name: ""})
	if !errors.Is(err, client.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	s := c.State()
	if s.Form != FormCreating || s.Err == nil {
		t.Fatalf("failed save should keep the form open and record the error, got %+v", s)
	}
	if api.count("list") != 0 {
		t.Fatalf("failed save must not refresh")
	}
	if logs.FilterMessage("save product failed").Len() != 1 {
		t.Fatalf("failed save should be logged")
	}
}

func TestSave_RequiresOpenForm(t *testing.T) {
	api := newFakeAPI()
	c := NewController(api, nil)

	if err := c.Save(context.Background(), product.Product{Name: "x"}); !errors.Is(err, ErrFormClosed) {
		t.Fatalf("expected ErrFormClosed, got %v", err)
	}
	if api.count("create") != 0 {
		t.Fatalf("no request should be sent without an open form")
	}
}

func TestSave_RejectsOverlappingMutation(t *testing.T) {
	api := newFakeAPI()
	api.hold = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	c := NewController(api, nil)
	ctx := context.Background()

	c.OpenCreate()
	errc := make(chan error, 1)
	go func() { errc <- c.Save(ctx, product.Product{Name: "first"}) }()
	<-api.entered

	if err := c.Save(ctx, product.Product{Name: "second"}); !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("expected ErrMutationInFlight, got %v", err)
	}

	close(api.hold)
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("first save: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("first save did not finish")
	}
	if api.count("create") != 1 {
		t.Fatalf("expected exactly one create, got %d", api.count("create"))
	}

	// the guard is released once the save completes
	c.OpenCreate()
	api.mu.Lock()
	api.hold = nil
	api.mu.Unlock()
	if err := c.Save(ctx, product.Product{Name: "third"}); err != nil {
		t.Fatalf("save after release: %v", err)
	}
}

func TestRemove_DeclinedIssuesNoCall(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, nil)
	ctx := context.Background()
	_ = c.Refresh(ctx)

	var asked product.Product
	err := c.Remove(ctx, 1, func(p product.Product) bool {
		asked = p
		return false
	})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if asked.Name != "Widget" {
		t.Fatalf("confirmation should receive the product, got %+v", asked)
	}
	if api.count("delete") != 0 || api.count("list") != 1 {
		t.Fatalf("declined delete must not touch the service, calls=%v", api.calls)
	}
	if err := c.Remove(ctx, 1, nil); err != nil || api.count("delete") != 0 {
		t.Fatalf("missing confirmation must count as declined")
	}
}

func TestRemove_ConfirmedDeletesAndRefreshes(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, nil)
	ctx := context.Background()
	_ = c.Refresh(ctx)

	yes := func(product.Product) bool { return true }
	if err := c.Remove(ctx, 1, yes); err != nil {
		t.Fatalf("remove: %v", err)
	}
	for _, p := range c.Products() {
		if p.ID == 1 {
			t.Fatalf("deleted product still in snapshot")
		}
	}

	// already gone on the server: still reconcile
	_, _ = api.repo.Create(ctx, product.Product{Name: "other"})
	if err := c.Remove(ctx, 1, yes); err != nil {
		t.Fatalf("remove of missing product: %v", err)
	}
	if api.count("list") != 3 || len(c.Products()) != 2 {
		t.Fatalf("not-found delete should still refresh, lists=%d products=%+v", api.count("list"), c.Products())
	}
}

func TestRemove_AlreadyGoneRefreshes(t *testing.T) {
	api := newFakeAPI(product.Product{ID: 1, Name: "Widget", Category: "Tools", StockQuantity: 1})
	c := NewController(api, nil)
	ctx := context.Background()
	_ = c.Refresh(ctx)

	if err := api.repo.Delete(ctx, 1); err != nil {
		t.Fatalf("seed delete: %v", err)
	}
	if err := c.Remove(ctx, 1, func(product.Product) bool { return true }); err != nil {
		t.Fatalf("remove of a vanished product should succeed, got %v", err)
	}
	if api.count("delete") != 1 || api.count("list") != 2 {
		t.Fatalf("expected one delete and a refresh, calls=%v", api.calls)
	}
	if got := c.Products(); len(got) != 0 {
		t.Fatalf("snapshot should be empty, got %+v", got)
	}
	if c.State().Err != nil {
		t.Fatalf("already-gone delete is not a failure")
	}
}

func TestRemove_RejectsInvalidID(t *testing.T) {
	api := newFakeAPI()
	api.hold = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	c := NewController(api, nil)
	ctx := context.Background()

	c.OpenCreate()
	errc := make(chan error, 1)
	go func() { errc <- c.Save(ctx, product.Product{Name: "pending"}) }()
	<-api.entered

	asked := false
	err := c.Remove(ctx, 0, func(product.Product) bool { asked = true; return true })
	if !errors.Is(err, ErrInvalidID) || asked {
		t.Fatalf("expected ErrInvalidID without asking, got %v", err)
	}
	if err := c.Remove(ctx, -1, func(product.Product) bool { return true }); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for negative id, got %v", err)
	}

	close(api.hold)
	if err := <-errc; err != nil {
		t.Fatalf("create should be unaffected by rejected removes: %v", err)
	}
	if api.count("delete") != 0 {
		t.Fatalf("invalid ids must not reach the service")
	}
}

func TestRemove_FailureKeepsSnapshot(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	api.delErr = &client.Error{Op: client.OpDelete, Kind: client.KindTransport, Err: errors.New("timeout")}
	c := NewController(api, nil)
	ctx := context.Background()
	_ = c.Refresh(ctx)

	err := c.Remove(ctx, 2, func(product.Product) bool { return true })
	if !errors.Is(err, client.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(c.Products()) != 2 || api.count("list") != 1 {
		t.Fatalf("failed delete should leave the snapshot and skip refresh")
	}
}

func TestSearchTerm_FiltersWithoutNetwork(t *testing.T) {
	api := newFakeAPI(seedProducts()...)
	c := NewController(api, nil)
	_ = c.Refresh(context.Background())

	c.SetSearchTerm("TOOL")
	s := c.State()
	if len(s.Products) != 1 || s.Products[0].Name != "Widget" {
		t.Fatalf("unexpected filter result %+v", s.Products)
	}
	if s.Summary.Total != 2 {
		t.Fatalf("summary should cover the full snapshot, got %+v", s.Summary)
	}
	if api.count("list") != 1 {
		t.Fatalf("filtering must not call the service")
	}
}
