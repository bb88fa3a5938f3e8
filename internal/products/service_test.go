package product

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/basketwise/basketwise-backend/pkg/config"
	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/db/dbtest"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/metrics"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
	"github.com/basketwise/basketwise-backend/pkg/pagination"
	"github.com/basketwise/basketwise-backend/pkg/redis"
	"github.com/basketwise/basketwise-backend/pkg/search"
)

type fixture struct {
	client *db.Client
	svc    Service
	reg    *prometheus.Registry
	locker *memoryLocker
}

func newFixture(t *testing.T, opts ...func(*Deps)) fixture {
	t.Helper()
	client := dbtest.Open(t)
	reg := prometheus.NewRegistry()
	locker := newMemoryLocker()
	deps := Deps{
		Repo:    NewRepository(client.DB()),
		DB:      client,
		Events:  outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop()),
		Locker:  locker,
		Metrics: metrics.NewCatalogMetrics(reg),
		Logger:  logger.Nop(),
		Config: config.CatalogConfig{
			ResolveLockTTL:     time.Second,
			ResolveLockWait:    50 * time.Millisecond,
			MaxResolveAttempts: 3,
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc, err := NewService(deps)
	require.NoError(t, err)
	return fixture{client: client, svc: svc, reg: reg, locker: locker}
}

func (f fixture) products(t *testing.T) []models.Product {
	t.Helper()
	var rows []models.Product
	require.NoError(t, f.client.DB().Order("created_at").Find(&rows).Error)
	return rows
}

func (f fixture) events(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.client.DB().Order("created_at").Find(&rows).Error)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.EventType)
	}
	return out
}

func (f fixture) counter(t *testing.T, name string) float64 {
	t.Helper()
	mfs, err := f.reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func strPtr(s string) *string { return &s }

func TestResolveProductCreatesThenMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, isNew, err := f.svc.ResolveProduct(ctx, ResolveProductInput{Name: "Coca-Cola 1.5L", Barcode: strPtr("5449 0000-00996")})
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, "coca-cola 1.5 l", created.NormalizedName)
	require.Equal(t, "5449000000996", *created.Barcode)

	same, isNew, err := f.svc.ResolveProduct(ctx, ResolveProductInput{Name: "COCA COLA bottle", Barcode: strPtr("5449000000996")})
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, created.ID, same.ID)

	require.Len(t, f.products(t), 1)
	require.Equal(t, []enums.OutboxEventType{enums.EventProductCreated}, f.events(t))
	require.Equal(t, 2.0, f.counter(t, "basketwise_catalog_resolutions_total"))
	require.Zero(t, f.locker.held(), "lock must be released")
}

func TestResolveProductEnrichmentEmitsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _, err := f.svc.ResolveProduct(ctx, ResolveProductInput{Name: "sunflower oil 1 l"})
	require.NoError(t, err)
	require.Nil(t, first.ImageURL)

	second, isNew, err := f.svc.ResolveProduct(ctx, ResolveProductInput{
		Name:     "Sunflower  Oil 1L",
		ImageURL: strPtr("https://cdn.example.com/oil.png"),
	})
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "https://cdn.example.com/oil.png", *second.ImageURL)
	require.Equal(t, []enums.OutboxEventType{enums.EventProductCreated, enums.EventProductEnriched}, f.events(t))
}

func TestResolveProductValidation(t *testing.T) {
	f := newFixture(t)
	long := make([]byte, maxNameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	cases := map[string]ResolveProductInput{
		"blank name":    {Name: "   "},
		"long name":     {Name: string(long)},
		"short barcode": {Name: "Rice", Barcode: strPtr("1234")},
		"alpha barcode": {Name: "Rice", Barcode: strPtr("12345678A")},
		"bad image":     {Name: "Rice", ImageURL: strPtr("not a url")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.svc.ResolveProduct(context.Background(), in)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
	require.Empty(t, f.products(t))
}

func TestResolveProductConcurrentSubmissionsCreateOne(t *testing.T) {
	f := newFixture(t)
	names := []string{"Basmati Rice 5kg", "basmati rice 5 kg", "BASMATI RICE 5 KG", "Basmati  Rice 5 Kg"}

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 16)
	errs := make([]error, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dto, _, err := f.svc.ResolveProduct(context.Background(), ResolveProductInput{Name: names[i%len(names)]})
			errs[i] = err
			if dto != nil {
				ids[i] = dto.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	require.Len(t, f.products(t), 1)
}

func TestResolveProductReportsCreatedOnce(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	created := make([]bool, 8)
	errs := make([]error, 8)
	for i := range created {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created[i], errs[i] = f.svc.ResolveProduct(context.Background(), ResolveProductInput{Name: "Oats 1kg"})
		}(i)
	}
	wg.Wait()

	n := 0
	for i := range created {
		require.NoError(t, errs[i])
		if created[i] {
			n++
		}
	}
	require.Equal(t, 1, n)
	require.Len(t, f.products(t), 1)
}

// holdProductQueries parks the first products query until release is closed.
func holdProductQueries(t *testing.T, conn *gorm.DB) (entered, release chan struct{}) {
	t.Helper()
	entered = make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	require.NoError(t, conn.Callback().Query().Before("gorm:query").Register("test:hold", func(tx *gorm.DB) {
		if tx.Statement.Table != "products" {
			return
		}
		once.Do(func() {
			close(entered)
			<-release
		})
	}))
	return entered, release
}

func TestResolveProductSurvivesFirstCallerCancel(t *testing.T) {
	f := newFixture(t)
	entered, release := holdProductQueries(t, f.client.DB())
	input := ResolveProductInput{Name: "Rolled Oats 750g"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := f.svc.ResolveProduct(firstCtx, input)
		firstErr <- err
	}()
	<-entered

	type outcome struct {
		dto     *ProductDTO
		created bool
		err     error
	}
	second := make(chan outcome, 1)
	go func() {
		dto, created, err := f.svc.ResolveProduct(context.Background(), input)
		second <- outcome{dto, created, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.dto)
	require.True(t, got.created, "the abandoned caller never claimed the creation")
	require.Len(t, f.products(t), 1)
}

func failProductCreates(t *testing.T, conn *gorm.DB, times int) {
	t.Helper()
	n := 0
	require.NoError(t, conn.Callback().Create().Before("gorm:create").Register("test:race", func(tx *gorm.DB) {
		if tx.Statement.Table == "products" && n < times {
			n++
			_ = tx.AddError(fmt.Errorf("insert product: %w", gorm.ErrDuplicatedKey))
		}
	}))
}

func TestResolveProductRetriesAfterConflict(t *testing.T) {
	f := newFixture(t)
	failProductCreates(t, f.client.DB(), 1)

	dto, isNew, err := f.svc.ResolveProduct(context.Background(), ResolveProductInput{Name: "Greek Yogurt 500g"})
	require.NoError(t, err)
	require.True(t, isNew)
	require.NotNil(t, dto)
	require.Equal(t, 1.0, f.counter(t, "basketwise_catalog_resolution_conflicts_total"))
	require.Len(t, f.products(t), 1)
	require.Len(t, f.events(t), 1, "the failed attempt's event must roll back")
}

func TestResolveProductGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	failProductCreates(t, f.client.DB(), 100)

	_, _, err := f.svc.ResolveProduct(context.Background(), ResolveProductInput{Name: "Greek Yogurt 500g"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	require.Equal(t, 3.0, f.counter(t, "basketwise_catalog_resolution_conflicts_total"))
	require.Empty(t, f.products(t))
}

func TestResolveProductProceedsWhenLockBusy(t *testing.T) {
	f := newFixture(t)
	f.locker.data[f.locker.LockKey("resolve", "eggs 12 pcs")] = "someone-else"

	_, isNew, err := f.svc.ResolveProduct(context.Background(), ResolveProductInput{Name: "Eggs 12 pcs"})
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, 1.0, f.counter(t, "basketwise_catalog_resolution_lock_total"))
	require.Equal(t, "someone-else", f.locker.data[f.locker.LockKey("resolve", "eggs 12 pcs")])
}

func TestGetAndListProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, name := range []string{"Apple Juice 1L", "Apple Cider 500ml", "Banana"} {
		dto, _, err := f.svc.ResolveProduct(ctx, ResolveProductInput{Name: name})
		require.NoError(t, err)
		ids = append(ids, dto.ID)
	}

	got, err := f.svc.GetProduct(ctx, ids[2])
	require.NoError(t, err)
	require.Equal(t, "banana", got.NormalizedName)

	_, err = f.svc.GetProduct(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := f.svc.ListProducts(ctx, ListProductsInput{Query: "APPLE", Pagination: pagination.Params{Limit: 1}})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.ListProducts(ctx, ListProductsInput{Query: "apple", Pagination: pagination.Params{Limit: 1, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, next.Products, 1)
	require.Empty(t, next.NextCursor)
	require.NotEqual(t, page.Products[0].ID, next.Products[0].ID)

	all, err := f.svc.ListProducts(ctx, ListProductsInput{})
	require.NoError(t, err)
	require.Len(t, all.Products, 3)

	_, err = f.svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Cursor: "###"}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestListProductsEscapesLikeWildcards(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.ResolveProduct(context.Background(), ResolveProductInput{Name: "Dark Chocolate 70%"})
	require.NoError(t, err)

	page, err := f.svc.ListProducts(context.Background(), ListProductsInput{Query: "%"})
	require.NoError(t, err)
	require.Empty(t, page.Products)
}

type stubSearch struct {
	docs []search.ProductDocument
	err  error
}

func (s stubSearch) Search(context.Context, string, int) ([]search.ProductDocument, error) {
	return s.docs, s.err
}

func TestSearchProducts(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SearchProducts(context.Background(), "milk", 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	withSearch := newFixture(t, func(d *Deps) {
		d.Search = stubSearch{docs: []search.ProductDocument{{ID: "1", Name: "Milk", NormalizedName: "milk", Slug: "milk"}}}
	})
	hits, err := withSearch.svc.SearchProducts(context.Background(), " milk ", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "milk", hits[0].Slug)

	_, err = withSearch.svc.SearchProducts(context.Background(), "  ", 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	failing := newFixture(t, func(d *Deps) { d.Search = stubSearch{err: errors.New("down")} })
	_, err = failing.svc.SearchProducts(context.Background(), "milk", 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

type memoryLocker struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{data: map[string]string{}}
}

func (m *memoryLocker) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryLocker) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLocker) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryLocker) LockKey(parts ...string) string {
	return fmt.Sprint("bw:lock:", parts)
}

func (m *memoryLocker) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
