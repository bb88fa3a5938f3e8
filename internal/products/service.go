package product

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/basketwise/basketwise-backend/internal/catalog"
	"github.com/basketwise/basketwise-backend/pkg/config"
	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/metrics"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
	"github.com/basketwise/basketwise-backend/pkg/outbox/payloads"
	"github.com/basketwise/basketwise-backend/pkg/pagination"
	"github.com/basketwise/basketwise-backend/pkg/redis"
	"github.com/basketwise/basketwise-backend/pkg/search"
)

const (
	maxNameLength    = 255
	minBarcodeDigits = 8
	maxBarcodeDigits = 14
	lockPollInterval = 25 * time.Millisecond
	resolveTimeout   = 15 * time.Second
)

// Service resolves vendor submissions into catalog products and serves reads.
type Service interface {
	ResolveProduct(ctx context.Context, input ResolveProductInput) (*ProductDTO, bool, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// ResolveProductInput is a vendor's description of an item.
type ResolveProductInput struct {
	Name        string
	Barcode     *string
	Brand       *string
	Size        *string
	Unit        *string
	ImageURL    *string
	CategoryID  *uuid.UUID
	Description *string
}

// ListProductsInput pages through the catalog, optionally by name prefix.
type ListProductsInput struct {
	Pagination pagination.Params
	Query      string
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Locker hands out the cross-instance resolution lock.
type Locker interface {
	redis.LockStore
	LockKey(parts ...string) string
}

type searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.ProductDocument, error)
}

// Deps bundles the collaborators of the product service.
type Deps struct {
	Repo     *Repository
	DB       *db.Client
	Resolver *catalog.Resolver
	Events   eventEmitter
	Locker   Locker
	Search   searcher
	Metrics  *metrics.CatalogMetrics
	Logger   *logger.Logger
	Config   config.CatalogConfig
}

type service struct {
	repo     *Repository
	db       *db.Client
	resolver *catalog.Resolver
	events   eventEmitter
	locker   Locker
	search   searcher
	metrics  *metrics.CatalogMetrics
	logg     *logger.Logger
	cfg      config.CatalogConfig
	group    singleflight.Group
}

// resolveResult is shared by every caller of one flight. Only the first
// caller to claim it reports the product as created; the rest got a match.
type resolveResult struct {
	dto     *ProductDTO
	created bool
	claimed *atomic.Bool
}

func (r resolveResult) claimCreated() bool {
	return r.created && r.claimed.CompareAndSwap(false, true)
}

// NewService constructs a product service. Locker and Search are optional.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if deps.Resolver == nil {
		deps.Resolver = catalog.NewResolver(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Config.MaxResolveAttempts <= 0 {
		deps.Config.MaxResolveAttempts = 3
	}
	return &service{
		repo:     deps.Repo,
		db:       deps.DB,
		resolver: deps.Resolver,
		events:   deps.Events,
		locker:   deps.Locker,
		search:   deps.Search,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		cfg:      deps.Config,
	}, nil
}

// ResolveProduct returns the catalog product for the submission and whether it was newly created.
func (s *service) ResolveProduct(ctx context.Context, input ResolveProductInput) (*ProductDTO, bool, error) {
	candidate, err := validateInput(input)
	if err != nil {
		return nil, false, err
	}
	normalized := catalog.Normalize(candidate.Name)

	// The flight outlives any single caller so one cancellation cannot fail
	// the others waiting on it.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightKey(normalized, candidate), func() (any, error) {
		work, cancel := context.WithTimeout(flightCtx, s.resolveTimeout())
		defer cancel()
		return s.resolveLocked(work, normalized, candidate)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return nil, false, out.Err
		}
		res := out.Val.(resolveResult)
		return res.dto, res.claimCreated(), nil
	}
}

func (s *service) resolveTimeout() time.Duration {
	if s.cfg.ResolveTimeout > 0 {
		return s.cfg.ResolveTimeout
	}
	return resolveTimeout
}

func (s *service) resolveLocked(ctx context.Context, normalized string, candidate catalog.Candidate) (resolveResult, error) {
	if s.locker != nil {
		if release := s.acquire(ctx, normalized); release != nil {
			defer release()
		}
	}

	for attempt := 1; attempt <= s.cfg.MaxResolveAttempts; attempt++ {
		res, err := s.resolveTx(ctx, candidate)
		if errors.Is(err, catalog.ErrDuplicateProduct) {
			s.metrics.IncConflict()
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"normalized_name": normalized,
				"attempt":         attempt,
			}), "product resolution raced, retrying")
			continue
		}
		if err != nil {
			return resolveResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve product")
		}
		return res, nil
	}
	return resolveResult{}, pkgerrors.New(pkgerrors.CodeConflict, "product resolution contended, retry later")
}

// acquire takes the resolution lock, waiting a bounded time. On timeout or a
// redis error resolution continues; the unique indexes still hold.
func (s *service) acquire(ctx context.Context, normalized string) func() {
	lock, err := redis.NewLock(s.locker, s.locker.LockKey("resolve", normalized), s.lockTTL())
	if err != nil {
		s.metrics.IncLock("error")
		s.logg.Error(ctx, "build resolution lock", err)
		return nil
	}
	ok, err := lock.AcquireWithin(ctx, s.cfg.ResolveLockWait, lockPollInterval)
	switch {
	case err != nil:
		s.metrics.IncLock("error")
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "resolution lock unavailable")
		return nil
	case !ok:
		s.metrics.IncLock("timeout")
		s.logg.Warn(s.logg.WithField(ctx, "normalized_name", normalized), "resolution lock wait timed out")
		return nil
	}
	s.metrics.IncLock("acquired")
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release resolution lock")
		}
	}
}

func (s *service) lockTTL() time.Duration {
	if s.cfg.ResolveLockTTL > 0 {
		return s.cfg.ResolveLockTTL
	}
	return 10 * time.Second
}

func (s *service) resolveTx(ctx context.Context, candidate catalog.Candidate) (resolveResult, error) {
	var res catalog.Resolution
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.resolver.Resolve(ctx, candidate, s.repo.WithTx(tx))
		if err != nil {
			return err
		}
		var eventType enums.OutboxEventType
		switch {
		case res.Created:
			eventType = enums.EventProductCreated
		case res.Updated:
			eventType = enums.EventProductEnriched
		default:
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateProduct,
			AggregateID:   res.Product.ID,
			Source:        &outbox.Source{Channel: "api"},
			Data:          productEvent(res.Product, res.MatchedBy),
		})
	})
	if err != nil {
		return resolveResult{}, err
	}

	outcome := "matched"
	if res.Created {
		outcome = "created"
	} else if res.Updated {
		outcome = "updated"
	}
	s.metrics.IncResolution(string(res.MatchedBy), outcome)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": res.Product.ID.String(),
		"matched_by": res.MatchedBy,
		"outcome":    outcome,
	}), "product resolved")
	return resolveResult{dto: toDTO(res.Product), created: res.Created, claimed: new(atomic.Bool)}, nil
}

// GetProduct loads a product by id.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return toDTO(p), nil
}

// ListProducts pages through products newest first. Query matches a prefix of the normalized name.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	page, err := s.repo.List(ctx, ListQuery{
		Pagination: input.Pagination,
		NamePrefix: catalog.Normalize(input.Query),
	})
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := &ProductListResult{Products: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Products = append(out.Products, *toDTO(&page.Items[i]))
	}
	return out, nil
}

// SearchProducts runs a full-text query against the search index.
func (s *service) SearchProducts(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if s.search == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product search is not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "q is required")
	}
	docs, err := s.search.Search(ctx, query, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	hits := make([]SearchHit, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, toSearchHit(d))
	}
	return hits, nil
}

func validateInput(input ResolveProductInput) (catalog.Candidate, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return catalog.Candidate{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return catalog.Candidate{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	barcode := catalog.CanonicalBarcode(input.Barcode)
	if barcode != nil {
		if n := len(*barcode); n < minBarcodeDigits || n > maxBarcodeDigits || strings.Trim(*barcode, "0123456789") != "" {
			return catalog.Candidate{}, pkgerrors.New(pkgerrors.CodeValidation, "barcode must be 8 to 14 digits")
		}
	}
	if input.ImageURL != nil && strings.TrimSpace(*input.ImageURL) != "" {
		u, err := url.ParseRequestURI(strings.TrimSpace(*input.ImageURL))
		if err != nil || u.Host == "" {
			return catalog.Candidate{}, pkgerrors.New(pkgerrors.CodeValidation, "imageUrl must be an absolute URL")
		}
	}
	return catalog.Candidate{
		Name:        name,
		Barcode:     barcode,
		Brand:       input.Brand,
		Size:        input.Size,
		Unit:        input.Unit,
		ImageURL:    input.ImageURL,
		CategoryID:  input.CategoryID,
		Description: input.Description,
	}, nil
}

// flightKey collapses identical in-flight submissions only. Submissions that
// differ in any field must each run so their fields can enrich the product.
func flightKey(normalized string, c catalog.Candidate) string {
	parts := []string{normalized, deref(c.Barcode), deref(c.Brand), deref(c.Size), deref(c.Unit), deref(c.ImageURL), deref(c.Description)}
	if c.CategoryID != nil {
		parts = append(parts, c.CategoryID.String())
	}
	return strings.Join(parts, "\x00")
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func productEvent(p *models.Product, matchedBy catalog.MatchStrategy) payloads.ProductEvent {
	return payloads.ProductEvent{
		ProductID:      p.ID,
		Name:           p.Name,
		NormalizedName: p.NormalizedName,
		Slug:           p.Slug,
		Barcode:        p.Barcode,
		Brand:          p.Brand,
		MatchedBy:      string(matchedBy),
	}
}
