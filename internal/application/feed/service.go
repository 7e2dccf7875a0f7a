// Package feed assembles the marketplace feed document from the stored catalog graph.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feed"
	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	ErrNoVariants   = errors.New("feed: product has no variants")
	ErrNoCategory   = errors.New("feed: product has no category")
	ErrNoDeliveries = errors.New("feed: no shipping zone offers a delivery")
	ErrInvalidFeed  = errors.New("feed: generated document is invalid")
	ErrDuplicateID  = errors.New("feed: item id already used by another variant")
)

// FeedPublisher stores a generated document where the marketplace fetches it
type FeedPublisher interface {
	Publish(ctx context.Context, doc []byte) error
}

// Result is a generated document with the per-item problems met on the way
type Result struct {
	Document []byte
	Items    int
	Dropped  int // products and variants left out
	Problems []error
}

// Err joins the per-item problems, nil when there are none
func (r *Result) Err() error {
	return errors.Join(r.Problems...)
}

// Service generates feed documents
type Service struct {
	store        graph.Store
	deliveries   *DeliveryResolver
	categoryText *CategoryTextResolver
	builder      *Builder
	validator    feed.SchemaValidator
	publisher    FeedPublisher
	logger       *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithPublisher hands every valid document to publisher
func WithPublisher(publisher FeedPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithValidator replaces the default schema validator
func WithValidator(v feed.SchemaValidator) ServiceOption {
	return func(s *Service) {
		s.validator = v
	}
}

// NewService creates a Service
func NewService(store graph.Store, deliveries *DeliveryResolver, builder *Builder, opts ...ServiceOption) *Service {
	s := &Service{
		store:        store,
		deliveries:   deliveries,
		categoryText: NewCategoryTextResolver(store),
		builder:      builder,
		validator:    feed.NewValidator(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// itemChecker is implemented by validators that can check one item up front
type itemChecker interface {
	ValidateItem(item feed.ShopItem) error
}

// Generate builds, validates and publishes the feed.
//
// Products that cannot produce items are dropped and reported in
// Result.Problems. Storage errors, a variant no zone can deliver and an
// invalid document abort the whole run.
func (s *Service) Generate(ctx context.Context) (*Result, error) {
	zones, problems, err := s.loadZones(ctx)
	if err != nil {
		return nil, err
	}

	products, err := s.store.NodesOf(ctx, graph.NodeProduct)
	if err != nil {
		return nil, err
	}

	result := &Result{Problems: problems}
	var items []feed.ShopItem
	seen := make(map[string]string)
	for _, node := range products {
		productItems, dropped, err := s.productItems(ctx, node, zones)
		if err != nil {
			if shared.IsFatal(err) {
				return nil, err
			}
			s.logger.Warn("product dropped from feed", zap.String("product_id", node.Ref.ID), zap.Error(err))
			result.Problems = append(result.Problems, err)
			result.Dropped++
			continue
		}
		for _, e := range dropped {
			s.logger.Warn("item dropped from feed", zap.String("product_id", node.Ref.ID), zap.Error(e))
			result.Problems = append(result.Problems, e)
			result.Dropped++
		}
		for _, item := range productItems {
			if owner, dup := seen[item.ItemID]; dup {
				err := shared.DataIntegrityf("feed.generate", "%w: %s collides with product %s", ErrDuplicateID, item.ItemID, owner)
				s.logger.Warn("item dropped from feed", zap.String("product_id", node.Ref.ID), zap.Error(err))
				result.Problems = append(result.Problems, err)
				result.Dropped++
				continue
			}
			seen[item.ItemID] = node.Ref.ID
			items = append(items, item)
		}
	}

	doc, err := feed.NewShop(items).Marshal()
	if err != nil {
		return nil, shared.NewValidationError("feed.generate", err)
	}
	if err := s.validator.Validate(doc); err != nil {
		return nil, shared.NewValidationError("feed.generate", fmt.Errorf("%w: %w", ErrInvalidFeed, err))
	}
	result.Document = doc
	result.Items = len(items)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, doc); err != nil {
			return nil, shared.NewStorageError("feed.publish", err)
		}
	}

	s.logger.Info("feed generated",
		zap.Int("items", result.Items),
		zap.Int("dropped", result.Dropped),
		zap.Int("bytes", len(doc)),
	)
	return result, nil
}

func (s *Service) loadZones(ctx context.Context) ([]catalog.ShippingZone, []error, error) {
	nodes, err := s.store.NodesOf(ctx, graph.NodeShippingZone)
	if err != nil {
		return nil, nil, err
	}
	var (
		zones    []catalog.ShippingZone
		problems []error
	)
	for _, node := range nodes {
		var zone catalog.ShippingZone
		if err := node.Decode(&zone); err != nil {
			problems = append(problems, shared.NewDataIntegrityError("feed.load_zones", err))
			continue
		}
		zones = append(zones, zone)
	}
	return zones, problems, nil
}

// productItems returns the items of one product plus the per-variant problems.
// A non-nil error drops the whole product or, when fatal, the whole run.
func (s *Service) productItems(ctx context.Context, node graph.Node, zones []catalog.ShippingZone) ([]feed.ShopItem, []error, error) {
	const op = "feed.product_items"

	var product catalog.Product
	if err := node.Decode(&product); err != nil {
		return nil, nil, shared.NewDataIntegrityError(op, err)
	}

	variants, err := s.variants(ctx, node.Ref)
	if err != nil {
		return nil, nil, err
	}
	if len(variants) == 0 {
		return nil, nil, shared.NewDataIntegrityError(op, fmt.Errorf("%w: %s", ErrNoVariants, product.ID))
	}

	category, err := s.category(ctx, node.Ref)
	if err != nil {
		return nil, nil, err
	}

	text, err := s.categoryText.Resolve(ctx, category)
	if err != nil {
		return nil, nil, err
	}

	checker, _ := s.validator.(itemChecker)
	var (
		items    []feed.ShopItem
		problems []error
	)
	for _, v := range variants {
		deliveries := s.deliveries.ResolveAll(zones, catalog.ResolveWeight(v, product))
		if len(deliveries) == 0 {
			return nil, nil, shared.NewConfigurationError(op, fmt.Errorf("%w: variant %s", ErrNoDeliveries, v.ID))
		}

		item, err := s.builder.Build(ItemInput{
			Product:      product,
			Variant:      v,
			Category:     category,
			CategoryText: text,
			Deliveries:   deliveries,
		})
		if err == nil && checker != nil {
			err = checker.ValidateItem(item)
		}
		if err != nil {
			problems = append(problems, shared.NewDataIntegrityError(op, fmt.Errorf("variant %s: %w", v.ID, err)))
			continue
		}
		items = append(items, item)
	}
	return items, problems, nil
}

func (s *Service) variants(ctx context.Context, product graph.NodeRef) ([]catalog.Variant, error) {
	nodes, err := s.store.Related(ctx, product, graph.EdgeVaries, graph.In)
	if err != nil {
		return nil, err
	}
	variants := make([]catalog.Variant, 0, len(nodes))
	for _, n := range nodes {
		var v catalog.Variant
		if err := n.Decode(&v); err != nil {
			return nil, shared.NewDataIntegrityError("feed.variants", err)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// category returns the first category by edge order; more than one is logged
func (s *Service) category(ctx context.Context, product graph.NodeRef) (catalog.Category, error) {
	nodes, err := s.store.Related(ctx, product, graph.EdgeCategorises, graph.In)
	if err != nil {
		return catalog.Category{}, err
	}
	if len(nodes) == 0 {
		return catalog.Category{}, shared.NewDataIntegrityError("feed.category", fmt.Errorf("%w: %s", ErrNoCategory, product.ID))
	}
	if len(nodes) > 1 {
		s.logger.Warn("product has more than one category, using the first",
			zap.String("product_id", product.ID),
			zap.Int("categories", len(nodes)),
		)
	}
	var c catalog.Category
	if err := nodes[0].Decode(&c); err != nil {
		return catalog.Category{}, shared.NewDataIntegrityError("feed.category", err)
	}
	return c, nil
}
