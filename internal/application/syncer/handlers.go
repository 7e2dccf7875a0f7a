package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appfeed "github.com/feedsync/backend/internal/application/feed"
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

func (c *Controller) put(ctx context.Context, ref graph.NodeRef, v any) error {
	content, err := graph.Encode(v)
	if err != nil {
		return shared.NewStorageError("sync.encode", fmt.Errorf("%s: %w", ref, err))
	}
	return c.store.UpsertNode(ctx, ref, content)
}

func (c *Controller) upsertProduct(ctx context.Context, p catalog.Product) error {
	if err := p.Validate(); err != nil {
		return skip(fmt.Errorf("product %q: %w", p.ID, err))
	}
	return c.saveProduct(ctx, p)
}

// saveProduct stores the product, its variants and its category chain
// walked up to the root plus one level of children.
func (c *Controller) saveProduct(ctx context.Context, p catalog.Product) error {
	ref := graph.Ref(graph.NodeProduct, p.ID)
	if err := c.put(ctx, ref, p.Stored()); err != nil {
		return err
	}

	owner := &catalog.ProductRef{ID: p.ID, Name: p.Name, Slug: p.Slug}
	for _, v := range p.Variants {
		if v.Product == nil {
			v.Product = owner
		}
		if err := v.Validate(); err != nil {
			c.logger.Warn("Skipping invalid variant", zap.String("product_id", p.ID), zap.Error(err))
			continue
		}
		if err := c.saveVariant(ctx, v); err != nil {
			return err
		}
	}

	chain, err := c.source.Ancestors(ctx, p.Category.ID)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		return shared.DataIntegrityf("sync.product_upsert", "category %s of product %s not found", p.Category.ID, p.ID)
	}
	children, err := c.source.Children(ctx, chain[0].ID)
	if err != nil {
		return err
	}

	for _, cat := range append(append([]catalog.Category{}, chain...), children...) {
		if err := c.put(ctx, graph.Ref(graph.NodeCategory, cat.ID), cat.Stored()); err != nil {
			return err
		}
	}

	if err := c.store.ClearEdges(ctx, graph.EdgeCategorises, ref, graph.In); err != nil {
		return err
	}
	if err := c.store.Relate(ctx, graph.Ref(graph.NodeCategory, chain[0].ID), graph.EdgeCategorises, ref); err != nil {
		return err
	}

	for i, cat := range chain {
		if err := c.relateAncestors(ctx, cat, chain[i+1:]); err != nil {
			return err
		}
	}
	for _, child := range children {
		if err := c.relateAncestors(ctx, child, chain); err != nil {
			return err
		}
	}
	return nil
}

// relateAncestors rewrites the incoming ancestor_of edges of cat.
// ancestors must be ordered nearest first.
func (c *Controller) relateAncestors(ctx context.Context, cat catalog.Category, ancestors []catalog.Category) error {
	ref := graph.Ref(graph.NodeCategory, cat.ID)
	if err := c.store.ClearEdges(ctx, graph.EdgeAncestorOf, ref, graph.In); err != nil {
		return err
	}
	for _, a := range ancestors {
		if err := c.store.Relate(ctx, graph.Ref(graph.NodeCategory, a.ID), graph.EdgeAncestorOf, ref); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) upsertVariant(ctx context.Context, v catalog.Variant) error {
	if err := v.Validate(); err != nil {
		return skip(fmt.Errorf("variant %q: %w", v.ID, err))
	}
	return c.saveVariant(ctx, v)
}

func (c *Controller) saveVariant(ctx context.Context, v catalog.Variant) error {
	ref := graph.Ref(graph.NodeVariant, v.ID)
	if err := c.put(ctx, ref, v); err != nil {
		return err
	}
	if err := c.store.ClearEdges(ctx, graph.EdgeVaries, ref, graph.Out); err != nil {
		return err
	}
	return c.store.Relate(ctx, ref, graph.EdgeVaries, graph.Ref(graph.NodeProduct, v.Product.ID))
}

func (c *Controller) upsertCategory(ctx context.Context, cat catalog.Category) error {
	if err := cat.Validate(); err != nil {
		return skip(err)
	}
	if err := c.put(ctx, graph.Ref(graph.NodeCategory, cat.ID), cat.Stored()); err != nil {
		return err
	}

	var ancestors []catalog.Category
	if parentID := cat.ParentID(); parentID != "" {
		var err error
		ancestors, err = c.source.Ancestors(ctx, parentID)
		if err != nil {
			return err
		}
		for _, a := range ancestors {
			if err := c.put(ctx, graph.Ref(graph.NodeCategory, a.ID), a.Stored()); err != nil {
				return err
			}
		}
	}
	return c.relateAncestors(ctx, cat, ancestors)
}

func (c *Controller) upsertShippingZone(ctx context.Context, z catalog.ShippingZone) error {
	if strings.TrimSpace(z.ID) == "" {
		return skip(catalog.ErrShippingZoneMissingID)
	}
	err := c.saveZone(ctx, z)
	if errors.Is(err, shared.ErrConfiguration) {
		c.recordIssue(ctx, err)
	}
	return err
}

// saveZone rejects zones without a courier instead of storing them
func (c *Controller) saveZone(ctx context.Context, z catalog.ShippingZone) error {
	if err := z.Validate(); err != nil {
		return shared.NewConfigurationError("sync.shipping_zone_upsert", fmt.Errorf("zone %s (%s): %w", z.ID, z.Name, err))
	}
	return c.put(ctx, graph.Ref(graph.NodeShippingZone, z.ID), z)
}

// recordIssue appends one issue to the stored ones
func (c *Controller) recordIssue(ctx context.Context, err error) {
	issues, lerr := c.store.Issues(ctx)
	if lerr != nil {
		c.logger.Error("Failed to load issues", zap.Error(lerr))
		return
	}
	issues = append(issues, issueOf(err, c.now()))
	if rerr := c.store.RecordIssues(ctx, issues); rerr != nil {
		c.logger.Error("Failed to record issue", zap.Error(rerr))
	}
}

func (c *Controller) delete(ctx context.Context, d Delete) error {
	if !d.Kind.IsValid() {
		return skip(fmt.Errorf("%w: %q", graph.ErrUnknownNodeKind, d.Kind))
	}
	if strings.TrimSpace(d.ID) == "" {
		return skip(fmt.Errorf("delete %s: empty id", d.Kind))
	}
	return c.store.DeleteNode(ctx, graph.Ref(d.Kind, d.ID))
}

func (c *Controller) fullResync(ctx context.Context) (*SyncReport, error) {
	report := newReport(c.now())
	fatal := c.resync(ctx, report)
	report.add(fatal)
	report.finish(c.now(), fatal)

	if err := c.store.RecordIssues(ctx, report.Issues()); err != nil {
		c.logger.Error("Failed to record resync issues", zap.Error(err))
	}

	log := c.logger.With(
		zap.String("status", report.Status.String()),
		zap.Int("zones", report.Zones),
		zap.Int("zones_failed", report.ZonesFailed),
		zap.Int("products", report.Products),
		zap.Int("products_failed", report.ProductsFailed),
		zap.Int("feed_items", report.FeedItems),
		zap.Duration("duration", report.Duration()),
	)
	if report.Status == StatusSuccess {
		log.Info("Full resync finished")
	} else {
		log.Warn("Full resync finished with errors", zap.Int("errors", len(report.Errors)))
	}
	return report, fatal
}

// resync fills report and returns the error that aborted the run, if any
func (c *Controller) resync(ctx context.Context, report *SyncReport) error {
	telemetry.SetAttribute(telemetry.SpanFromContext(ctx), telemetry.SpanAttrChannel, c.channel)

	zones, err := c.source.FetchShippingZones(ctx, c.channel)
	if err != nil {
		return err
	}
	if len(zones) == 0 {
		return shared.NewConfigurationError("sync.full_resync", ErrNoShippingZones)
	}
	for _, z := range zones {
		if err := c.saveZone(ctx, z); err != nil {
			report.ZonesFailed++
			if errors.Is(err, shared.ErrConfiguration) {
				return err
			}
			report.add(err)
			continue
		}
		report.Zones++
	}

	products, err := c.source.FetchProducts(ctx, c.channel)
	if err != nil {
		return err
	}
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			report.ProductsFailed++
			report.add(shared.NewDataIntegrityError("sync.full_resync", fmt.Errorf("product %q: %w", p.ID, err)))
			continue
		}
		if err := c.saveProduct(ctx, p); err != nil {
			report.ProductsFailed++
			report.add(fmt.Errorf("product %s: %w", p.ID, err))
			continue
		}
		report.Products++
	}

	result, err := c.feed.Generate(ctx)
	if err != nil {
		report.add(err)
		return nil
	}
	report.FeedBuilt = true
	report.FeedItems = result.Items
	report.FeedDropped = result.Dropped
	report.add(result.Problems...)
	c.recordFeed(ctx, result)
	return nil
}

// recordFeed reports the size of a generated feed on the event span and in metrics
func (c *Controller) recordFeed(ctx context.Context, result *appfeed.Result) {
	telemetry.SetAttributes(telemetry.SpanFromContext(ctx),
		telemetry.SpanAttrFeedItems, result.Items,
		telemetry.SpanAttrDropped, result.Dropped,
	)
	c.metrics.RecordFeed(ctx, result.Items, result.Dropped)
}

func (c *Controller) generateFeed(ctx context.Context) (*appfeed.Result, error) {
	result, err := c.feed.Generate(ctx)
	if err != nil {
		return nil, err
	}
	c.recordFeed(ctx, result)

	issues := make([]graph.Issue, 0, len(result.Problems))
	for _, p := range result.Problems {
		issues = append(issues, issueOf(p, c.now()))
	}
	if err := c.store.RecordIssues(ctx, issues); err != nil {
		c.logger.Error("Failed to record feed issues", zap.Error(err))
	}
	return result, nil
}
