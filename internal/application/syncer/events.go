package syncer

import (
	appfeed "github.com/feedsync/backend/internal/application/feed"
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/graph"
)

// Event is one unit of work for the controller.
// The set is closed: only types in this package implement it.
type Event interface {
	// Name is the snake_case event name used for spans, metrics and logs.
	Name() string
	event()
}

// ProductUpsert stores a product with its variants and category chain
type ProductUpsert struct {
	Product catalog.Product
}

// VariantUpsert stores a variant and its varies edge
type VariantUpsert struct {
	Variant catalog.Variant
}

// CategoryUpsert stores a category and rebuilds its ancestor edges
type CategoryUpsert struct {
	Category catalog.Category
}

// ShippingZoneUpsert stores a shipping zone
type ShippingZoneUpsert struct {
	Zone catalog.ShippingZone
}

// Delete removes a node and every edge touching it
type Delete struct {
	Kind graph.NodeKind
	ID   string
}

// FullResync refetches the catalog. A nil reply makes it fire-and-forget.
type FullResync struct {
	reply chan<- ResyncResult
}

// FeedRequest generates the feed document
type FeedRequest struct {
	reply chan<- FeedResult
}

// ResyncResult answers a FullResync
type ResyncResult struct {
	Report *SyncReport
	Err    error
}

// FeedResult answers a FeedRequest
type FeedResult struct {
	Result *appfeed.Result
	Err    error
}

func (ProductUpsert) Name() string      { return "product_upsert" }
func (VariantUpsert) Name() string      { return "variant_upsert" }
func (CategoryUpsert) Name() string     { return "category_upsert" }
func (ShippingZoneUpsert) Name() string { return "shipping_zone_upsert" }
func (Delete) Name() string             { return "delete" }
func (FullResync) Name() string         { return "full_resync" }
func (FeedRequest) Name() string        { return "feed_request" }

func (ProductUpsert) event()      {}
func (VariantUpsert) event()      {}
func (CategoryUpsert) event()     {}
func (ShippingZoneUpsert) event() {}
func (Delete) event()             {}
func (FullResync) event()         {}
func (FeedRequest) event()        {}

// answer delivers a reply if the sender is waiting.
// Reply channels are buffered so the worker never blocks on a gone caller.
func (e FullResync) answer(report *SyncReport, err error) {
	if e.reply == nil {
		return
	}
	select {
	case e.reply <- ResyncResult{Report: report, Err: err}:
	default:
	}
}

func (e FeedRequest) answer(result *appfeed.Result, err error) {
	if e.reply == nil {
		return
	}
	select {
	case e.reply <- FeedResult{Result: result, Err: err}:
	default:
	}
}

// nodeOf returns the node an ingestion event targets
func nodeOf(ev Event) (graph.NodeRef, bool) {
	switch e := ev.(type) {
	case ProductUpsert:
		return graph.Ref(graph.NodeProduct, e.Product.ID), true
	case VariantUpsert:
		return graph.Ref(graph.NodeVariant, e.Variant.ID), true
	case CategoryUpsert:
		return graph.Ref(graph.NodeCategory, e.Category.ID), true
	case ShippingZoneUpsert:
		return graph.Ref(graph.NodeShippingZone, e.Zone.ID), true
	case Delete:
		return graph.Ref(e.Kind, e.ID), true
	default:
		return graph.NodeRef{}, false
	}
}
