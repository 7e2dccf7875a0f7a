package persistence

import (
	"time"

	"github.com/feedsync/backend/internal/domain/graph"
)

// nodeColumns is the shared layout of every node table
type nodeColumns struct {
	ID        string    `gorm:"column:id;type:varchar(255);primaryKey"`
	Content   string    `gorm:"column:content;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// ProductNodeModel is the product node table
type ProductNodeModel struct{ nodeColumns }

// TableName returns the table name for GORM
func (ProductNodeModel) TableName() string { return string(graph.NodeProduct) }

// VariantNodeModel is the variant node table
type VariantNodeModel struct{ nodeColumns }

// TableName returns the table name for GORM
func (VariantNodeModel) TableName() string { return string(graph.NodeVariant) }

// CategoryNodeModel is the category node table
type CategoryNodeModel struct{ nodeColumns }

// TableName returns the table name for GORM
func (CategoryNodeModel) TableName() string { return string(graph.NodeCategory) }

// ShippingZoneNodeModel is the shipping zone node table
type ShippingZoneNodeModel struct{ nodeColumns }

// TableName returns the table name for GORM
func (ShippingZoneNodeModel) TableName() string { return string(graph.NodeShippingZone) }

// edgeColumns is the shared layout of every edge table.
// Seq preserves insertion order.
type edgeColumns struct {
	Seq       uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	FromID    string    `gorm:"column:from_id;type:varchar(255);not null;index"`
	ToID      string    `gorm:"column:to_id;type:varchar(255);not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// VariesEdgeModel links a variant to its product
type VariesEdgeModel struct{ edgeColumns }

// TableName returns the table name for GORM
func (VariesEdgeModel) TableName() string { return string(graph.EdgeVaries) }

// CategorisesEdgeModel links a category to a product
type CategorisesEdgeModel struct{ edgeColumns }

// TableName returns the table name for GORM
func (CategorisesEdgeModel) TableName() string { return string(graph.EdgeCategorises) }

// AncestorOfEdgeModel links an ancestor category to a descendant
type AncestorOfEdgeModel struct{ edgeColumns }

// TableName returns the table name for GORM
func (AncestorOfEdgeModel) TableName() string { return string(graph.EdgeAncestorOf) }

// SchemaModel records the persisted layout version
type SchemaModel struct {
	Version   int       `gorm:"column:version;primaryKey;autoIncrement:false"`
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
}

// TableName returns the table name for GORM
func (SchemaModel) TableName() string { return "graph_schema" }

// IssueModel is a problem recorded by the last batch run
type IssueModel struct {
	Seq        uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	IssueID    string    `gorm:"column:issue_id;type:varchar(36);not null;uniqueIndex"`
	Kind       string    `gorm:"column:kind;type:varchar(32);not null"`
	Message    string    `gorm:"column:message;type:text;not null"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null"`
}

// TableName returns the table name for GORM
func (IssueModel) TableName() string { return "issue" }

// graphModels lists every table of the graph layout
func graphModels() []any {
	return []any{
		&ProductNodeModel{},
		&VariantNodeModel{},
		&CategoryNodeModel{},
		&ShippingZoneNodeModel{},
		&VariesEdgeModel{},
		&CategorisesEdgeModel{},
		&AncestorOfEdgeModel{},
		&SchemaModel{},
		&IssueModel{},
	}
}

// nodeRow and edgeRow are scanned from whichever table a query names
type nodeRow struct {
	ID        string
	Content   string
	UpdatedAt time.Time
}

type edgeRow struct {
	Seq       uint64
	FromID    string
	ToID      string
	CreatedAt time.Time
}
