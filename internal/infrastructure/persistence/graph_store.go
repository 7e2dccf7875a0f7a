package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormGraphStore implements graph.Store on one table per node kind and one per edge kind
type GormGraphStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ graph.Store = (*GormGraphStore)(nil)

// NewGormGraphStore creates a new GormGraphStore
func NewGormGraphStore(db *gorm.DB) *GormGraphStore {
	return &GormGraphStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func nodeTable(op string, kind graph.NodeKind) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewStorageError(op, fmt.Errorf("%w: %q", graph.ErrUnknownNodeKind, kind))
	}
	return string(kind), nil
}

func edgeTable(op string, kind graph.EdgeKind) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewStorageError(op, fmt.Errorf("%w: %q", graph.ErrUnknownEdgeKind, kind))
	}
	return string(kind), nil
}

// UpsertNode replaces the node content, inserting the node if it does not exist
func (s *GormGraphStore) UpsertNode(ctx context.Context, ref graph.NodeRef, content json.RawMessage) error {
	table, err := nodeTable("graph.upsert_node", ref.Kind)
	if err != nil {
		return err
	}
	if !json.Valid(content) {
		return shared.NewStorageError("graph.upsert_node", fmt.Errorf("content of %s is not valid JSON", ref))
	}
	row := nodeRow{ID: ref.ID, Content: string(content), UpdatedAt: s.now()}
	err = s.db.WithContext(ctx).Table(table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return shared.NewStorageError("graph.upsert_node", fmt.Errorf("%s: %w", ref, err))
	}
	return nil
}

// GetNode returns a single node
func (s *GormGraphStore) GetNode(ctx context.Context, ref graph.NodeRef) (*graph.Node, error) {
	table, err := nodeTable("graph.get_node", ref.Kind)
	if err != nil {
		return nil, err
	}
	var row nodeRow
	err = s.db.WithContext(ctx).Table(table).Where("id = ?", ref.ID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, ref)
		}
		return nil, shared.NewStorageError("graph.get_node", fmt.Errorf("%s: %w", ref, err))
	}
	node := toNode(ref.Kind, row)
	return &node, nil
}

// DeleteNode removes the node and every edge that touches it
func (s *GormGraphStore) DeleteNode(ctx context.Context, ref graph.NodeRef) error {
	table, err := nodeTable("graph.delete_node", ref.Kind)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ek := range graph.EdgeKinds {
			asFrom, asTo := ek.Touches(ref.Kind)
			if err := clearEdges(tx, ek, ref.ID, asFrom, asTo); err != nil {
				return err
			}
		}
		return tx.Table(table).Where("id = ?", ref.ID).Delete(&nodeRow{}).Error
	})
	if err != nil {
		return shared.NewStorageError("graph.delete_node", fmt.Errorf("%s: %w", ref, err))
	}
	return nil
}

// NodesOf lists every node of a kind ordered by id
func (s *GormGraphStore) NodesOf(ctx context.Context, kind graph.NodeKind) ([]graph.Node, error) {
	table, err := nodeTable("graph.nodes_of", kind)
	if err != nil {
		return nil, err
	}
	var rows []nodeRow
	if err := s.db.WithContext(ctx).Table(table).Order("id").Find(&rows).Error; err != nil {
		return nil, shared.NewStorageError("graph.nodes_of", fmt.Errorf("%s: %w", kind, err))
	}
	nodes := make([]graph.Node, len(rows))
	for i, row := range rows {
		nodes[i] = toNode(kind, row)
	}
	return nodes, nil
}

// ClearEdges deletes every edge of the kind touching the node in the given direction
func (s *GormGraphStore) ClearEdges(ctx context.Context, kind graph.EdgeKind, ref graph.NodeRef, dir graph.Direction) error {
	if _, err := edgeTable("graph.clear_edges", kind); err != nil {
		return err
	}
	asFrom, asTo := kind.Touches(ref.Kind)
	switch dir {
	case graph.Out:
		asTo = false
	case graph.In:
		asFrom = false
	}
	if err := clearEdges(s.db.WithContext(ctx), kind, ref.ID, asFrom, asTo); err != nil {
		return shared.NewStorageError("graph.clear_edges", fmt.Errorf("%s %s %s: %w", kind, dir, ref, err))
	}
	return nil
}

func clearEdges(db *gorm.DB, kind graph.EdgeKind, id string, asFrom, asTo bool) error {
	var q *gorm.DB
	switch {
	case asFrom && asTo:
		q = db.Table(string(kind)).Where("from_id = ? OR to_id = ?", id, id)
	case asFrom:
		q = db.Table(string(kind)).Where("from_id = ?", id)
	case asTo:
		q = db.Table(string(kind)).Where("to_id = ?", id)
	default:
		return nil
	}
	return q.Delete(&edgeRow{}).Error
}

// Relate inserts one edge after checking its endpoint kinds
func (s *GormGraphStore) Relate(ctx context.Context, from graph.NodeRef, kind graph.EdgeKind, to graph.NodeRef) error {
	if err := kind.Check(from, to); err != nil {
		return shared.NewStorageError("graph.relate", err)
	}
	row := edgeRow{FromID: from.ID, ToID: to.ID, CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Table(string(kind)).Omit("seq").Create(&row).Error; err != nil {
		return shared.NewStorageError("graph.relate", fmt.Errorf("%s -%s-> %s: %w", from, kind, to, err))
	}
	return nil
}

// Related returns the nodes on the other side of matching edges in edge insertion order
func (s *GormGraphStore) Related(ctx context.Context, ref graph.NodeRef, kind graph.EdgeKind, dir graph.Direction) ([]graph.Node, error) {
	fromKind, toKind, ok := kind.Endpoints()
	if !ok {
		return nil, shared.NewStorageError("graph.related", fmt.Errorf("%w: %q", graph.ErrUnknownEdgeKind, kind))
	}
	asFrom, asTo := kind.Touches(ref.Kind)
	switch dir {
	case graph.Out:
		asTo = false
	case graph.In:
		asFrom = false
	}
	if !asFrom && !asTo {
		return nil, shared.NewStorageError("graph.related",
			fmt.Errorf("%w: %s has no %s side for %s", graph.ErrEndpointMismatch, kind, dir, ref.Kind))
	}

	db := s.db.WithContext(ctx)
	q := db.Table(string(kind)).Order("seq")
	switch {
	case asFrom && asTo:
		q = q.Where("from_id = ? OR to_id = ?", ref.ID, ref.ID)
	case asFrom:
		q = q.Where("from_id = ?", ref.ID)
	default:
		q = q.Where("to_id = ?", ref.ID)
	}
	var edges []edgeRow
	if err := q.Find(&edges).Error; err != nil {
		return nil, shared.NewStorageError("graph.related", fmt.Errorf("%s %s %s: %w", kind, dir, ref, err))
	}
	if len(edges) == 0 {
		return nil, nil
	}

	// Both sides of ancestor_of are categories, so the neighbour kind is fixed per side.
	neighbours := make([]graph.NodeRef, 0, len(edges))
	for _, e := range edges {
		if asFrom && e.FromID == ref.ID {
			neighbours = append(neighbours, graph.Ref(toKind, e.ToID))
		} else {
			neighbours = append(neighbours, graph.Ref(fromKind, e.FromID))
		}
	}

	byRef, err := s.loadNodes(db, neighbours)
	if err != nil {
		return nil, shared.NewStorageError("graph.related", fmt.Errorf("%s %s %s: %w", kind, dir, ref, err))
	}
	nodes := make([]graph.Node, 0, len(neighbours))
	for _, n := range neighbours {
		if node, ok := byRef[n]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func (s *GormGraphStore) loadNodes(db *gorm.DB, refs []graph.NodeRef) (map[graph.NodeRef]graph.Node, error) {
	idsByKind := make(map[graph.NodeKind][]string)
	for _, r := range refs {
		idsByKind[r.Kind] = append(idsByKind[r.Kind], r.ID)
	}
	out := make(map[graph.NodeRef]graph.Node, len(refs))
	for kind, ids := range idsByKind {
		var rows []nodeRow
		if err := db.Table(string(kind)).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out[graph.Ref(kind, row.ID)] = toNode(kind, row)
		}
	}
	return out, nil
}

// SchemaVersion returns the highest recorded layout version, or 0 when none is recorded
func (s *GormGraphStore) SchemaVersion(ctx context.Context) (int, error) {
	var row SchemaModel
	err := s.db.WithContext(ctx).Order("version DESC").Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, shared.NewStorageError("graph.schema_version", err)
	}
	return row.Version, nil
}

// RecordIssues replaces the stored issues with the given ones
func (s *GormGraphStore) RecordIssues(ctx context.Context, issues []graph.Issue) error {
	models := make([]IssueModel, len(issues))
	for i, issue := range issues {
		id := issue.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		recordedAt := issue.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = s.now()
		}
		models[i] = IssueModel{
			IssueID:    id.String(),
			Kind:       issue.Kind,
			Message:    issue.Message,
			RecordedAt: recordedAt,
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&IssueModel{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(models, 100).Error
	})
	if err != nil {
		return shared.NewStorageError("graph.record_issues", err)
	}
	return nil
}

// Issues returns the stored issues in the order they were recorded
func (s *GormGraphStore) Issues(ctx context.Context) ([]graph.Issue, error) {
	var models []IssueModel
	if err := s.db.WithContext(ctx).Order("seq").Find(&models).Error; err != nil {
		return nil, shared.NewStorageError("graph.issues", err)
	}
	issues := make([]graph.Issue, 0, len(models))
	for _, m := range models {
		id, err := uuid.Parse(m.IssueID)
		if err != nil {
			return nil, shared.NewStorageError("graph.issues", fmt.Errorf("issue %d: %w", m.Seq, err))
		}
		issues = append(issues, graph.Issue{
			ID:         id,
			Kind:       m.Kind,
			Message:    m.Message,
			RecordedAt: m.RecordedAt,
		})
	}
	return issues, nil
}

func toNode(kind graph.NodeKind, row nodeRow) graph.Node {
	return graph.Node{
		Ref:       graph.Ref(kind, row.ID),
		Content:   json.RawMessage(row.Content),
		UpdatedAt: row.UpdatedAt,
	}
}
