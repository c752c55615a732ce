// Package template clones driver trees from reusable templates. A
// template is an ordinary stored tree flagged as one; importing it
// copies the structure into a new tree under a different project.
package template

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// Importer deep-copies template trees.
type Importer struct {
	logger *slog.Logger
}

// New creates an importer.
func New(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{logger: logger}
}

// Import clones src into a fresh tree owned by projectID. Every node,
// relationship and policy gets a new id; structure, operators, raw
// values and policy targets are preserved in creation order. Data
// bindings are dropped because they reference sources of the template's
// origin project. Import either returns a complete copy or an error
// and no copy at all.
func (im *Importer) Import(src *tree.Tree, projectID, name string) (*tree.Tree, error) {
	if src == nil {
		return nil, fmt.Errorf("template tree is nil")
	}
	if name == "" {
		name = src.Name
	}

	dst := tree.New("", projectID, name)
	idMap := make(map[string]string, src.NodeCount())

	for _, n := range src.Nodes() {
		clone := &tree.Node{
			ID:       uuid.New().String(),
			Label:    n.Label,
			Kind:     n.Kind,
			Position: n.Position,
		}
		if n.RawValue != nil {
			v := *n.RawValue
			clone.RawValue = &v
		}
		if err := dst.AddNode(clone); err != nil {
			return nil, fmt.Errorf("failed to copy node %q: %w", n.Label, err)
		}
		idMap[n.ID] = clone.ID
	}

	// Rebuilding through AddRelationship re-runs the structural
	// validations, so a corrupted template fails here instead of
	// producing a half-imported tree.
	for _, r := range src.Relationships() {
		parentID, ok := idMap[r.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: template parent %s", tree.ErrNodeNotFound, r.ParentID)
		}
		childID, ok := idMap[r.ChildID]
		if !ok {
			return nil, fmt.Errorf("%w: template child %s", tree.ErrNodeNotFound, r.ChildID)
		}
		if _, err := dst.AddRelationship(parentID, childID, r.Operator); err != nil {
			return nil, fmt.Errorf("failed to copy relationship: %w", err)
		}
	}

	for _, p := range src.Policies() {
		targetID, ok := idMap[p.TargetNodeID]
		if !ok {
			return nil, fmt.Errorf("%w: policy target %s", tree.ErrNodeNotFound, p.TargetNodeID)
		}
		clone := &tree.Policy{
			ID:             uuid.New().String(),
			TargetNodeID:   targetID,
			Kind:           p.Kind,
			Value:          p.Value,
			Cost:           p.Cost,
			DurationMonths: p.DurationMonths,
			Status:         p.Status,
		}
		if err := dst.AddPolicy(clone); err != nil {
			return nil, fmt.Errorf("failed to copy policy: %w", err)
		}
	}

	im.logger.Debug("imported template",
		"template_id", src.ID, "tree_id", dst.ID,
		"nodes", dst.NodeCount(), "policies", len(dst.Policies()))
	return dst, nil
}
