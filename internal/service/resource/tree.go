package resource

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
	resourceSvc "lectern/internal/domain/services/resource"
)

// BuildTree projects a flat record set into a forest. Records are indexed by
// path and attached to the folder at ParentOf(path); a record whose parent is
// missing from the set becomes a root. Children are ordered like Browse.
func BuildTree(records []models.ResourceRecord) []*models.TreeNode {
	index := make(map[string]*models.TreeNode, len(records))
	nodes := make([]*models.TreeNode, 0, len(records))
	for _, rec := range records {
		if _, dup := index[rec.Path]; dup {
			continue
		}
		node := &models.TreeNode{
			ResourceRecord: rec,
			Depth:          strings.Count(rec.Path, "/"),
		}
		index[rec.Path] = node
		nodes = append(nodes, node)
	}

	roots := make([]*models.TreeNode, 0)
	for _, node := range nodes {
		parent, ok := index[ParentOf(node.Path)]
		if ok && parent.IsFolder() && parent != node {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*models.TreeNode) {
	cmp := newRecordComparator()
	slices.SortFunc(nodes, func(a, b *models.TreeNode) int {
		return cmp(&a.ResourceRecord, &b.ResourceRecord)
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortNodes(n.Children)
		}
	}
}

// DirectChildren returns the records directly under path, folders first,
// then by name compared case-insensitively.
func DirectChildren(records []models.ResourceRecord, path string) []models.ResourceRecord {
	path = Normalize(path)
	children := make([]models.ResourceRecord, 0)
	for _, rec := range records {
		if IsDirectChild(rec.Path, path) {
			children = append(children, rec)
		}
	}

	SortRecords(children)
	return children
}

// SortRecords applies the browse ordering in place.
func SortRecords(records []models.ResourceRecord) {
	cmp := newRecordComparator()
	slices.SortFunc(records, func(a, b models.ResourceRecord) int {
		return cmp(&a, &b)
	})
}

// newRecordComparator returns a comparator owning its own collator;
// collators are not safe for concurrent use.
func newRecordComparator() func(a, b *models.ResourceRecord) int {
	col := collate.New(language.Und, collate.IgnoreCase)
	return func(a, b *models.ResourceRecord) int {
		if a.IsFolder() != b.IsFolder() {
			if a.IsFolder() {
				return -1
			}
			return 1
		}
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	}
}

// treeService implements the TreeService interface
type treeService struct {
	store  resourceRepo.ResourceStore
	logger *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(store resourceRepo.ResourceStore, logger *slog.Logger) resourceSvc.TreeService {
	return &treeService{
		store:  store,
		logger: logger,
	}
}

// Browse fetches a fresh snapshot and returns the direct children of path
func (s *treeService) Browse(ctx context.Context, courseID, path string) ([]models.ResourceRecord, error) {
	records, err := s.store.List(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	children := DirectChildren(records, path)

	s.logger.Debug("browsed folder",
		"course_id", courseID,
		"path", Normalize(path),
		"children", len(children),
	)

	return children, nil
}

// Tree fetches a fresh snapshot and builds the whole forest
func (s *treeService) Tree(ctx context.Context, courseID string) ([]*models.TreeNode, error) {
	records, err := s.store.List(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	tree := BuildTree(records)

	s.logger.Info("course tree built",
		"course_id", courseID,
		"record_count", len(records),
		"root_count", len(tree),
	)

	return tree, nil
}
