package service

import (
	"access_service/internal/models"
	"access_service/internal/repository"
	"context"
	"sort"
)

// LevelValueMap accumulates hierarchy values grouped by level id. The
// engine builds these with explicit folds over ancestor/descendant walks
// so the redundancy and purge checks stay independent of tree traversal.
type LevelValueMap map[string]map[string]bool

func (m LevelValueMap) Add(levelID, value string) {
	values, ok := m[levelID]
	if !ok {
		values = make(map[string]bool)
		m[levelID] = values
	}
	values[value] = true
}

func (m LevelValueMap) Contains(levelID, value string) bool {
	return m[levelID][value]
}

// Overlaps reports whether any level present in both maps shares a value.
func (m LevelValueMap) Overlaps(other LevelValueMap) bool {
	for levelID, values := range m {
		otherValues, ok := other[levelID]
		if !ok {
			continue
		}
		for value := range values {
			if otherValues[value] {
				return true
			}
		}
	}
	return false
}

type HierarchyService struct {
	hierarchyRepo HierarchyStore
}

func NewHierarchyService() *HierarchyService {
	return &HierarchyService{
		hierarchyRepo: repository.Repositories_instance.HierarchyRepository,
	}
}

func NewHierarchyServiceWithStore(store HierarchyStore) *HierarchyService {
	return &HierarchyService{hierarchyRepo: store}
}

// ConfigTree loads the whole organization tree once per operation; all
// lookups afterwards are in-memory and side-effect free.
func (s *HierarchyService) ConfigTree(ctx context.Context) (*HierarchyTree, error) {
	nodes, err := s.hierarchyRepo.FindAllNodes(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := s.hierarchyRepo.FindAllLevels(ctx)
	if err != nil {
		return nil, err
	}
	return NewHierarchyTree(nodes, levels), nil
}

type HierarchyTree struct {
	nodesByID map[string]*models.HierarchyNode
	children  map[string][]*models.HierarchyNode
	levels    []*models.HierarchyLevel
}

func NewHierarchyTree(nodes []*models.HierarchyNode, levels []*models.HierarchyLevel) *HierarchyTree {
	tree := &HierarchyTree{
		nodesByID: make(map[string]*models.HierarchyNode, len(nodes)),
		children:  make(map[string][]*models.HierarchyNode),
		levels:    append([]*models.HierarchyLevel(nil), levels...),
	}
	for _, node := range nodes {
		tree.nodesByID[node.NodeID] = node
		if node.ParentID != "" {
			tree.children[node.ParentID] = append(tree.children[node.ParentID], node)
		}
	}
	sort.Slice(tree.levels, func(i, j int) bool {
		return tree.levels[i].Order < tree.levels[j].Order
	})
	return tree
}

func (t *HierarchyTree) FindNode(itemID, levelID string) *models.HierarchyNode {
	node, ok := t.nodesByID[itemID]
	if !ok {
		return nil
	}
	if levelID != "" && node.LevelID != levelID {
		return nil
	}
	return node
}

func (t *HierarchyTree) FindParents(node *models.HierarchyNode) []*models.HierarchyNode {
	var parents []*models.HierarchyNode
	for node != nil && node.ParentID != "" {
		parent, ok := t.nodesByID[node.ParentID]
		if !ok {
			break
		}
		parents = append(parents, parent)
		node = parent
	}
	return parents
}

func (t *HierarchyTree) FindChildren(node *models.HierarchyNode) []*models.HierarchyNode {
	if node == nil {
		return nil
	}
	var descendants []*models.HierarchyNode
	queue := append([]*models.HierarchyNode(nil), t.children[node.NodeID]...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		descendants = append(descendants, current)
		queue = append(queue, t.children[current.NodeID]...)
	}
	return descendants
}

// ParentMap folds the ancestor chains of the given items into level->values.
func (t *HierarchyTree) ParentMap(levelID string, itemIDs []string) LevelValueMap {
	result := make(LevelValueMap)
	for _, itemID := range itemIDs {
		node := t.FindNode(itemID, levelID)
		if node == nil {
			continue
		}
		for _, parent := range t.FindParents(node) {
			result.Add(parent.LevelID, parent.NodeID)
		}
	}
	return result
}

// ChildrenMap folds the descendant subtrees of the given items into
// level->values.
func (t *HierarchyTree) ChildrenMap(levelID string, itemIDs []string) LevelValueMap {
	result := make(LevelValueMap)
	for _, itemID := range itemIDs {
		node := t.FindNode(itemID, levelID)
		if node == nil {
			continue
		}
		for _, child := range t.FindChildren(node) {
			result.Add(child.LevelID, child.NodeID)
		}
	}
	return result
}

// LevelOrder returns the position of a level, broadest first. Unknown
// levels sort last so they are treated as most specific.
func (t *HierarchyTree) LevelOrder(levelID string) int {
	for i, level := range t.levels {
		if level.LevelID == levelID {
			return i
		}
	}
	return len(t.levels)
}

// LevelsMostSpecificFirst returns level ids from the narrowest rung up.
func (t *HierarchyTree) LevelsMostSpecificFirst() []string {
	out := make([]string, 0, len(t.levels))
	for i := len(t.levels) - 1; i >= 0; i-- {
		out = append(out, t.levels[i].LevelID)
	}
	return out
}
