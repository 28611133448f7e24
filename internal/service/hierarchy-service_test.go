package service

import (
	"access_service/internal/models"
	"context"
	"testing"
)

func fixtureTree(t *testing.T) *HierarchyTree {
	t.Helper()
	tree, err := NewHierarchyServiceWithStore(fixtureHierarchy()).ConfigTree(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error building tree: %v", err)
	}
	return tree
}

func TestHierarchyTree_FindNode(t *testing.T) {
	tree := fixtureTree(t)

	if node := tree.FindNode("team1", "TEAM"); node == nil || node.NodeID != "team1" {
		t.Errorf("Expected to find team1 at TEAM level, got %v", node)
	}
	if node := tree.FindNode("team1", "DEPT"); node != nil {
		t.Errorf("Expected nil for team1 at the wrong level, got %v", node)
	}
	if node := tree.FindNode("missing", ""); node != nil {
		t.Errorf("Expected nil for unknown node, got %v", node)
	}
}

func TestHierarchyTree_FindParents(t *testing.T) {
	tree := fixtureTree(t)

	parents := tree.FindParents(tree.FindNode("proj1", models.LevelProject))
	want := []string{"team1", "deptA", "org1"}
	if len(parents) != len(want) {
		t.Fatalf("Expected %d ancestors, got %d", len(want), len(parents))
	}
	for i, parent := range parents {
		if parent.NodeID != want[i] {
			t.Errorf("Ancestor %d: expected %s, got %s", i, want[i], parent.NodeID)
		}
	}
}

func TestHierarchyTree_FindChildren(t *testing.T) {
	tree := fixtureTree(t)

	children := tree.FindChildren(tree.FindNode("deptA", "DEPT"))
	got := make(map[string]bool)
	for _, child := range children {
		got[child.NodeID] = true
	}
	for _, want := range []string{"team1", "team2", "proj1", "proj2", "proj3"} {
		if !got[want] {
			t.Errorf("Expected %s in the deptA subtree, got %v", want, got)
		}
	}
	if got["proj4"] || got["deptB"] {
		t.Errorf("deptB branch must not appear in the deptA subtree, got %v", got)
	}
}

func TestHierarchyTree_ParentMap(t *testing.T) {
	tree := fixtureTree(t)

	parents := tree.ParentMap(models.LevelProject, []string{"proj1", "proj4"})
	if !parents.Contains("TEAM", "team1") || !parents.Contains("TEAM", "team3") {
		t.Errorf("Expected both teams in the parent map, got %v", parents)
	}
	if !parents.Contains("ORG", "org1") {
		t.Errorf("Expected the shared root in the parent map, got %v", parents)
	}
	if parents.Contains("TEAM", "team2") {
		t.Errorf("team2 is no ancestor of proj1 or proj4, got %v", parents)
	}

	// unknown items fold to nothing
	if unknown := tree.ParentMap(models.LevelProject, []string{"missing"}); len(unknown) != 0 {
		t.Errorf("Expected empty map for unknown item, got %v", unknown)
	}
}

func TestHierarchyTree_ChildrenMap(t *testing.T) {
	tree := fixtureTree(t)

	children := tree.ChildrenMap("TEAM", []string{"team1"})
	if !children.Contains(models.LevelProject, "proj1") || !children.Contains(models.LevelProject, "proj2") {
		t.Errorf("Expected team1 projects in the children map, got %v", children)
	}
	if children.Contains(models.LevelProject, "proj3") {
		t.Errorf("proj3 belongs to team2, got %v", children)
	}
}

func TestHierarchyTree_LevelOrder(t *testing.T) {
	tree := fixtureTree(t)

	if tree.LevelOrder("ORG") >= tree.LevelOrder("DEPT") {
		t.Error("Expected ORG to sort before DEPT")
	}
	if tree.LevelOrder("TEAM") >= tree.LevelOrder(models.LevelProject) {
		t.Error("Expected TEAM to sort before PROJECT")
	}
	// unknown levels are treated as most specific
	if tree.LevelOrder("UNKNOWN") <= tree.LevelOrder(models.LevelProject) {
		t.Error("Expected unknown levels to sort last")
	}
}

func TestHierarchyTree_LevelsMostSpecificFirst(t *testing.T) {
	tree := fixtureTree(t)

	levels := tree.LevelsMostSpecificFirst()
	want := []string{models.LevelProject, "TEAM", "DEPT", "ORG"}
	if len(levels) != len(want) {
		t.Fatalf("Expected %d levels, got %d", len(want), len(levels))
	}
	for i, level := range levels {
		if level != want[i] {
			t.Errorf("Level %d: expected %s, got %s", i, want[i], level)
		}
	}
}

func TestLevelValueMap_Overlaps(t *testing.T) {
	a := make(LevelValueMap)
	a.Add("TEAM", "team1")
	a.Add("DEPT", "deptA")

	b := make(LevelValueMap)
	b.Add("DEPT", "deptA")
	if !a.Overlaps(b) {
		t.Error("Expected overlap on deptA")
	}

	c := make(LevelValueMap)
	c.Add("DEPT", "deptB")
	c.Add("TEAM", "team3")
	if a.Overlaps(c) {
		t.Error("Expected no overlap across disjoint values")
	}

	// same value under a different level is no overlap
	d := make(LevelValueMap)
	d.Add("ORG", "team1")
	if a.Overlaps(d) {
		t.Error("Expected level-scoped matching, not value-only")
	}
}
