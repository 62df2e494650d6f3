// Package hierarchy turns a checklist's flat question records into a tree of
// parent/child/conditional questions, decides which questions are visible
// given the answers collected so far, and assigns dotted hierarchical numbers.
// Everything here is pure and in-memory: trees are disposable views rebuilt
// from the flat set on demand, never persisted.
package hierarchy

import (
	"sort"

	"github.com/dmcosta/inspeq/internal/model"
)

// MaxDepth is the deepest ancestor chain a question may have. A root is at
// depth 0, so at most four generations exist.
const MaxDepth = 3

// Node is a question wrapped with derived tree links. Children is the sole
// owning relationship; Parent is a navigation aid for upward walks only.
type Node struct {
	Question model.Question
	Children []*Node
	Parent   *Node
	Level    int
}

// BuildTree converts a flat question list into a forest of root nodes.
// Questions whose ParentQuestionID is empty, self-referencing, or dangling
// become roots; nothing is ever dropped. A pre-existing cycle in stored data
// is broken deterministically: the first cycle member (in input order) whose
// upward walk returns to itself is demoted to root, after which the remaining
// members attach normally. Sibling lists are sorted by Order, stable on ties.
// The input records are not mutated.
func BuildTree(questions []model.Question) []*Node {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	// demoted marks questions forced to root to break a cycle. It grows as
	// questions are classified, so later cycle members see the break point.
	demoted := make(map[string]bool)
	isRoot := func(q model.Question) bool {
		if q.IsRoot() || demoted[q.ID] {
			return true
		}
		if _, ok := byID[q.ParentQuestionID]; !ok {
			return true
		}
		return false
	}

	for _, q := range questions {
		if isRoot(q) {
			continue
		}
		seen := map[string]bool{q.ID: true}
		cur := q
		for {
			p, ok := byID[cur.ParentQuestionID]
			if !ok || p.IsRoot() || demoted[p.ID] {
				break
			}
			if p.ID == q.ID {
				demoted[q.ID] = true
				break
			}
			if seen[p.ID] {
				// Cycle that does not pass through q; it is broken at the
				// member whose own walk closes on itself.
				break
			}
			seen[p.ID] = true
			cur = p
		}
	}

	nodes := make(map[string]*Node, len(questions))
	var roots []*Node
	for _, q := range questions {
		nodes[q.ID] = &Node{Question: q}
	}
	for _, q := range questions {
		n := nodes[q.ID]
		if isRoot(q) {
			roots = append(roots, n)
			continue
		}
		parent := nodes[q.ParentQuestionID]
		parent.Children = append(parent.Children, n)
		n.Parent = parent
	}

	sortSiblings(roots)
	for _, r := range roots {
		finishNode(r, 0, nil)
	}
	return roots
}

// finishNode sorts children, assigns levels and parent back-references.
// visited guards against a cycle that survived demotion; a revisited node is
// treated as a leaf.
func finishNode(n *Node, level int, visited map[string]bool) {
	if visited == nil {
		visited = make(map[string]bool)
	}
	if visited[n.Question.ID] {
		n.Children = nil
		return
	}
	visited[n.Question.ID] = true
	n.Level = level
	sortSiblings(n.Children)
	for _, c := range n.Children {
		c.Parent = n
		finishNode(c, level+1, visited)
	}
}

func sortSiblings(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Question.Order < nodes[j].Question.Order
	})
}
