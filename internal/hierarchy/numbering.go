package hierarchy

import (
	"sort"
	"strconv"

	"github.com/dmcosta/inspeq/internal/model"
)

// NumberOf computes the dotted hierarchical label for a question: "3" for the
// third root question of its group, "2.3" for the same position when the
// checklist has multiple groups and the question sits in the second one
// (groupIndex > 0), "2.3.1" for that question's first conditional child.
// Numbers are derived from the flat set on every call and never stored.
// Numbering follows the same order and tie-break rules as BuildTree, so the
// label sequence and the rendered tree never diverge.
func NumberOf(q model.Question, all []model.Question, groupIndex int) string {
	return numberOf(q, indexByID(all), all, groupIndex, make(map[string]bool))
}

func numberOf(q model.Question, byID map[string]model.Question, all []model.Question, groupIndex int, seen map[string]bool) string {
	seen[q.ID] = true
	if !q.IsRoot() {
		if p, ok := byID[q.ParentQuestionID]; ok && !seen[p.ID] {
			idx := siblingIndex(q, all)
			return numberOf(p, byID, all, groupIndex, seen) + "." + strconv.Itoa(idx)
		}
		// Dangling parent or cycle: number the question as a root, matching
		// the tree builder's demotion.
	}

	idx := rootIndex(q, all, byID)
	if groupIndex > 0 {
		return strconv.Itoa(groupIndex+1) + "." + strconv.Itoa(idx)
	}
	return strconv.Itoa(idx)
}

// siblingIndex is the 1-based position of q among questions declaring the
// same parent, sorted by Order with input order breaking ties.
func siblingIndex(q model.Question, all []model.Question) int {
	var siblings []model.Question
	for _, other := range all {
		if other.ParentQuestionID == q.ParentQuestionID && !other.IsRoot() {
			siblings = append(siblings, other)
		}
	}
	return positionOf(q.ID, siblings)
}

// rootIndex is the 1-based position of q among root questions of the same
// group. Questions demoted to root by a dangling parent count as roots here
// too, so numbering agrees with the built tree.
func rootIndex(q model.Question, all []model.Question, byID map[string]model.Question) int {
	var roots []model.Question
	for _, other := range all {
		if !rootLike(other, byID) {
			continue
		}
		if other.GroupID == q.GroupID {
			roots = append(roots, other)
		}
	}
	return positionOf(q.ID, roots)
}

func rootLike(q model.Question, byID map[string]model.Question) bool {
	if q.IsRoot() {
		return true
	}
	_, ok := byID[q.ParentQuestionID]
	return !ok
}

func positionOf(id string, siblings []model.Question) int {
	sort.SliceStable(siblings, func(i, j int) bool {
		return siblings[i].Order < siblings[j].Order
	})
	for i, s := range siblings {
		if s.ID == id {
			return i + 1
		}
	}
	// q itself was filtered out (cycle demotion); count it after its peers.
	return len(siblings) + 1
}
