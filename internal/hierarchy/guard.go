package hierarchy

import "github.com/dmcosta/inspeq/internal/model"

// IsValidParent reports whether child may be reparented under candidate
// without creating a cycle or exceeding MaxDepth. It is an advisory check for
// the authoring layer; BuildTree never calls it and tolerates bad data on its
// own. The upward walk terminates even on malformed input: a dangling parent
// reference or a revisited id counts as reaching a root.
func IsValidParent(candidate, child model.Question, all []model.Question) bool {
	if candidate.ID == child.ID {
		return false
	}

	byID := indexByID(all)
	seen := make(map[string]bool)
	depth := 0
	cur := candidate
	for {
		if cur.ID == child.ID {
			return false // child is already an ancestor of candidate
		}
		if seen[cur.ID] || cur.IsRoot() {
			break
		}
		seen[cur.ID] = true
		p, ok := byID[cur.ParentQuestionID]
		if !ok {
			break
		}
		cur = p
		depth++
	}

	// Attaching under candidate puts child at depth+1.
	return depth < MaxDepth
}

// QuestionDepth returns the number of parent hops from q to its nearest root
// ancestor. A dangling or self-referencing parent is the depth-0 base case,
// and a revisited id terminates the walk so stored cycles cannot hang it.
func QuestionDepth(q model.Question, all []model.Question) int {
	byID := indexByID(all)
	seen := make(map[string]bool)
	depth := 0
	cur := q
	for {
		if seen[cur.ID] || cur.IsRoot() {
			return depth
		}
		seen[cur.ID] = true
		p, ok := byID[cur.ParentQuestionID]
		if !ok {
			return depth
		}
		cur = p
		depth++
	}
}

func indexByID(questions []model.Question) map[string]model.Question {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return byID
}
