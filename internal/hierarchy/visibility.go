package hierarchy

import "github.com/dmcosta/inspeq/internal/model"

// IsVisible reports whether n must currently be shown and answered. Roots are
// always visible. A child is visible only while its parent is visible and the
// parent's recorded answer equals the child's condition value; an unanswered
// parent hides the whole branch. The walk is guarded so a malformed tree with
// a parent-pointer cycle evaluates to hidden instead of hanging.
func IsVisible(n *Node, responses map[string]model.Response) bool {
	seen := make(map[string]bool)
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		if seen[cur.Question.ID] {
			return false
		}
		seen[cur.Question.ID] = true
		if !conditionMet(cur.Parent.Question, cur.Question, responses) {
			return false
		}
	}
	return true
}

// conditionMet checks a single parent/child link. Absence of an answer is not
// a wildcard: no recorded response means the child stays hidden.
func conditionMet(parent, child model.Question, responses map[string]model.Response) bool {
	r, ok := responses[parent.ID]
	if !ok {
		return false
	}
	return r.Value == child.ConditionValue
}

// FilterVisible returns a new forest containing only the visible nodes,
// preserving relative order. The returned nodes are fresh wrappers around the
// same question records; the input forest is not mutated.
func FilterVisible(roots []*Node, responses map[string]model.Response) []*Node {
	out := make([]*Node, 0, len(roots))
	for _, r := range roots {
		out = append(out, pruneInvisible(r, nil, responses, make(map[string]bool)))
	}
	return out
}

func pruneInvisible(n, parent *Node, responses map[string]model.Response, seen map[string]bool) *Node {
	copied := &Node{Question: n.Question, Parent: parent, Level: n.Level}
	if seen[n.Question.ID] {
		return copied
	}
	seen[n.Question.ID] = true
	for _, c := range n.Children {
		if conditionMet(n.Question, c.Question, responses) {
			copied.Children = append(copied.Children, pruneInvisible(c, copied, responses, seen))
		}
	}
	return copied
}

// FlattenTree produces the forest as an ordered, depth-first sequence with
// every parent preceding its children. This is the sequence callers render.
// A revisited node is treated as a leaf so a malformed tree still yields a
// finite sequence.
func FlattenTree(roots []*Node) []*Node {
	var out []*Node
	seen := make(map[string]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if seen[n.Question.ID] {
			return
		}
		seen[n.Question.ID] = true
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}
