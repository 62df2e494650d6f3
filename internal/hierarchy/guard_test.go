package hierarchy

import (
	"testing"

	"github.com/dmcosta/inspeq/internal/model"
)

func TestIsValidParent(t *testing.T) {
	// q1 -> q2 -> q3 -> q4 is a stored chain (q4 deepest).
	chain := []model.Question{
		q("q1", 0),
		child("q2", 1, "q1", model.AnswerYes),
		child("q3", 2, "q2", model.AnswerYes),
		child("q4", 3, "q3", model.AnswerYes),
		q("q5", 4),
	}
	byID := map[string]model.Question{}
	for _, qq := range chain {
		byID[qq.ID] = qq
	}

	tests := []struct {
		name      string
		candidate string
		child     string
		want      bool
	}{
		{"self parenting", "q1", "q1", false},
		{"cycle via ancestor", "q3", "q1", false},
		{"direct cycle", "q2", "q1", false},
		{"depth would exceed max", "q4", "q5", false},
		{"at max depth", "q3", "q5", true},
		{"root parent", "q1", "q5", true},
		{"reparent within chain", "q1", "q3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidParent(byID[tt.candidate], byID[tt.child], chain)
			if got != tt.want {
				t.Errorf("IsValidParent(%s, %s) = %v, want %v", tt.candidate, tt.child, got, tt.want)
			}
		})
	}
}

func TestIsValidParentMalformedData(t *testing.T) {
	// Candidate sits on top of a stored cycle; the walk must terminate and
	// answer without hanging.
	questions := []model.Question{
		child("a", 0, "b", model.AnswerYes),
		child("b", 1, "a", model.AnswerYes),
		q("x", 2),
	}

	if !IsValidParent(questions[2], questions[0], questions) {
		t.Error("attaching cycle member under a fresh root should be allowed")
	}
	if IsValidParent(questions[0], questions[0], questions) {
		t.Error("self parenting must be rejected even on malformed data")
	}
}

func TestIsValidParentDanglingCandidate(t *testing.T) {
	questions := []model.Question{
		child("orphan", 0, "missing", model.AnswerYes),
		q("x", 1),
	}

	// A dangling parent reference counts as reaching a root, so the orphan
	// is a valid parent at depth 0.
	if !IsValidParent(questions[0], questions[1], questions) {
		t.Error("dangling candidate should act as a root parent")
	}
}

func TestQuestionDepth(t *testing.T) {
	questions := []model.Question{
		q("q1", 0),
		child("q2", 1, "q1", model.AnswerYes),
		child("q3", 2, "q2", model.AnswerYes),
		child("orphan", 3, "missing", model.AnswerYes),
		child("cyclic", 4, "cyclic2", model.AnswerYes),
		child("cyclic2", 5, "cyclic", model.AnswerYes),
	}
	byID := map[string]model.Question{}
	for _, qq := range questions {
		byID[qq.ID] = qq
	}

	tests := []struct {
		id   string
		want int
	}{
		{"q1", 0},
		{"q2", 1},
		{"q3", 2},
		{"orphan", 0}, // dangling parent is the depth-0 base case
		{"cyclic", 2}, // walk stops once it revisits its starting node
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := QuestionDepth(byID[tt.id], questions)
			if got != tt.want {
				t.Errorf("QuestionDepth(%s) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

// Repeated valid reparenting can never produce a node deeper than MaxDepth.
func TestDepthBoundUnderReparenting(t *testing.T) {
	questions := []model.Question{
		q("r", 0),
		child("c1", 1, "r", model.AnswerYes),
		child("c2", 2, "c1", model.AnswerYes),
		child("c3", 3, "c2", model.AnswerYes),
		q("free", 4),
	}

	for _, candidate := range questions[:4] {
		if !IsValidParent(candidate, questions[4], questions) {
			continue
		}
		moved := questions[4]
		moved.ParentQuestionID = candidate.ID
		updated := append(append([]model.Question{}, questions[:4]...), moved)
		if d := QuestionDepth(moved, updated); d > MaxDepth {
			t.Errorf("reparenting under %s produced depth %d > %d", candidate.ID, d, MaxDepth)
		}
	}
}
