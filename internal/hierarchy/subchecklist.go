package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dmcosta/inspeq/internal/model"
)

// ErrUnavailable is returned when a referenced sub-checklist cannot be
// resolved: it was deleted, failed to load, or has no questions. The owning
// question remains answerable on its own terms.
var ErrUnavailable = errors.New("sub-checklist unavailable")

// Fetcher resolves a sub-checklist id to its flat question set. The storage
// layer provides the production implementation.
type Fetcher interface {
	FetchChecklist(ctx context.Context, id string) (*model.SubChecklist, error)
}

// SubChecklistNode is a referenced checklist resolved into an attachable
// tree. It is independently numbered and is never spliced into the parent
// checklist's tree; responses to it live under the owning question's
// SubChecklistResponses namespace.
type SubChecklistNode struct {
	ChecklistID string           `json:"checklist_id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Questions   []model.Question `json:"questions"`
	Roots       []*Node          `json:"-"`
}

// Linker resolves questions' sub-checklist references through a Fetcher.
type Linker struct {
	fetcher Fetcher
}

// NewLinker creates a Linker backed by the given fetcher.
func NewLinker(f Fetcher) *Linker {
	return &Linker{fetcher: f}
}

// Attach resolves q's sub-checklist reference into a tree the same engine
// functions can operate on. It returns (nil, nil) when q carries no
// reference, and an error wrapping ErrUnavailable when the reference cannot
// be resolved. Imported questions pass through the response-type
// normalization table so legacy spellings become the canonical enum.
func (l *Linker) Attach(ctx context.Context, q model.Question) (*SubChecklistNode, error) {
	if q.SubChecklistID == "" {
		return nil, nil
	}
	return l.resolve(ctx, q.SubChecklistID)
}

func (l *Linker) resolve(ctx context.Context, id string) (*SubChecklistNode, error) {
	cl, err := l.fetcher.FetchChecklist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrUnavailable, id, err)
	}
	if cl == nil || len(cl.Questions) == 0 {
		return nil, fmt.Errorf("%w: %s has no questions", ErrUnavailable, id)
	}

	questions := make([]model.Question, len(cl.Questions))
	for i, sq := range cl.Questions {
		sq.ResponseType = model.NormalizeResponseType(string(sq.ResponseType))
		questions[i] = sq
	}

	return &SubChecklistNode{
		ChecklistID: cl.ID,
		Title:       cl.Title,
		Description: cl.Description,
		Questions:   questions,
		Roots:       BuildTree(questions),
	}, nil
}

// AttachAll resolves every question carrying a sub-checklist reference and
// returns the results keyed by owning question id. One fetch is issued per
// distinct sub-checklist id and resolutions run concurrently; a failed
// resolution is logged and surfaced as an absent map entry, never aborting
// its siblings. Meant to be called once per inspection load.
func (l *Linker) AttachAll(ctx context.Context, questions []model.Question) map[string]*SubChecklistNode {
	type result struct {
		node *SubChecklistNode
		err  error
	}

	byChecklist := make(map[string]*result)
	for _, q := range questions {
		if q.SubChecklistID != "" {
			byChecklist[q.SubChecklistID] = &result{}
		}
	}

	var wg sync.WaitGroup
	for id, res := range byChecklist {
		wg.Add(1)
		go func(id string, res *result) {
			defer wg.Done()
			res.node, res.err = l.resolve(ctx, id)
		}(id, res)
	}
	wg.Wait()

	out := make(map[string]*SubChecklistNode)
	for _, q := range questions {
		if q.SubChecklistID == "" {
			continue
		}
		res := byChecklist[q.SubChecklistID]
		if res.err != nil {
			slog.Warn("sub-checklist resolution failed",
				"question_id", q.ID,
				"sub_checklist_id", q.SubChecklistID,
				"error", res.err)
			continue
		}
		out[q.ID] = res.node
	}
	return out
}
