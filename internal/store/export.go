package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dmcosta/inspeq/internal/hierarchy"
	"github.com/dmcosta/inspeq/internal/model"
)

// ExportAllInspections builds export-ready results for every inspection.
// Dotted question numbers are recomputed through the hierarchy engine at
// export time; they are never read from storage because they are never
// written to it.
func (s *Store) ExportAllInspections(ctx context.Context) (*model.InspectionsExport, error) {
	inspections, err := s.ListInspections()
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}

	linker := hierarchy.NewLinker(s)

	var results []model.InspectionResult
	for _, ins := range inspections {
		cl, err := s.GetChecklist(ins.ChecklistID)
		if err != nil {
			return nil, fmt.Errorf("get checklist %s: %w", ins.ChecklistID, err)
		}
		questions, err := s.ListQuestions(ins.ChecklistID)
		if err != nil {
			return nil, fmt.Errorf("list questions for %s: %w", ins.ChecklistID, err)
		}
		groups, err := s.ListGroups(ins.ChecklistID)
		if err != nil {
			return nil, fmt.Errorf("list groups for %s: %w", ins.ChecklistID, err)
		}
		responses, err := s.GetResponses(ins.ID)
		if err != nil {
			return nil, fmt.Errorf("get responses for %s: %w", ins.ID, err)
		}

		groupIndex := groupIndexes(groups)
		subs := linker.AttachAll(ctx, questions)

		var items []model.ItemResult
		for _, n := range hierarchy.FlattenTree(hierarchy.BuildTree(questions)) {
			q := n.Question
			item := model.ItemResult{
				Number:       hierarchy.NumberOf(q, questions, groupIndex[rootGroupID(n)]),
				QuestionText: q.Text,
				ResponseType: q.ResponseType,
				IsRequired:   q.IsRequired,
				Weight:       q.Weight,
			}
			if r, ok := responses[q.ID]; ok {
				item.Value = r.Value
				item.Comment = r.Comment
				item.MediaURLs = r.MediaURLs
				item.ActionPlan = r.ActionPlan
			}
			if sub, ok := subs[q.ID]; ok {
				item.SubChecklist = subItems(sub, responses[q.ID])
			}
			items = append(items, item)
		}

		results = append(results, model.InspectionResult{
			InspectionID:   ins.ID,
			ChecklistTitle: cl.Title,
			Inspector:      ins.Inspector,
			Status:         ins.Status,
			StartedAt:      ins.StartedAt,
			CompletedAt:    ins.CompletedAt,
			Items:          items,
		})
	}

	return &model.InspectionsExport{ExportedAt: time.Now(), Inspections: results}, nil
}

// subItems renders a resolved sub-checklist with its own independent
// numbering, pulling answers from the owning question's response namespace.
func subItems(sub *hierarchy.SubChecklistNode, owner model.Response) []model.ItemResult {
	var items []model.ItemResult
	for _, n := range hierarchy.FlattenTree(sub.Roots) {
		q := n.Question
		item := model.ItemResult{
			Number:       hierarchy.NumberOf(q, sub.Questions, 0),
			QuestionText: q.Text,
			ResponseType: q.ResponseType,
			IsRequired:   q.IsRequired,
			Weight:       q.Weight,
		}
		if r, ok := owner.SubChecklistResponses[q.ID]; ok {
			item.Value = r.Value
			item.Comment = r.Comment
			item.MediaURLs = r.MediaURLs
			item.ActionPlan = r.ActionPlan
		}
		items = append(items, item)
	}
	return items
}

// groupIndexes maps group id to its 0-based position. With zero or one group
// every question numbers without a prefix, so the map stays empty-safe.
func groupIndexes(groups []model.QuestionGroup) map[string]int {
	idx := make(map[string]int, len(groups))
	if len(groups) < 2 {
		return idx
	}
	for i, g := range groups {
		idx[g.ID] = i
	}
	return idx
}

// rootGroupID walks to the node's root ancestor: children belong to their
// root's group for numbering purposes even when GroupID was never recomputed
// on the child rows.
func rootGroupID(n *hierarchy.Node) string {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur.Question.GroupID
}
