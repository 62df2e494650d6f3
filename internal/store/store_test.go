package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmcosta/inspeq/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestChecklist(t *testing.T, s *Store, title string) string {
	t.Helper()
	id, err := s.CreateChecklist(model.Checklist{Title: title, IsTemplate: true})
	if err != nil {
		t.Fatalf("createTestChecklist: %v", err)
	}
	return id
}

func insertTestQuestion(t *testing.T, s *Store, checklistID, text string, order int) model.Question {
	t.Helper()
	q := model.Question{
		ChecklistID:  checklistID,
		Text:         text,
		ResponseType: model.TypeYesNo,
		IsRequired:   true,
		Weight:       1,
		Order:        order,
	}
	id, err := s.InsertQuestion(q)
	if err != nil {
		t.Fatalf("insertTestQuestion: %v", err)
	}
	q.ID = id
	return q
}

func TestChecklistCRUD(t *testing.T) {
	s := newTestStore(t)

	list, err := s.ListChecklists()
	if err != nil {
		t.Fatalf("ListChecklists: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	id := createTestChecklist(t, s, "Scaffolding safety")
	cl, err := s.GetChecklist(id)
	if err != nil {
		t.Fatalf("GetChecklist: %v", err)
	}
	if cl.Title != "Scaffolding safety" {
		t.Errorf("expected title 'Scaffolding safety', got %q", cl.Title)
	}
	if !cl.IsTemplate {
		t.Error("expected template flag to persist")
	}

	_, err = s.GetChecklist("missing")
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	clID := createTestChecklist(t, s, "Electrical")

	q := model.Question{
		ChecklistID:    clID,
		Text:           "Is the panel labeled?",
		ResponseType:   model.TypeMultipleChoice,
		IsRequired:     true,
		Options:        []string{"sim", "não", "parcial"},
		Weight:         2.5,
		ConditionValue: "",
		Order:          3,
	}
	id, err := s.InsertQuestion(q)
	if err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}

	got, err := s.GetQuestion(id)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if got.Text != q.Text {
		t.Errorf("text = %q, want %q", got.Text, q.Text)
	}
	if got.ResponseType != model.TypeMultipleChoice {
		t.Errorf("response type = %q", got.ResponseType)
	}
	if len(got.Options) != 3 || got.Options[2] != "parcial" {
		t.Errorf("options = %v", got.Options)
	}
	if got.Weight != 2.5 {
		t.Errorf("weight = %f", got.Weight)
	}
	if got.Order != 3 {
		t.Errorf("order = %d", got.Order)
	}
}

func TestListQuestionsOrdering(t *testing.T) {
	s := newTestStore(t)
	clID := createTestChecklist(t, s, "Ordering")

	insertTestQuestion(t, s, clID, "third", 2)
	insertTestQuestion(t, s, clID, "first", 0)
	insertTestQuestion(t, s, clID, "tie-a", 1)
	insertTestQuestion(t, s, clID, "tie-b", 1)

	qs, err := s.ListQuestions(clID)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	want := []string{"first", "tie-a", "tie-b", "third"}
	if len(qs) != len(want) {
		t.Fatalf("expected %d questions, got %d", len(want), len(qs))
	}
	for i, w := range want {
		if qs[i].Text != w {
			t.Errorf("position %d = %q, want %q (insertion order must break ties)", i, qs[i].Text, w)
		}
	}
}

func TestReparentQuestion(t *testing.T) {
	s := newTestStore(t)
	clID := createTestChecklist(t, s, "Reparent")

	parent := insertTestQuestion(t, s, clID, "parent", 0)
	child := insertTestQuestion(t, s, clID, "child", 1)

	if err := s.ReparentQuestion(child.ID, parent.ID, model.AnswerNo); err != nil {
		t.Fatalf("ReparentQuestion: %v", err)
	}

	got, err := s.GetQuestion(child.ID)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if got.ParentQuestionID != parent.ID {
		t.Errorf("parent = %q, want %q", got.ParentQuestionID, parent.ID)
	}
	if got.ConditionValue != model.AnswerNo {
		t.Errorf("condition = %q, want %q", got.ConditionValue, model.AnswerNo)
	}

	if err := s.ReparentQuestion("missing", parent.ID, ""); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows for unknown question, got %v", err)
	}
}

func TestGroups(t *testing.T) {
	s := newTestStore(t)
	clID := createTestChecklist(t, s, "Groups")

	if _, err := s.CreateGroup(model.QuestionGroup{ChecklistID: clID, Name: "Documentation", Position: 1}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := s.CreateGroup(model.QuestionGroup{ChecklistID: clID, Name: "Equipment", Position: 0}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	groups, err := s.ListGroups(clID)
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "Equipment" || groups[1].Name != "Documentation" {
		t.Errorf("groups not ordered by position: %v", groups)
	}
}

func TestInspectionLifecycle(t *testing.T) {
	s := newTestStore(t)
	clID := createTestChecklist(t, s, "Lifecycle")

	insID, err := s.CreateInspection(clID, "maria")
	if err != nil {
		t.Fatalf("CreateInspection: %v", err)
	}

	ins, err := s.GetInspection(insID)
	if err != nil {
		t.Fatalf("GetInspection: %v", err)
	}
	if ins.Status != model.InspectionInProgress {
		t.Errorf("status = %q, want in_progress", ins.Status)
	}
	if ins.Inspector != "maria" {
		t.Errorf("inspector = %q", ins.Inspector)
	}
	if ins.CompletedAt != nil {
		t.Error("expected nil completed_at")
	}

	if err := s.UpdateInspectionStatus(insID, model.InspectionCompleted); err != nil {
		t.Fatalf("UpdateInspectionStatus: %v", err)
	}
	ins, err = s.GetInspection(insID)
	if err != nil {
		t.Fatalf("GetInspection after complete: %v", err)
	}
	if ins.Status != model.InspectionCompleted {
		t.Errorf("status = %q, want completed", ins.Status)
	}
	if ins.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	clID := createTestChecklist(t, s, "Responses")
	q := insertTestQuestion(t, s, clID, "Guard rails present?", 0)
	insID, _ := s.CreateInspection(clID, "")

	r := model.Response{
		QuestionID: q.ID,
		Value:      model.AnswerNo,
		Comment:    "missing on east side",
		MediaURLs:  []string{"https://cdn.example.com/p1.jpg"},
		ActionPlan: &model.ActionPlan{
			What:   "Install guard rails",
			Who:    "contractor",
			WhenBy: "2026-09-15",
			Status: model.ActionPlanOpen,
		},
		SubChecklistResponses: map[string]model.Response{
			"s1": {QuestionID: "s1", Value: model.AnswerYes},
		},
	}
	if err := s.UpsertResponse(insID, r); err != nil {
		t.Fatalf("UpsertResponse: %v", err)
	}

	got, err := s.GetResponses(insID)
	if err != nil {
		t.Fatalf("GetResponses: %v", err)
	}
	gr, ok := got[q.ID]
	if !ok {
		t.Fatal("response not found")
	}
	if gr.Value != model.AnswerNo || gr.Comment != "missing on east side" {
		t.Errorf("response = %+v", gr)
	}
	if len(gr.MediaURLs) != 1 {
		t.Errorf("media urls = %v", gr.MediaURLs)
	}
	if gr.ActionPlan == nil || gr.ActionPlan.What != "Install guard rails" {
		t.Errorf("action plan = %+v", gr.ActionPlan)
	}
	if gr.SubChecklistResponses["s1"].Value != model.AnswerYes {
		t.Errorf("sub responses = %+v", gr.SubChecklistResponses)
	}

	// Upsert replaces the previous answer.
	r.Value = model.AnswerYes
	r.ActionPlan = nil
	if err := s.UpsertResponse(insID, r); err != nil {
		t.Fatalf("UpsertResponse update: %v", err)
	}
	got, _ = s.GetResponses(insID)
	if got[q.ID].Value != model.AnswerYes {
		t.Errorf("value after upsert = %q", got[q.ID].Value)
	}
	if got[q.ID].ActionPlan != nil {
		t.Error("action plan should have been cleared")
	}
}

func TestFetchChecklist(t *testing.T) {
	s := newTestStore(t)
	clID := createTestChecklist(t, s, "Sub")
	insertTestQuestion(t, s, clID, "sub q1", 0)
	insertTestQuestion(t, s, clID, "sub q2", 1)

	sub, err := s.FetchChecklist(context.Background(), clID)
	if err != nil {
		t.Fatalf("FetchChecklist: %v", err)
	}
	if sub.Title != "Sub" {
		t.Errorf("title = %q", sub.Title)
	}
	if len(sub.Questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(sub.Questions))
	}

	if _, err := s.FetchChecklist(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing checklist")
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash("/some/questions.csv")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/questions.csv", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/questions.csv")
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/questions.csv", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/questions.csv")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func TestExportAllInspections(t *testing.T) {
	s := newTestStore(t)

	subID := createTestChecklist(t, s, "Extinguisher check")
	insertTestQuestion(t, s, subID, "Pressure OK?", 0)

	clID := createTestChecklist(t, s, "Site walkthrough")
	root := insertTestQuestion(t, s, clID, "Fire safety in place?", 0)
	cond := model.Question{
		ChecklistID:      clID,
		Text:             "Describe the issue",
		ResponseType:     model.TypeParagraph,
		Weight:           1,
		ParentQuestionID: root.ID,
		ConditionValue:   model.AnswerNo,
		Order:            1,
	}
	if _, err := s.InsertQuestion(cond); err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}
	linked := model.Question{
		ChecklistID:    clID,
		Text:           "Extinguishers",
		ResponseType:   model.TypeYesNo,
		Weight:         1,
		Order:          2,
		SubChecklistID: subID,
	}
	linkedID, err := s.InsertQuestion(linked)
	if err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}

	insID, _ := s.CreateInspection(clID, "joão")
	if err := s.UpsertResponse(insID, model.Response{QuestionID: root.ID, Value: model.AnswerNo}); err != nil {
		t.Fatalf("UpsertResponse: %v", err)
	}
	if err := s.UpsertResponse(insID, model.Response{
		QuestionID: linkedID,
		Value:      model.AnswerYes,
		SubChecklistResponses: map[string]model.Response{
			// keyed by the sub-checklist's own question ids
		},
	}); err != nil {
		t.Fatalf("UpsertResponse: %v", err)
	}

	export, err := s.ExportAllInspections(context.Background())
	if err != nil {
		t.Fatalf("ExportAllInspections: %v", err)
	}
	if len(export.Inspections) != 1 {
		t.Fatalf("expected 1 inspection, got %d", len(export.Inspections))
	}
	res := export.Inspections[0]
	if res.ChecklistTitle != "Site walkthrough" {
		t.Errorf("title = %q", res.ChecklistTitle)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(res.Items))
	}
	if res.Items[0].Number != "1" || res.Items[1].Number != "1.1" || res.Items[2].Number != "2" {
		t.Errorf("numbers = %q %q %q, want 1, 1.1, 2",
			res.Items[0].Number, res.Items[1].Number, res.Items[2].Number)
	}
	if res.Items[0].Value != model.AnswerNo {
		t.Errorf("root value = %q", res.Items[0].Value)
	}
	if len(res.Items[2].SubChecklist) != 1 {
		t.Errorf("expected 1 sub-checklist item, got %d", len(res.Items[2].SubChecklist))
	}
}
