package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmcosta/inspeq/internal/model"
)

// CreateInspection starts an inspection for a checklist.
func (s *Store) CreateInspection(checklistID, inspector string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO inspections (id, checklist_id, inspector, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, checklistID, inspector, model.InspectionInProgress, time.Now(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetInspection returns an inspection by id.
func (s *Store) GetInspection(id string) (model.Inspection, error) {
	var ins model.Inspection
	err := s.db.QueryRow(
		`SELECT id, checklist_id, inspector, status, started_at, completed_at FROM inspections WHERE id = ?`, id,
	).Scan(&ins.ID, &ins.ChecklistID, &ins.Inspector, &ins.Status, &ins.StartedAt, &ins.CompletedAt)
	return ins, err
}

// ListInspections returns all inspections, newest first.
func (s *Store) ListInspections() ([]model.Inspection, error) {
	rows, err := s.db.Query(
		`SELECT id, checklist_id, inspector, status, started_at, completed_at FROM inspections ORDER BY started_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var inspections []model.Inspection
	for rows.Next() {
		var ins model.Inspection
		if err := rows.Scan(&ins.ID, &ins.ChecklistID, &ins.Inspector, &ins.Status, &ins.StartedAt, &ins.CompletedAt); err != nil {
			return nil, err
		}
		inspections = append(inspections, ins)
	}
	return inspections, rows.Err()
}

// UpdateInspectionStatus updates the inspection status, stamping the
// completion time when the inspection completes.
func (s *Store) UpdateInspectionStatus(id string, status model.InspectionStatus) error {
	query := `UPDATE inspections SET status = ? WHERE id = ?`
	args := []any{status, id}
	if status == model.InspectionCompleted {
		query = `UPDATE inspections SET status = ?, completed_at = ? WHERE id = ?`
		args = []any{status, time.Now(), id}
	}
	_, err := s.db.Exec(query, args...)
	return err
}

// UpsertResponse stores or replaces the answer to one question of an
// inspection. JSON-shaped fields are encoded here, keeping a single
// normalization boundary between storage and the in-memory model.
func (s *Store) UpsertResponse(inspectionID string, r model.Response) error {
	mediaURLs, err := json.Marshal(stringsOrEmpty(r.MediaURLs))
	if err != nil {
		return fmt.Errorf("marshal media urls: %w", err)
	}

	var actionPlan sql.NullString
	if r.ActionPlan != nil {
		b, err := json.Marshal(r.ActionPlan)
		if err != nil {
			return fmt.Errorf("marshal action plan: %w", err)
		}
		actionPlan = sql.NullString{String: string(b), Valid: true}
	}

	subResponses := r.SubChecklistResponses
	if subResponses == nil {
		subResponses = map[string]model.Response{}
	}
	sub, err := json.Marshal(subResponses)
	if err != nil {
		return fmt.Errorf("marshal sub-checklist responses: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO responses (inspection_id, question_id, value, comment, media_urls, action_plan, sub_checklist_responses)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(inspection_id, question_id) DO UPDATE SET
		   value = excluded.value,
		   comment = excluded.comment,
		   media_urls = excluded.media_urls,
		   action_plan = excluded.action_plan,
		   sub_checklist_responses = excluded.sub_checklist_responses`,
		inspectionID, r.QuestionID, r.Value, r.Comment, string(mediaURLs), actionPlan, string(sub),
	)
	return err
}

// GetResponses returns an inspection's answers keyed by question id, the
// shape the visibility evaluator consumes.
func (s *Store) GetResponses(inspectionID string) (map[string]model.Response, error) {
	rows, err := s.db.Query(
		`SELECT question_id, value, comment, media_urls, action_plan, sub_checklist_responses
		 FROM responses WHERE inspection_id = ?`, inspectionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := make(map[string]model.Response)
	for rows.Next() {
		var r model.Response
		var mediaURLs, sub string
		var actionPlan sql.NullString
		if err := rows.Scan(&r.QuestionID, &r.Value, &r.Comment, &mediaURLs, &actionPlan, &sub); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(mediaURLs), &r.MediaURLs); err != nil {
			return nil, fmt.Errorf("unmarshal media urls for %s: %w", r.QuestionID, err)
		}
		if actionPlan.Valid {
			r.ActionPlan = &model.ActionPlan{}
			if err := json.Unmarshal([]byte(actionPlan.String), r.ActionPlan); err != nil {
				return nil, fmt.Errorf("unmarshal action plan for %s: %w", r.QuestionID, err)
			}
		}
		if err := json.Unmarshal([]byte(sub), &r.SubChecklistResponses); err != nil {
			return nil, fmt.Errorf("unmarshal sub-checklist responses for %s: %w", r.QuestionID, err)
		}
		if len(r.SubChecklistResponses) == 0 {
			r.SubChecklistResponses = nil
		}
		responses[r.QuestionID] = r
	}
	return responses, rows.Err()
}

func stringsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
