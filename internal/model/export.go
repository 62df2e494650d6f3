package model

import "time"

// InspectionsExport is the top-level JSON structure for results export.
type InspectionsExport struct {
	ExportedAt  time.Time          `json:"exported_at"`
	Inspections []InspectionResult `json:"inspections"`
}

// InspectionResult holds one inspection's data for export.
type InspectionResult struct {
	InspectionID   string           `json:"inspection_id"`
	ChecklistTitle string           `json:"checklist_title"`
	Inspector      string           `json:"inspector,omitempty"`
	Status         InspectionStatus `json:"status"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	Items          []ItemResult     `json:"items"`
}

// ItemResult holds per-question data for export. Number is the dotted
// hierarchical label recomputed at export time; it is never stored.
type ItemResult struct {
	Number       string       `json:"number"`
	QuestionText string       `json:"question_text"`
	ResponseType ResponseType `json:"response_type"`
	IsRequired   bool         `json:"is_required"`
	Weight       float64      `json:"weight"`
	Value        string       `json:"value,omitempty"`
	Comment      string       `json:"comment,omitempty"`
	MediaURLs    []string     `json:"media_urls,omitempty"`
	ActionPlan   *ActionPlan  `json:"action_plan,omitempty"`

	SubChecklist []ItemResult `json:"sub_checklist,omitempty"`
}
