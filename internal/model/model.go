package model

import (
	"time"
)

// ResponseType identifies the shape of answer a question collects.
type ResponseType string

const (
	TypeYesNo          ResponseType = "yes_no"
	TypeText           ResponseType = "text"
	TypeNumeric        ResponseType = "numeric"
	TypeMultipleChoice ResponseType = "multiple_choice"
	TypePhoto          ResponseType = "photo"
	TypeSignature      ResponseType = "signature"
	TypeDate           ResponseType = "date"
	TypeTime           ResponseType = "time"
	TypeDropdown       ResponseType = "dropdown"
	TypeCheckboxes     ResponseType = "checkboxes"
	TypeParagraph      ResponseType = "paragraph"
)

// Canonical yes/no answer values. The stored values are Portuguese because
// that is what the field clients have always sent.
const (
	AnswerYes = "sim"
	AnswerNo  = "não"
)

// InspectionStatus represents the lifecycle state of an inspection.
type InspectionStatus string

const (
	InspectionInProgress InspectionStatus = "in_progress"
	InspectionCompleted  InspectionStatus = "completed"
)

// ActionPlanStatus represents the state of a 5W2H action plan.
type ActionPlanStatus string

const (
	ActionPlanOpen       ActionPlanStatus = "open"
	ActionPlanInProgress ActionPlanStatus = "in_progress"
	ActionPlanDone       ActionPlanStatus = "done"
)

// Checklist is an authored set of questions, either a reusable template
// or an ad-hoc list for a single inspection.
type Checklist struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsTemplate  bool      `json:"is_template"`
	CreatedAt   time.Time `json:"created_at"`
}

// QuestionGroup is a flat section label. Grouping is orthogonal to the
// parent/child question tree; it only drives top-level numbering prefixes.
type QuestionGroup struct {
	ID          string `json:"id"`
	ChecklistID string `json:"checklist_id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
}

// Question is the flat, storage-shaped record for a checklist question.
// Tree structure is derived from ParentQuestionID on demand and never stored.
type Question struct {
	ID               string       `json:"id"`
	ChecklistID      string       `json:"checklist_id"`
	GroupID          string       `json:"group_id,omitempty"`
	Text             string       `json:"text"`
	ResponseType     ResponseType `json:"response_type"`
	IsRequired       bool         `json:"is_required"`
	Options          []string     `json:"options,omitempty"`
	Weight           float64      `json:"weight"`
	ParentQuestionID string       `json:"parent_question_id,omitempty"`
	ConditionValue   string       `json:"condition_value,omitempty"`
	Order            int          `json:"order"`
	SubChecklistID   string       `json:"sub_checklist_id,omitempty"`
}

// IsRoot reports whether the question declares no parent. A declared parent
// can still be dangling; resolving that is the hierarchy engine's job.
func (q Question) IsRoot() bool {
	return q.ParentQuestionID == "" || q.ParentQuestionID == q.ID
}

// SubChecklist is a referenced checklist resolved to its flat question set,
// as returned by the storage collaborator.
type SubChecklist struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

// ActionPlan is a 5W2H corrective action attached to a non-conforming answer.
type ActionPlan struct {
	What    string           `json:"what"`
	Why     string           `json:"why,omitempty"`
	Where   string           `json:"where,omitempty"`
	WhenBy  string           `json:"when_by,omitempty"`
	Who     string           `json:"who,omitempty"`
	How     string           `json:"how,omitempty"`
	HowMuch string           `json:"how_much,omitempty"`
	Status  ActionPlanStatus `json:"status"`
}

// Response is a recorded answer to a single question. Value holds the
// normalized comparable form: "sim"/"não" for yes/no questions, the selected
// option's text for choice questions, the raw entry otherwise.
type Response struct {
	QuestionID string      `json:"question_id"`
	Value      string      `json:"value"`
	Comment    string      `json:"comment,omitempty"`
	MediaURLs  []string    `json:"media_urls,omitempty"`
	ActionPlan *ActionPlan `json:"action_plan,omitempty"`

	// SubChecklistResponses is populated only for questions carrying a
	// SubChecklistID. It is keyed by the sub-checklist's own question ids
	// and never collides with the parent checklist's response map.
	SubChecklistResponses map[string]Response `json:"sub_checklist_responses,omitempty"`
}

// Inspection is one execution of a checklist.
type Inspection struct {
	ID          string           `json:"id"`
	ChecklistID string           `json:"checklist_id"`
	Inspector   string           `json:"inspector,omitempty"`
	Status      InspectionStatus `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ChecklistView combines a checklist with its groups and flat questions.
type ChecklistView struct {
	Checklist Checklist       `json:"checklist"`
	Groups    []QuestionGroup `json:"groups"`
	Questions []Question      `json:"questions"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Addr     string
	Lang     string // message language (en, pt)
	BasePath string // URL prefix for sub-path deployments
}
