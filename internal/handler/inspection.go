package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmcosta/inspeq/internal/hierarchy"
	"github.com/dmcosta/inspeq/internal/i18n"
	"github.com/dmcosta/inspeq/internal/model"
)

type startInspectionRequest struct {
	ChecklistID string `json:"checklist_id" validate:"required"`
	Inspector   string `json:"inspector"`
}

func (h *Handler) handleStartInspection(w http.ResponseWriter, r *http.Request) {
	var req startInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetChecklist(req.ChecklistID); err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "ChecklistNotFound"))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id, err := h.store.CreateInspection(req.ChecklistID, req.Inspector)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ins, err := h.store.GetInspection(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ins)
}

// inspectionItem is one visible question in answering order.
type inspectionItem struct {
	numberedQuestion
	Answer *model.Response `json:"answer,omitempty"`

	// Sub-checklist fields are set only on questions carrying a reference.
	SubChecklist            *hierarchy.SubChecklistNode `json:"sub_checklist,omitempty"`
	SubChecklistUnavailable bool                        `json:"sub_checklist_unavailable,omitempty"`
	SubChecklistMessage     string                      `json:"sub_checklist_message,omitempty"`
}

type inspectionViewResponse struct {
	Inspection model.Inspection `json:"inspection"`
	Items      []inspectionItem `json:"items"`
}

// handleInspectionView renders the answering sequence: the checklist tree
// filtered by the answers recorded so far, flattened parent-before-children,
// with dotted numbers and resolved sub-checklists. The tree is rebuilt from
// the flat set on every request; nothing derived is ever stored.
func (h *Handler) handleInspectionView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "inspectionID")

	ins, err := h.store.GetInspection(id)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "InspectionNotFound"))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	questions, err := h.store.ListQuestions(ins.ChecklistID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	groups, err := h.store.ListGroups(ins.ChecklistID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	responses, err := h.store.GetResponses(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	groupIdx := make(map[string]int)
	if len(groups) > 1 {
		for i, g := range groups {
			groupIdx[g.ID] = i
		}
	}

	subs := h.linker.AttachAll(r.Context(), questions)

	visible := hierarchy.FlattenTree(hierarchy.FilterVisible(hierarchy.BuildTree(questions), responses))
	items := make([]inspectionItem, 0, len(visible))
	for _, n := range visible {
		q := n.Question
		root := n
		for root.Parent != nil {
			root = root.Parent
		}

		item := inspectionItem{
			numberedQuestion: numberedQuestion{
				Question:  q,
				Number:    hierarchy.NumberOf(q, questions, groupIdx[root.Question.GroupID]),
				Depth:     n.Level,
				TypeLabel: i18n.ResponseTypeLabel(r.Context(), q.ResponseType),
			},
		}
		if resp, ok := responses[q.ID]; ok {
			item.Answer = &resp
		}
		if q.SubChecklistID != "" {
			if sub, ok := subs[q.ID]; ok {
				item.SubChecklist = sub
			} else {
				// The owning question stays answerable either way.
				item.SubChecklistUnavailable = true
				item.SubChecklistMessage = i18n.T(r.Context(), "SubChecklistUnavailable")
			}
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, inspectionViewResponse{Inspection: ins, Items: items})
}

type answerRequest struct {
	Value                 string                    `json:"value"`
	Comment               string                    `json:"comment"`
	MediaURLs             []string                  `json:"media_urls"`
	ActionPlan            *model.ActionPlan         `json:"action_plan"`
	SubChecklistResponses map[string]model.Response `json:"sub_checklist_responses"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	inspectionID := chi.URLParam(r, "inspectionID")
	questionID := chi.URLParam(r, "questionID")

	ins, err := h.store.GetInspection(inspectionID)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "InspectionNotFound"))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ins.Status != model.InspectionInProgress {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "InspectionAlreadyCompleted"))
		return
	}

	q, err := h.store.GetQuestion(questionID)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "QuestionNotFound"))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	resp := model.Response{
		QuestionID:            questionID,
		Value:                 model.NormalizeValue(q.ResponseType, req.Value),
		Comment:               req.Comment,
		MediaURLs:             req.MediaURLs,
		ActionPlan:            req.ActionPlan,
		SubChecklistResponses: req.SubChecklistResponses,
	}
	if err := h.store.UpsertResponse(inspectionID, resp); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": i18n.T(r.Context(), "AnswerRecorded")})
}

type submitResponse struct {
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

// handleSubmit completes an inspection. Required questions block submission
// only while visible: a hidden conditional child is excluded from validation.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "inspectionID")

	ins, err := h.store.GetInspection(id)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "InspectionNotFound"))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ins.Status != model.InspectionInProgress {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "InspectionAlreadyCompleted"))
		return
	}

	questions, err := h.store.ListQuestions(ins.ChecklistID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	responses, err := h.store.GetResponses(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var missing []string
	for _, n := range hierarchy.FlattenTree(hierarchy.FilterVisible(hierarchy.BuildTree(questions), responses)) {
		if !n.Question.IsRequired {
			continue
		}
		if _, answered := responses[n.Question.ID]; !answered {
			missing = append(missing, n.Question.ID)
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, submitResponse{
			Message: i18n.Tp(r.Context(), "RequiredAnswersMissing", len(missing)),
			Missing: missing,
		})
		return
	}

	if err := h.store.UpdateInspectionStatus(id, model.InspectionCompleted); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Message: i18n.T(r.Context(), "InspectionCompletedMsg")})
}
