package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dmcosta/inspeq/internal/hierarchy"
	"github.com/dmcosta/inspeq/internal/i18n"
	"github.com/dmcosta/inspeq/internal/model"
	"github.com/dmcosta/inspeq/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	linker   *hierarchy.Linker
	config   model.ServerConfig
	validate *validator.Validate
}

// New creates a new Handler. The store doubles as the sub-checklist fetcher.
func New(s *store.Store, cfg model.ServerConfig) *Handler {
	return &Handler{
		store:    s,
		linker:   hierarchy.NewLinker(s),
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/checklists", h.handleListChecklists)
	r.Post("/checklists", h.handleCreateChecklist)
	r.Get("/checklists/{checklistID}", h.handleChecklistDetail)
	r.Post("/checklists/{checklistID}/groups", h.handleCreateGroup)
	r.Post("/checklists/{checklistID}/questions", h.handleCreateQuestion)
	r.Post("/questions/{questionID}/parent", h.handleReparent)
	r.Post("/inspections", h.handleStartInspection)
	r.Get("/inspections/{inspectionID}", h.handleInspectionView)
	r.Post("/inspections/{inspectionID}/answers/{questionID}", h.handleAnswer)
	r.Post("/inspections/{inspectionID}/submit", h.handleSubmit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (h *Handler) handleListChecklists(w http.ResponseWriter, r *http.Request) {
	checklists, err := h.store.ListChecklists()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if checklists == nil {
		checklists = []model.Checklist{}
	}
	writeJSON(w, http.StatusOK, checklists)
}

type createChecklistRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	IsTemplate  bool   `json:"is_template"`
}

func (h *Handler) handleCreateChecklist(w http.ResponseWriter, r *http.Request) {
	var req createChecklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.CreateChecklist(model.Checklist{
		Title:       req.Title,
		Description: req.Description,
		IsTemplate:  req.IsTemplate,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cl, err := h.store.GetChecklist(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, cl)
}

// numberedQuestion pairs a flat record with its derived, never-stored fields.
type numberedQuestion struct {
	model.Question
	Number    string `json:"number"`
	Depth     int    `json:"depth"`
	TypeLabel string `json:"type_label"`
}

type checklistDetailResponse struct {
	Checklist model.Checklist       `json:"checklist"`
	Groups    []model.QuestionGroup `json:"groups"`
	Questions []numberedQuestion    `json:"questions"`
}

func (h *Handler) handleChecklistDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "checklistID")

	cl, err := h.store.GetChecklist(id)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "ChecklistNotFound"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	questions, err := h.store.ListQuestions(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	groups, err := h.store.ListGroups(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, checklistDetailResponse{
		Checklist: cl,
		Groups:    groups,
		Questions: h.numberQuestions(r, questions, groups),
	})
}

// numberQuestions walks the full tree (authoring view: nothing hidden) in
// traversal order and attaches derived numbering, depth, and labels.
func (h *Handler) numberQuestions(r *http.Request, questions []model.Question, groups []model.QuestionGroup) []numberedQuestion {
	groupIdx := make(map[string]int)
	if len(groups) > 1 {
		for i, g := range groups {
			groupIdx[g.ID] = i
		}
	}

	out := make([]numberedQuestion, 0, len(questions))
	for _, n := range hierarchy.FlattenTree(hierarchy.BuildTree(questions)) {
		q := n.Question
		root := n
		for root.Parent != nil {
			root = root.Parent
		}
		out = append(out, numberedQuestion{
			Question:  q,
			Number:    hierarchy.NumberOf(q, questions, groupIdx[root.Question.GroupID]),
			Depth:     n.Level,
			TypeLabel: i18n.ResponseTypeLabel(r.Context(), q.ResponseType),
		})
	}
	return out
}

type createGroupRequest struct {
	Name     string `json:"name" validate:"required"`
	Position int    `json:"position"`
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	checklistID := chi.URLParam(r, "checklistID")

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.CreateGroup(model.QuestionGroup{
		ChecklistID: checklistID,
		Name:        req.Name,
		Position:    req.Position,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type createQuestionRequest struct {
	Text             string   `json:"text" validate:"required"`
	ResponseType     string   `json:"response_type" validate:"required"`
	IsRequired       bool     `json:"is_required"`
	Options          []string `json:"options"`
	Weight           float64  `json:"weight" validate:"gt=0"`
	GroupID          string   `json:"group_id"`
	ParentQuestionID string   `json:"parent_question_id"`
	ConditionValue   string   `json:"condition_value"`
	Order            int      `json:"order"`
	SubChecklistID   string   `json:"sub_checklist_id"`
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	checklistID := chi.URLParam(r, "checklistID")

	if _, err := h.store.GetChecklist(checklistID); err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "ChecklistNotFound"))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	responseType := model.NormalizeResponseType(req.ResponseType)
	q := model.Question{
		ChecklistID:      checklistID,
		GroupID:          req.GroupID,
		Text:             req.Text,
		ResponseType:     responseType,
		IsRequired:       req.IsRequired,
		Options:          req.Options,
		Weight:           req.Weight,
		ParentQuestionID: req.ParentQuestionID,
		ConditionValue:   req.ConditionValue,
		Order:            req.Order,
		SubChecklistID:   req.SubChecklistID,
	}

	// A declared parent goes through the same guard the reparent endpoint
	// uses, so authoring can never store a cycle or over-deep chain.
	if q.ParentQuestionID != "" {
		all, err := h.store.ListQuestions(checklistID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		parent, err := h.store.GetQuestion(q.ParentQuestionID)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, i18n.T(r.Context(), "QuestionNotFound"))
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// The new question is not in the stored set yet; a placeholder id
		// is enough for the cycle/depth walk.
		draft := q
		draft.ID = "draft"
		if !hierarchy.IsValidParent(parent, draft, all) {
			writeError(w, http.StatusUnprocessableEntity, i18n.T(r.Context(), "InvalidParent"))
			return
		}
	}

	id, err := h.store.InsertQuestion(q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	created, err := h.store.GetQuestion(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type reparentRequest struct {
	ParentQuestionID string `json:"parent_question_id"`
	ConditionValue   string `json:"condition_value"`
}

func (h *Handler) handleReparent(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")

	var req reparentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	child, err := h.store.GetQuestion(questionID)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "QuestionNotFound"))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Empty parent makes the question a root again; no guard needed.
	if req.ParentQuestionID != "" {
		parent, err := h.store.GetQuestion(req.ParentQuestionID)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, i18n.T(r.Context(), "QuestionNotFound"))
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		all, err := h.store.ListQuestions(child.ChecklistID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !hierarchy.IsValidParent(parent, child, all) {
			writeError(w, http.StatusUnprocessableEntity, i18n.T(r.Context(), "InvalidParent"))
			return
		}
	}

	if err := h.store.ReparentQuestion(questionID, req.ParentQuestionID, req.ConditionValue); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	updated, err := h.store.GetQuestion(questionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
