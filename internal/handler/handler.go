package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rmaffei/cobranca-service/internal/middleware"
	"github.com/rmaffei/cobranca-service/internal/models"
	"github.com/rmaffei/cobranca-service/internal/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// ImportCase handles case creation
func (h *Handler) ImportCase(w http.ResponseWriter, r *http.Request) {
	var in service.ImportCaseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c, err := h.svc.ImportCase(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetCase returns a case with derived amount and days late
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid case id", http.StatusBadRequest)
		return
	}
	c, daysLate, amount, err := h.svc.GetCase(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"case":           c,
		"days_late":      daysLate,
		"updated_amount": service.RoundCurrency(amount),
	})
}

// SettleCase marks a case settled
func (h *Handler) SettleCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid case id", http.StatusBadRequest)
		return
	}
	if err := h.svc.SettleCase(r.Context(), id, middleware.Actor(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

// EvaluateDebtor runs the escalation criteria for a debtor
func (h *Handler) EvaluateDebtor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid debtor id", http.StatusBadRequest)
		return
	}
	decision, err := h.svc.EvaluateDebtor(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// TransitionDebtor applies a manual legal-status transition
func (h *Handler) TransitionDebtor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid debtor id", http.StatusBadRequest)
		return
	}
	var body struct {
		Status  string   `json:"status"`
		Reasons []string `json:"reasons"`
		Note    string   `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	actor := middleware.Actor(r.Context())
	if err := h.svc.Transition(r.Context(), id, models.LegalStatus(body.Status), body.Reasons, actor, body.Note); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

// GenerateNotice creates a formal notice for a debtor
func (h *Handler) GenerateNotice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid debtor id", http.StatusBadRequest)
		return
	}
	var body struct {
		Type     string `json:"type"`
		Dispatch bool   `json:"dispatch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	actor := middleware.Actor(r.Context())
	notice, err := h.svc.GenerateNotice(r.Context(), id, models.NoticeType(body.Type), actor, body.Dispatch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, notice)
}

// RespondNotice marks a notice responded
func (h *Handler) RespondNotice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid notice id", http.StatusBadRequest)
		return
	}
	var body struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.svc.MarkResponded(r.Context(), id, body.Note, middleware.Actor(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "responded"})
}

// LegalAction escalates a debtor under analysis to legal action
func (h *Handler) LegalAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid debtor id", http.StatusBadRequest)
		return
	}
	var body struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.svc.EscalateToLegalAction(r.Context(), id, body.Note, middleware.Actor(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusAcionado)})
}

// AcceptAgreement accepts a proposed agreement
func (h *Handler) AcceptAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid agreement id", http.StatusBadRequest)
		return
	}
	if err := h.svc.AcceptAgreement(r.Context(), id, middleware.Actor(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.AgreementAccepted})
}

// BreachAgreement flags an agreement breached
func (h *Handler) BreachAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid agreement id", http.StatusBadRequest)
		return
	}
	if err := h.svc.MarkAgreementBreached(r.Context(), id, middleware.Actor(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.AgreementBreached})
}

// RunScheduler triggers one reminder batch run
func (h *Handler) RunScheduler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.RunReminderBatch(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr  *service.ValidationError
		notFoundErr    *service.NotFoundError
		transitionErr  *service.InvalidTransitionError
		concurrencyErr *service.ConcurrencyConflictError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &transitionErr):
		status = http.StatusConflict
	case errors.As(err, &concurrencyErr):
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
