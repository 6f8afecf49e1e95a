package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mmrzaf/mockagen/internal/app"
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/infra/repos/documents"
	"github.com/mmrzaf/mockagen/internal/infra/repos/runs"
	"github.com/mmrzaf/mockagen/internal/infra/repos/targets"
	"github.com/mmrzaf/mockagen/internal/validation"
)

type Handler struct {
	docRepo    documents.Repository
	targetRepo targets.Reader
	runService *app.RunService
	validator  *validation.Validator
}

func NewHandler(docRepo documents.Repository, targetRepo targets.Reader, runService *app.RunService) *Handler {
	return &Handler{
		docRepo:    docRepo,
		targetRepo: targetRepo,
		runService: runService,
		validator:  validation.NewValidator(),
	}
}

// Routes registers every API endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("POST /api/v1/preview", h.Preview)

	mux.HandleFunc("GET /api/v1/targets", h.ListTargets)
	mux.HandleFunc("POST /api/v1/targets", h.CreateTarget)
	mux.HandleFunc("GET /api/v1/targets/{id}", h.GetTarget)
	mux.HandleFunc("PUT /api/v1/targets/{id}", h.UpdateTarget)
	mux.HandleFunc("DELETE /api/v1/targets/{id}", h.DeleteTarget)
	mux.HandleFunc("POST /api/v1/targets/{id}/test", h.TestTarget)

	mux.HandleFunc("POST /api/v1/runs", h.CreateRun)
	mux.HandleFunc("POST /api/v1/runs/plan", h.PlanRun)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/logs", h.GetRunLogs)
}

// Documents

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	list, err := h.docRepo.List()
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type documentView struct {
	Document    *domain.Document `json:"document"`
	Included    []string         `json:"included,omitempty"`
	Identifiers []string         `json:"identifiers"`
}

// GetDocument returns the document with its includes resolved. A document
// that fails validation is reported as 422.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	res, err := h.runService.LoadDocument(r.PathValue("id"))
	if err != nil {
		fail(w, err, http.StatusUnprocessableEntity)
		return
	}
	view := documentView{Document: res.Document, Identifiers: res.Bindings.List()}
	for _, inc := range res.Included {
		view.Included = append(view.Included, inc.SourcePath)
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req domain.PreviewRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.runService.Preview(&req)
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Targets. DSNs are redacted on output. Writes need a DB-backed repository.

func (h *Handler) store(w http.ResponseWriter) (targets.Store, bool) {
	s, ok := h.targetRepo.(targets.Store)
	if !ok {
		http.Error(w, "targets are read-only in this deployment", http.StatusNotImplemented)
	}
	return s, ok
}

func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	list, err := h.targetRepo.List()
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, targets.RedactTargets(list))
}

func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	t, err := h.targetRepo.Get(r.PathValue("id"))
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, targets.RedactTarget(t))
}

// saveTarget decodes and validates a target body, then hands it to save.
func (h *Handler) saveTarget(w http.ResponseWriter, r *http.Request, id string, status int, save func(targets.Store, *domain.TargetConfig) error) {
	store, ok := h.store(w)
	if !ok {
		return
	}
	var t domain.TargetConfig
	if !decode(w, r, &t) {
		return
	}
	if id != "" {
		if t.ID != "" && t.ID != id {
			http.Error(w, "id mismatch", http.StatusBadRequest)
			return
		}
		t.ID = id
	}
	if err := h.validator.ValidateTarget(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := save(store, &t); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, status, targets.RedactTarget(&t))
}

func (h *Handler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	h.saveTarget(w, r, "", http.StatusCreated, targets.Store.Create)
}

func (h *Handler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	h.saveTarget(w, r, r.PathValue("id"), http.StatusOK, targets.Store.Update)
}

func (h *Handler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w)
	if !ok {
		return
	}
	if err := store.Delete(r.PathValue("id")); err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestTarget reports a failed probe as a 200 with ok=false; only a target
// that cannot be loaded is an HTTP error.
func (h *Handler) TestTarget(w http.ResponseWriter, r *http.Request) {
	res, err := h.runService.TestTarget(r.PathValue("id"))
	if res == nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Runs

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if !decode(w, r, &req) {
		return
	}
	run, err := h.runService.StartRun(&req)
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) PlanRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if !decode(w, r, &req) {
		return
	}
	plan, err := h.runService.PlanRun(&req)
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	plan.Target = targets.RedactTarget(plan.Target)
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	list, err := h.runService.ListRuns(queryLimit(r, 50, 500), r.URL.Query().Get("status"))
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runService.GetRun(r.PathValue("id"))
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) GetRunLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.runService.ListRunLogs(r.PathValue("id"), queryLimit(r, 200, 2000))
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// fail writes err as plain text. Missing documents, targets and runs are 404;
// anything else gets status.
func fail(w http.ResponseWriter, err error, status int) {
	if errors.Is(err, documents.ErrNotFound) || errors.Is(err, targets.ErrNotFound) || errors.Is(err, runs.ErrNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func queryLimit(r *http.Request, def, upper int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > upper {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body, rejecting unknown fields. It writes the 400
// itself and reports whether the handler should continue.
func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
