package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/repo"
)

// maxListLimit — верхняя граница limit в ListRuns.
const maxListLimit = 500

// ListRuns возвращает историю runs, новые первыми.
// GET /api/v1/runs?status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.RunFilter{}

	if s := q.Get("status"); s != "" {
		status, ok := domain.ParseRunStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	var ok bool
	if filter.Limit, ok = parseInt(q.Get("limit"), 0); !ok || filter.Limit < 0 || filter.Limit > maxListLimit {
		BadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, ok = parseInt(q.Get("offset"), 0); !ok || filter.Offset < 0 {
		BadRequest(w, "invalid offset")
		return
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}
	List(w, result, len(result))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}
	Success(w, RunFromDomain(*run))
}

// ListRunPhases возвращает фазы run по порядку.
// GET /api/v1/runs/{id}/phases?phase=wash
func (h *Handler) ListRunPhases(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	var only domain.Phase
	if s := r.URL.Query().Get("phase"); s != "" {
		if only, err = domain.ParsePhase(s); err != nil {
			BadRequest(w, "invalid phase: "+s)
			return
		}
	}

	if _, err := h.store.GetRun(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	phases, err := h.store.ListPhases(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]PhaseResponse, 0, len(phases))
	for _, p := range phases {
		if only != "" && p.Phase != only {
			continue
		}
		result = append(result, PhaseFromDomain(p))
	}
	List(w, result, len(result))
}

// parseInt разбирает необязательный числовой параметр запроса.
func parseInt(s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
