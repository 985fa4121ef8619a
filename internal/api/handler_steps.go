package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"synthlab/internal/domain"
)

func (h *Handler) listSteps(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.ListSteps(r.Context(), chi.URLParam(r, "dataset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToAPI(snap))
}

func (h *Handler) addStep(w http.ResponseWriter, r *http.Request) {
	var in createStepJSON
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	snap, err := h.svc.AddStep(r.Context(), principal(r), chi.URLParam(r, "dataset"), domain.CreateStepRequest{
		Kind:         in.Kind,
		OutputColumn: in.OutputColumn,
		Expression:   in.Expression,
		Inputs:       in.Inputs,
		Params:       in.Params,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshotToAPI(snap))
}

func (h *Handler) reorderSteps(w http.ResponseWriter, r *http.Request) {
	var in reorderJSON
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	snap, err := h.svc.ReorderSteps(r.Context(), principal(r), chi.URLParam(r, "dataset"), domain.ReorderRequest{
		Version: in.Version,
		StepIDs: in.StepIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToAPI(snap))
}

// deleteStep removes a step. The version query parameter is required; the
// cascade parameter opts in to removing transitive dependents. A refused
// delete returns 409 with the impact body.
func (h *Handler) deleteStep(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("version")
	if version == "" {
		writeError(w, domain.ErrValidation("version query parameter is required"))
		return
	}
	cascade := strings.EqualFold(r.URL.Query().Get("cascade"), "true")

	snap, err := h.svc.DeleteStep(r.Context(), principal(r),
		chi.URLParam(r, "dataset"), version, chi.URLParam(r, "step"), cascade)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToAPI(snap))
}

// === Structure ===

func (h *Handler) getStructure(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetStructure(r.Context(), chi.URLParam(r, "dataset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structureToAPI(snap))
}

func (h *Handler) validateStructure(w http.ResponseWriter, r *http.Request) {
	var in structureJSON
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.ValidateStructure(r.Context(), chi.URLParam(r, "dataset"), structureFromAPI(in))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validationToAPI(result))
}

// === Preview ===

// preview materializes the pipeline. The body is optional: an empty request
// previews with the server's defaults.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var in previewRequestJSON
	if err := decodeJSONOptional(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.Materialize(r.Context(), principal(r),
		chi.URLParam(r, "dataset"), in.RowLimit, in.Columns)
	if err != nil {
		writeError(w, err)
		return
	}
	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, previewJSON{Columns: result.Columns, Rows: rows})
}
