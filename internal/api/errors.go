package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"synthlab/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var dependency *domain.DependencyConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &dependency):
		return http.StatusConflict
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type impactJSON struct {
	AffectedStepIDs []string `json:"affected_step_ids"`
	AffectedColumns []string `json:"affected_columns"`
}

type errorJSON struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Impact  *impactJSON `json:"impact,omitempty"`
}

// writeError renders a domain error as JSON. A DependencyConflictError
// additionally carries the downstream impact so clients can offer a cascade
// retry without another round trip.
func writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	body := errorJSON{Code: status, Message: err.Error()}

	var dependency *domain.DependencyConflictError
	if errors.As(err, &dependency) {
		body.Impact = &impactJSON{
			AffectedStepIDs: dependency.AffectedStepIDs,
			AffectedColumns: dependency.AffectedColumns,
		}
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
