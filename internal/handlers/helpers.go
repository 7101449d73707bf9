package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"coopleo-web/internal/models"
	"coopleo-web/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(message, details string) models.ErrorResponse {
	return models.ErrorResponse{Error: message, Details: details}
}

func setNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// decodeJSON reads a JSON body. An empty body leaves dst untouched when
// allowEmpty is set.
func decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// handleServiceError maps a service failure to the JSON error envelope.
// fallback is the message used for anything that is not a validation error.
func handleServiceError(w http.ResponseWriter, err error, fallback string) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, errorResp(validationMessage(vErr), ""))
		return
	}

	var eErr *services.EmailError
	if errors.As(err, &eErr) {
		details := ""
		if eErr.Err != nil {
			details = eErr.Err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, errorResp(eErr.Message, details))
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResp(fallback, err.Error()))
}

// validationMessage flattens field errors in a stable order.
func validationMessage(e *services.ValidationError) string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	if len(msgs) == 0 {
		return "Validation failed"
	}
	return strings.Join(msgs, "; ")
}
