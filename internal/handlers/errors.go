package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"naturequest/internal/inventory"
	"naturequest/internal/progression"
	"naturequest/internal/roster"
	"naturequest/internal/service"
	"naturequest/internal/validation"
)

const maxBodyBytes = 1 << 20

// envelope wraps every JSON response
type envelope struct {
	Success bool                    `json:"success"`
	Data    any                     `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Message string                  `json:"message,omitempty"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	writeJSON(w, status, envelope{Success: false, Error: userMsg})
}

// respondWithServiceError maps domain errors to a status code. Only
// unexpected errors are logged.
func respondWithServiceError(w http.ResponseWriter, err error, logMsg string) {
	var verrs *validation.Errors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "validation failed", Fields: verrs.Fields})
	case roster.IsNotFound(err), errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrItemNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, progression.ErrMissionAlreadyCompleted),
		errors.Is(err, progression.ErrInvalidXPAmount),
		errors.Is(err, progression.ErrXPAmountTooLarge),
		errors.Is(err, roster.ErrWrongClass),
		errors.Is(err, roster.ErrNotMember),
		errors.Is(err, roster.ErrStudentBanned),
		errors.Is(err, roster.ErrBadPayload),
		errors.Is(err, inventory.ErrLevelTooLow),
		errors.Is(err, inventory.ErrInvalidQuantity):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	case errors.Is(err, service.ErrOAuthDisabled):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	case errors.Is(err, service.ErrInvalidBackup):
		respondWithError(w, http.StatusBadRequest, service.ErrInvalidBackup.Error(), logMsg, err)
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrInvalidIDToken):
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, logMsg, err)
	case errors.Is(err, service.ErrDomainNotAllowed):
		respondWithError(w, http.StatusForbidden, err.Error(), "", nil)
	case errors.Is(err, roster.ErrFlush):
		respondWithError(w, http.StatusInternalServerError, "changes applied but could not be saved", logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
