package errors

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

func logf(r *http.Request, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		log.Printf("[%s] RequestID=%s: %s", level, requestID, msg)
		return
	}
	log.Printf("[%s] %s", level, msg)
}

// InternalError logs err and answers with a generic 500.
func InternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logf(r, "ERROR", "%s: %v", message, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func BadRequestError(w http.ResponseWriter, r *http.Request, err error, clientMessage string) {
	logf(r, "WARN", "bad request: %v", err)
	http.Error(w, clientMessage, http.StatusBadRequest)
}

func LogError(r *http.Request, message string, err error) {
	logf(r, "ERROR", "%s: %v", message, err)
}

func LogWarn(r *http.Request, message string, err error) {
	logf(r, "WARN", "%s: %v", message, err)
}

func LogInfo(r *http.Request, message string) {
	logf(r, "INFO", "%s", message)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// JSONError answers with {"error": message}.
func JSONError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorBody{Error: message})
}

// JSONInternalError logs err and answers with a generic JSON 500.
func JSONInternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logf(r, "ERROR", "%s: %v", message, err)
	JSONError(w, http.StatusInternalServerError, "internal server error")
}
