// Package respond writes the JSON envelope served by the operational endpoints.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gesturelab/gesturelab/internal/middleware"
)

// Envelope wraps every JSON body. RequestID echoes the id assigned by the
// logging middleware so a response can be matched to its log line.
type Envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// JSON writes data inside the envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an envelope without data.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, Envelope{Code: status, Message: message})
}

func write(w http.ResponseWriter, payload Envelope) {
	h := w.Header()
	payload.RequestID = h.Get(middleware.RequestIDHeader)
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(payload.Code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Debug("encode response envelope failed", "status", payload.Code, "error", err)
	}
}
