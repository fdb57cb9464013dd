package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/indrasankhag/cinedrive-backend/internal/logging"
)

// errorResponse is the structured failure payload returned to clients. Error
// carries a stable code; Message is human-readable. Internal error text only
// ever appears in Details.
type errorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
	Details           string `json:"details,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	respondJSON(ctx, w, status, errorResponse{Error: code, Message: message})
}

func respondRetryAfter(ctx context.Context, w http.ResponseWriter, code, message string, retryAfterSeconds int) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	respondJSON(ctx, w, http.StatusTooManyRequests, errorResponse{
		Error:             code,
		Message:           message,
		RetryAfterSeconds: retryAfterSeconds,
	})
}
