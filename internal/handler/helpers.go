package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
	// Redirect tells a surface where to send the user instead of showing
	// an error banner. Only "login" is used today.
	Redirect string `json:"redirect,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var authExpired *domain.ErrAuthExpired
	var notFound *domain.ErrNotFound
	var busy *domain.ErrBusy
	var rejected *domain.ErrServerRejected
	var circuitOpen *domain.ErrCircuitOpen
	var network *domain.ErrNetwork
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &authExpired):
		// The session is gone after the one allowed refresh-retry: the
		// surface must redirect to login, never show an error state.
		logger.Info("session expired", zap.String("reason", authExpired.Reason))
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:    err.Error(),
			Redirect: "login",
		})
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &busy):
		logger.Debug("mutation in flight", zap.String("operation", busy.Operation))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &rejected):
		logger.Debug("server rejected", zap.Int("status", rejected.Status), zap.String("error", err.Error()))
		status := rejected.Status
		if status < 400 || status > 499 {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &network):
		logger.Error("upstream unreachable", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
