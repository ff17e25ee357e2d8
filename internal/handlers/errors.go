package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chromabloom/internal/service"

	"go.uber.org/zap"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// dataEnvelope always carries "data", so an absent result encodes as null.
type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error *errorBody `json:"error"`
}

// statusForKind maps service error kinds onto HTTP status codes
func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindInsufficientCatalog, service.KindCycleNotEnded, service.KindConcurrencyConflict:
		return http.StatusConflict
	case service.KindPredictorUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dataEnvelope{Data: data})
}

func respondWithStatus(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorEnvelope{Error: &errorBody{Kind: kind, Message: message}})
}

// respondWithError writes the error envelope for err. Service errors keep
// their kind and message; anything else is logged and reported as internal.
func respondWithError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondWithStatus(w, http.StatusInternalServerError, ErrKindInternal, ErrInternalServerError)
		return
	}

	status := statusForKind(svcErr.Kind)
	switch {
	case svcErr.Kind == service.KindPredictorUnavailable:
		logger.Warn("predictor unavailable", zap.String("path", r.URL.Path), zap.Error(err))
	case status == http.StatusInternalServerError:
		logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	message := svcErr.Message
	if message == "" {
		message = string(svcErr.Kind)
	}
	respondWithStatus(w, status, string(svcErr.Kind), message)
}

func invalidInput(message string) error {
	return &service.Error{Kind: service.KindInvalidInput, Message: message}
}

// decodeJSON reads a single JSON object from the request body
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalidInput(ErrInvalidJSON)
	}
	return nil
}
