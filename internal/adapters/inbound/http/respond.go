package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResp struct {
	Error errorBody `json:"error"`
}

func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	code := "INTERNAL_ERROR"

	var validationErr *domain.ValidationErr
	var notFoundErr *domain.NotFoundErr
	var rateLimitedErr *domain.RateLimitedErr
	switch {
	case errors.As(err, &validationErr):
		statusCode = http.StatusBadRequest
		code = "BAD_REQUEST"
	case errors.As(err, &notFoundErr):
		statusCode = http.StatusNotFound
		code = "NOT_FOUND"
	case errors.As(err, &rateLimitedErr):
		statusCode = http.StatusTooManyRequests
		code = "RATE_LIMITED"
	}

	respondJSON(w, statusCode, errorResp{Error: errorBody{
		Code:    code,
		Message: err.Error(),
	}})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondError(w, domain.NewValidationErr(message))
}
