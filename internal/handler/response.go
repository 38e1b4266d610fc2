package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-identity-service/internal/model"
	"go-identity-service/pkg/apierror"
)

const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	writeJSON(w, status, model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error_code", body.Code, "error", err)
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="identity"`)
	}

	writeJSON(w, status, model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// classify maps an error to the status and public body it is reported with.
// Internal causes such as a missing account never leak into the body.
func classify(err error) (int, *model.APIError) {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.HTTPStatus, &model.APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details}
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, &model.APIError{Code: "UNAUTHORIZED", Message: "Invalid credentials"}
	case errors.Is(err, model.ErrAccountExists):
		return http.StatusConflict, &model.APIError{Code: "ALREADY_EXISTS", Message: "Account already exists"}
	case errors.Is(err, model.ErrAccountNotFound):
		return http.StatusNotFound, &model.APIError{Code: "NOT_FOUND", Message: "Account not found"}
	case errors.Is(err, model.ErrExpiredToken):
		return http.StatusUnauthorized, &model.APIError{Code: "UNAUTHORIZED", Message: "Token expired"}
	case errors.Is(err, model.ErrInvalidToken), errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, &model.APIError{Code: "UNAUTHORIZED", Message: "Authentication required"}
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, &model.APIError{Code: "FORBIDDEN", Message: "Access denied"}
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, &model.APIError{Code: "BAD_REQUEST", Message: "Invalid input"}
	default:
		return http.StatusInternalServerError, &model.APIError{Code: "INTERNAL_ERROR", Message: "Unexpected server error"}
	}
}

// errorCode is the short code recorded in audit entries and metric labels.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	_, body := classify(err)
	return body.Code
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest)
	}
	return nil
}

func validationError(err error) error {
	return apierror.New("BAD_REQUEST", "validation failed", err.Error(), http.StatusBadRequest)
}
