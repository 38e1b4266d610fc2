package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go-identity-service/internal/middleware"
	"go-identity-service/internal/model"
)

type identityService interface {
	Register(ctx context.Context, email string, password string, role string) (model.TokenArtifact, error)
	Login(ctx context.Context, email string, password string) (model.TokenArtifact, error)
	Upsert(ctx context.Context, email string, role string, password string) (model.TokenArtifact, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

type operationRecorder interface {
	ObserveOperation(operation string, outcome string)
}

type AuthHandler struct {
	identity identityService
	audit    auditRecorder
	metrics  operationRecorder
}

func NewAuthHandler(identity identityService, audit auditRecorder, metrics operationRecorder) *AuthHandler {
	return &AuthHandler{identity: identity, audit: audit, metrics: metrics}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		h.fail(w, r, model.AuditActionRegister, "", err)
		return
	}

	payload.Normalize()
	if err := payload.Validate(); err != nil {
		h.fail(w, r, model.AuditActionRegister, payload.Email, validationError(err))
		return
	}

	artifact, err := h.identity.Register(r.Context(), payload.Email, payload.Password, payload.Role)
	h.respond(w, r, model.AuditActionRegister, payload.Email, artifact, err)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		h.fail(w, r, model.AuditActionLogin, "", err)
		return
	}

	payload.Normalize()
	if err := payload.Validate(); err != nil {
		h.fail(w, r, model.AuditActionLogin, payload.Email, validationError(err))
		return
	}

	artifact, err := h.identity.Login(r.Context(), payload.Email, payload.Password)
	h.respond(w, r, model.AuditActionLogin, payload.Email, artifact, err)
}

func (h *AuthHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var payload model.UpsertRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		h.fail(w, r, model.AuditActionUpsert, "", err)
		return
	}

	payload.Normalize()
	if err := payload.Validate(); err != nil {
		h.fail(w, r, model.AuditActionUpsert, payload.Email, validationError(err))
		return
	}

	artifact, err := h.identity.Upsert(r.Context(), payload.Email, payload.Role, payload.Password)
	h.respond(w, r, model.AuditActionUpsert, payload.Email, artifact, err)
}

type meResponse struct {
	Subject   string    `json:"subject"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	roles := principal.Roles
	if roles == nil {
		roles = []string{}
	}

	writeSuccess(w, http.StatusOK, meResponse{
		Subject:   principal.Subject,
		Roles:     roles,
		ExpiresAt: principal.ExpiresAt.UTC(),
	}, nil)
}

// respond writes the bare token artifact on success; token operations are the
// one place the response envelope is not used.
func (h *AuthHandler) respond(w http.ResponseWriter, r *http.Request, action model.AuditAction, email string, artifact model.TokenArtifact, err error) {
	if err != nil {
		h.fail(w, r, action, email, err)
		return
	}

	h.record(r, action, email, nil)
	writeJSON(w, http.StatusOK, artifact)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, action model.AuditAction, email string, err error) {
	h.record(r, action, email, err)
	writeError(w, err)
}

func (h *AuthHandler) record(r *http.Request, action model.AuditAction, email string, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(errorCode(err))
	}

	if h.metrics != nil {
		h.metrics.ObserveOperation(string(action), outcome)
	}
	if h.audit != nil {
		h.audit.Record(r.Context(), auditEntryFor(r, action, email, err))
	}
}
