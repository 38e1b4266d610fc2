package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go-identity-service/internal/model"
	"go-identity-service/pkg/apierror"
)

type auditLister interface {
	List(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error)
}

type AuditHandler struct {
	audit auditLister
}

func NewAuditHandler(audit auditLister) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List serves GET /audit?action=&email=&limit= newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := model.AuditQuery{
		Action: strings.TrimSpace(q.Get("action")),
		Email:  model.NormalizeEmail(q.Get("email")),
	}

	if query.Action != "" {
		switch model.AuditAction(strings.ToLower(query.Action)) {
		case model.AuditActionRegister, model.AuditActionLogin, model.AuditActionUpsert:
		default:
			writeError(w, apierror.New("BAD_REQUEST", "unknown action", query.Action, http.StatusBadRequest))
			return
		}
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, apierror.New("BAD_REQUEST", "limit must be a positive integer", raw, http.StatusBadRequest))
			return
		}
		query.Limit = limit
	}
	query.Limit = query.EffectiveLimit()

	entries, err := h.audit.List(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}

	writeSuccess(w, http.StatusOK, model.AuditList{Entries: entries}, &model.Meta{Limit: query.Limit, Count: len(entries)})
}
