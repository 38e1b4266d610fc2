package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go-identity-service/internal/model"
)

type auditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error)
}

// AuditService keeps a trail of register, login and upsert attempts.
type AuditService struct {
	store auditStore
	now   func() time.Time
}

func NewAuditService(store auditStore) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// Record never fails the caller; a broken audit sink is only logged.
func (s *AuditService) Record(ctx context.Context, entry model.AuditEntry) {
	if s == nil || s.store == nil {
		return
	}

	entry.Email = model.NormalizeEmail(entry.Email)
	if entry.Status == "" {
		entry.Status = model.AuditStatusSuccess
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = s.now().UTC()
	}

	if err := s.store.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("audit entry dropped", "action", entry.Action, "email", entry.Email, "error", err)
	}
}

func (s *AuditService) List(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error) {
	query.Limit = query.EffectiveLimit()
	query.Action = strings.ToLower(strings.TrimSpace(query.Action))

	entries, err := s.store.Query(ctx, query)
	if err != nil {
		return nil, persistenceError("query audit entries", err)
	}
	return entries, nil
}
