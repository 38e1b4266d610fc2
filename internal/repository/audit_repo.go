package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go-identity-service/internal/model"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_entries (action, email, status, client_ip, error_code, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		string(entry.Action), entry.Email, entry.Status, entry.ClientIP, entry.ErrorCode, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

// Query returns entries newest first. Callers clamp the limit.
func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 3)

	if action := strings.TrimSpace(query.Action); action != "" {
		args = append(args, strings.ToLower(action))
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if email := strings.TrimSpace(query.Email); email != "" {
		args = append(args, model.NormalizeEmail(email))
		where = append(where, fmt.Sprintf("email = $%d", len(args)))
	}

	stmt := `SELECT id, action, email, status, client_ip, error_code, occurred_at FROM audit_entries`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, query.Limit)
	stmt += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var (
			e      model.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &action, &e.Email, &e.Status, &e.ClientIP, &e.ErrorCode, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = model.AuditAction(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
