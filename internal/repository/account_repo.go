package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-identity-service/internal/model"
)

// AccountRepository stores accounts and their role assignments in PostgreSQL.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindAccountByEmail returns the account without its roles; use ListRoleAssignments for those.
func (r *AccountRepository) FindAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	var a model.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM accounts WHERE lower(email) = lower($1)`, model.NormalizeEmail(email)).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, model.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("find account by email: %w", err)
	}
	return a, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *AccountRepository) SaveAccount(ctx context.Context, a *model.Account) error {
	return insertAccount(ctx, r.db, a)
}

func (r *AccountRepository) SaveRoleAssignment(ctx context.Context, ra *model.RoleAssignment) error {
	return insertRoleAssignment(ctx, r.db, ra)
}

// CreateAccountWithRole inserts a new account and its first role assignment in
// one transaction. Either both rows exist afterwards or neither does.
func (r *AccountRepository) CreateAccountWithRole(ctx context.Context, a *model.Account, ra *model.RoleAssignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create account: %w", err)
	}
	defer tx.Rollback()

	if err := insertAccount(ctx, tx, a); err != nil {
		return err
	}

	ra.AccountID = a.ID
	if err := insertRoleAssignment(ctx, tx, ra); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create account: %w", err)
	}
	return nil
}

func insertAccount(ctx context.Context, ex execer, a *model.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := ex.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Email, a.PasswordHash, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgErrUniqueViolation {
			return model.ErrAccountExists
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func insertRoleAssignment(ctx context.Context, ex execer, ra *model.RoleAssignment) error {
	if ra.ID == "" {
		ra.ID = uuid.NewString()
	}
	if ra.CreatedAt.IsZero() {
		ra.CreatedAt = time.Now().UTC()
	}

	_, err := ex.ExecContext(ctx,
		`INSERT INTO role_assignments (id, account_id, role_name, created_at)
		 VALUES ($1, $2, $3, $4)`,
		ra.ID, ra.AccountID, ra.RoleName, ra.CreatedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgErrUniqueViolation:
			return model.ErrRoleAssignmentExists
		case pgErrForeignKeyViolation:
			return model.ErrAccountNotFound
		}
		return fmt.Errorf("save role assignment: %w", err)
	}
	return nil
}

func (r *AccountRepository) ListRoleAssignments(ctx context.Context, accountID string) ([]model.RoleAssignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, role_name, created_at
		 FROM role_assignments WHERE account_id = $1 ORDER BY created_at, role_name`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	defer rows.Close()

	roles := make([]model.RoleAssignment, 0)
	for rows.Next() {
		var ra model.RoleAssignment
		if err := rows.Scan(&ra.ID, &ra.AccountID, &ra.RoleName, &ra.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan role assignment: %w", err)
		}
		roles = append(roles, ra)
	}
	return roles, rows.Err()
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
