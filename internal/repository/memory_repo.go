package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-identity-service/internal/model"
)

// MemoryAccountRepository keeps accounts in process memory. It enforces the same
// uniqueness rules as the PostgreSQL schema and is meant for local runs and tests.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	byEmail  map[string]model.Account
	byID     map[string]string
	roles    map[string][]model.RoleAssignment
	failWith error
	// failRoles fails only role assignment writes, as a dropped connection
	// between the account insert and the role insert would.
	failRoles error
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byEmail: map[string]model.Account{},
		byID:    map[string]string{},
		roles:   map[string][]model.RoleAssignment{},
	}
}

// FailWith makes every subsequent call return err. Passing nil restores normal behavior.
func (r *MemoryAccountRepository) FailWith(err error) {
	r.mu.Lock()
	r.failWith = err
	r.mu.Unlock()
}

// FailRoleWritesWith makes role assignment writes return err while reads and
// account writes keep working. Passing nil restores normal behavior.
func (r *MemoryAccountRepository) FailRoleWritesWith(err error) {
	r.mu.Lock()
	r.failRoles = err
	r.mu.Unlock()
}

func (r *MemoryAccountRepository) FindAccountByEmail(_ context.Context, email string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.failWith != nil {
		return model.Account{}, r.failWith
	}

	a, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return a, nil
}

func (r *MemoryAccountRepository) SaveAccount(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}
	return r.saveAccountLocked(a)
}

func (r *MemoryAccountRepository) SaveRoleAssignment(_ context.Context, ra *model.RoleAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}
	if r.failRoles != nil {
		return r.failRoles
	}
	return r.saveRoleLocked(ra)
}

// CreateAccountWithRole writes the account and its first role under one lock;
// on any error nothing is stored.
func (r *MemoryAccountRepository) CreateAccountWithRole(_ context.Context, a *model.Account, ra *model.RoleAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}
	if _, exists := r.byEmail[model.NormalizeEmail(a.Email)]; exists {
		return model.ErrAccountExists
	}
	if r.failRoles != nil {
		return r.failRoles
	}

	if err := r.saveAccountLocked(a); err != nil {
		return err
	}
	ra.AccountID = a.ID
	return r.saveRoleLocked(ra)
}

func (r *MemoryAccountRepository) saveAccountLocked(a *model.Account) error {
	key := model.NormalizeEmail(a.Email)
	if _, exists := r.byEmail[key]; exists {
		return model.ErrAccountExists
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	stored := *a
	stored.Roles = nil
	r.byEmail[key] = stored
	r.byID[a.ID] = key
	return nil
}

func (r *MemoryAccountRepository) saveRoleLocked(ra *model.RoleAssignment) error {
	if _, ok := r.byID[ra.AccountID]; !ok {
		return model.ErrAccountNotFound
	}
	for _, existing := range r.roles[ra.AccountID] {
		if existing.RoleName == ra.RoleName {
			return model.ErrRoleAssignmentExists
		}
	}

	if ra.ID == "" {
		ra.ID = uuid.NewString()
	}
	if ra.CreatedAt.IsZero() {
		ra.CreatedAt = time.Now().UTC()
	}
	r.roles[ra.AccountID] = append(r.roles[ra.AccountID], *ra)
	return nil
}

func (r *MemoryAccountRepository) ListRoleAssignments(_ context.Context, accountID string) ([]model.RoleAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.failWith != nil {
		return nil, r.failWith
	}

	out := make([]model.RoleAssignment, len(r.roles[accountID]))
	copy(out, r.roles[accountID])
	return out, nil
}

func (r *MemoryAccountRepository) Ping(context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failWith
}

const memoryAuditCapacity = 1000

// MemoryAuditRepository keeps the most recent audit entries.
type MemoryAuditRepository struct {
	mu      sync.Mutex
	nextID  int64
	entries []model.AuditEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Log(_ context.Context, entry model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, entry)
	if len(r.entries) > memoryAuditCapacity {
		r.entries = r.entries[len(r.entries)-memoryAuditCapacity:]
	}
	return nil
}

func (r *MemoryAuditRepository) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	action := model.AuditAction(strings.ToLower(strings.TrimSpace(query.Action)))
	email := model.NormalizeEmail(query.Email)

	out := make([]model.AuditEntry, 0)
	for i := len(r.entries) - 1; i >= 0 && len(out) < query.Limit; i-- {
		e := r.entries[i]
		if action != "" && e.Action != action {
			continue
		}
		if email != "" && e.Email != email {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
