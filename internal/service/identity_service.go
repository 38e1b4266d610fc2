package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go-identity-service/internal/model"
)

const DefaultTokenValidityMinutes = 30

// AccountStore is the persistence collaborator. Implementations must report a
// duplicate email as model.ErrAccountExists and a duplicate (account, role) pair
// as model.ErrRoleAssignmentExists. CreateAccountWithRole must store both rows
// or neither.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (model.Account, error)
	CreateAccountWithRole(ctx context.Context, account *model.Account, assignment *model.RoleAssignment) error
	SaveRoleAssignment(ctx context.Context, assignment *model.RoleAssignment) error
	ListRoleAssignments(ctx context.Context, accountID string) ([]model.RoleAssignment, error)
}

type tokenIssuer interface {
	Issue(subject string, roles []string, validityMinutes int) (model.TokenArtifact, error)
}

type IdentityOptions struct {
	TokenValidityMinutes int
	DefaultRole          string
	// SelfRegisterRoles limits the roles a caller may ask for on register.
	// The default role is always allowed.
	SelfRegisterRoles []string
}

type IdentityService struct {
	store             AccountStore
	hasher            PasswordHasher
	tokens            tokenIssuer
	validityMinutes   int
	defaultRole       string
	selfRegisterRoles map[string]struct{}

	dummyOnce sync.Once
	dummyHash string
}

func NewIdentityService(store AccountStore, hasher PasswordHasher, tokens tokenIssuer, opts IdentityOptions) (*IdentityService, error) {
	if store == nil || hasher == nil || tokens == nil {
		return nil, errors.New("identity service requires a store, a hasher and a token issuer")
	}

	if opts.TokenValidityMinutes <= 0 {
		opts.TokenValidityMinutes = DefaultTokenValidityMinutes
	}

	defaultRole := model.NormalizeRole(opts.DefaultRole)
	if defaultRole == "" {
		defaultRole = "user"
	}
	if !model.ValidRoleName(defaultRole) {
		return nil, fmt.Errorf("%w: default role %q", model.ErrInvalidInput, opts.DefaultRole)
	}

	allowed := map[string]struct{}{defaultRole: {}}
	for _, role := range opts.SelfRegisterRoles {
		if normalized := model.NormalizeRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return &IdentityService{
		store:             store,
		hasher:            hasher,
		tokens:            tokens,
		validityMinutes:   opts.TokenValidityMinutes,
		defaultRole:       defaultRole,
		selfRegisterRoles: allowed,
	}, nil
}

// Register creates a new account holding a single role and returns its first token.
// An empty role means the configured default role.
func (s *IdentityService) Register(ctx context.Context, email string, password string, role string) (model.TokenArtifact, error) {
	email = model.NormalizeEmail(email)
	role = model.NormalizeRole(role)
	if role == "" {
		role = s.defaultRole
	}

	if email == "" || password == "" {
		return model.TokenArtifact{}, fmt.Errorf("%w: email and password are required", model.ErrInvalidInput)
	}
	if !model.ValidRoleName(role) {
		return model.TokenArtifact{}, fmt.Errorf("%w: invalid role %q", model.ErrInvalidInput, role)
	}
	if _, ok := s.selfRegisterRoles[role]; !ok {
		return model.TokenArtifact{}, fmt.Errorf("%w: role %q cannot be requested on register", model.ErrForbidden, role)
	}

	_, err := s.store.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return model.TokenArtifact{}, model.ErrAccountExists
	case !errors.Is(err, model.ErrAccountNotFound):
		return model.TokenArtifact{}, persistenceError("find account", err)
	}

	account, err := s.createAccount(ctx, email, password, role)
	if err != nil {
		return model.TokenArtifact{}, err
	}

	slog.Info("account registered", "account_id", account.ID, "email", account.Email, "role", role)
	return s.issue(account)
}

// Login never tells the caller whether the email or the password was wrong;
// the returned error still wraps model.ErrAccountNotFound for unknown emails.
func (s *IdentityService) Login(ctx context.Context, email string, password string) (model.TokenArtifact, error) {
	email = model.NormalizeEmail(email)

	account, err := s.store.FindAccountByEmail(ctx, email)
	if errors.Is(err, model.ErrAccountNotFound) {
		s.hasher.Verify(password, s.timingHash())
		return model.TokenArtifact{}, fmt.Errorf("%w: %w", model.ErrInvalidCredentials, model.ErrAccountNotFound)
	}
	if err != nil {
		return model.TokenArtifact{}, persistenceError("find account", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return model.TokenArtifact{}, model.ErrInvalidCredentials
	}

	if err := s.loadRoles(ctx, &account); err != nil {
		return model.TokenArtifact{}, err
	}

	return s.issue(account)
}

// Upsert makes sure an account exists for email and holds role, then returns a
// token carrying the full role set. For an existing account the password is
// ignored: upsert never changes credentials.
func (s *IdentityService) Upsert(ctx context.Context, email string, role string, password string) (model.TokenArtifact, error) {
	email = model.NormalizeEmail(email)
	role = model.NormalizeRole(role)

	if email == "" {
		return model.TokenArtifact{}, fmt.Errorf("%w: email is required", model.ErrInvalidInput)
	}
	if !model.ValidRoleName(role) {
		return model.TokenArtifact{}, fmt.Errorf("%w: invalid role %q", model.ErrInvalidInput, role)
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if errors.Is(err, model.ErrAccountNotFound) {
		account, err = s.createForUpsert(ctx, email, role, password)
		if err == nil {
			return s.issue(account)
		}
		if !errors.Is(err, model.ErrAccountExists) {
			return model.TokenArtifact{}, err
		}
		// Lost a creation race; continue with the account that won.
		account, err = s.store.FindAccountByEmail(ctx, email)
	}
	if err != nil {
		return model.TokenArtifact{}, persistenceError("find account", err)
	}

	if err := s.loadRoles(ctx, &account); err != nil {
		return model.TokenArtifact{}, err
	}

	if !hasRoleFold(account.Roles, role) {
		assignment := model.RoleAssignment{AccountID: account.ID, RoleName: role}
		err := s.store.SaveRoleAssignment(ctx, &assignment)
		switch {
		case err == nil:
			account.Roles = append(account.Roles, assignment)
			slog.Info("role assigned", "account_id", account.ID, "role", role)
		case errors.Is(err, model.ErrRoleAssignmentExists):
			if err := s.loadRoles(ctx, &account); err != nil {
				return model.TokenArtifact{}, err
			}
		default:
			return model.TokenArtifact{}, persistenceError("save role assignment", err)
		}
	}

	return s.issue(account)
}

func (s *IdentityService) createForUpsert(ctx context.Context, email string, role string, password string) (model.Account, error) {
	if strings.TrimSpace(password) == "" {
		generated, err := generateTempPassword()
		if err != nil {
			return model.Account{}, err
		}
		password = generated
	}

	account, err := s.createAccount(ctx, email, password, role)
	if err != nil {
		return model.Account{}, err
	}

	slog.Info("account created by upsert", "account_id", account.ID, "email", account.Email, "role", role)
	return account, nil
}

func (s *IdentityService) createAccount(ctx context.Context, email string, password string, role string) (model.Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.Account{}, err
	}

	account := model.Account{Email: email, PasswordHash: hash}
	assignment := model.RoleAssignment{RoleName: role}
	if err := s.store.CreateAccountWithRole(ctx, &account, &assignment); err != nil {
		if errors.Is(err, model.ErrAccountExists) {
			return model.Account{}, model.ErrAccountExists
		}
		return model.Account{}, persistenceError("create account", err)
	}
	account.Roles = []model.RoleAssignment{assignment}

	return account, nil
}

func (s *IdentityService) loadRoles(ctx context.Context, account *model.Account) error {
	roles, err := s.store.ListRoleAssignments(ctx, account.ID)
	if err != nil {
		return persistenceError("list role assignments", err)
	}
	account.Roles = roles
	return nil
}

func (s *IdentityService) issue(account model.Account) (model.TokenArtifact, error) {
	return s.tokens.Issue(account.Email, account.RoleNames(), s.validityMinutes)
}

// timingHash is compared against for unknown emails so both login failures cost a hash.
func (s *IdentityService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-equalizer-password")
		if err != nil {
			slog.Warn("could not prepare timing hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func hasRoleFold(roles []model.RoleAssignment, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r.RoleName, role) {
			return true
		}
	}
	return false
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrPersistence, op, err)
}
