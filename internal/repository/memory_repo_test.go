package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"go-identity-service/internal/model"
)

func TestMemoryAccountRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		t.Parallel()
		repo := NewMemoryAccountRepository()
		require.NoError(t, repo.SaveAccount(ctx, &model.Account{Email: "u@test.com", PasswordHash: "h"}))

		found, err := repo.FindAccountByEmail(ctx, "U@TEST.com")
		require.NoError(t, err)
		require.Equal(t, "u@test.com", found.Email)
	})

	t.Run("concurrent saves of one email leave exactly one winner", func(t *testing.T) {
		t.Parallel()
		repo := NewMemoryAccountRepository()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			wins     int
			conflict int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.SaveAccount(ctx, &model.Account{Email: "race@test.com", PasswordHash: "h"})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
				} else if errors.Is(err, model.ErrAccountExists) {
					conflict++
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, wins)
		require.Equal(t, 15, conflict)
	})

	t.Run("role pairs are unique", func(t *testing.T) {
		t.Parallel()
		repo := NewMemoryAccountRepository()
		account := &model.Account{Email: "u@test.com", PasswordHash: "h"}
		require.NoError(t, repo.SaveAccount(ctx, account))

		require.NoError(t, repo.SaveRoleAssignment(ctx, &model.RoleAssignment{AccountID: account.ID, RoleName: "admin"}))
		err := repo.SaveRoleAssignment(ctx, &model.RoleAssignment{AccountID: account.ID, RoleName: "admin"})
		require.ErrorIs(t, err, model.ErrRoleAssignmentExists)

		err = repo.SaveRoleAssignment(ctx, &model.RoleAssignment{AccountID: "nope", RoleName: "admin"})
		require.ErrorIs(t, err, model.ErrAccountNotFound)

		roles, err := repo.ListRoleAssignments(ctx, account.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)
	})
}

func TestMemoryAccountRepositoryCreateAccountWithRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores account and role together", func(t *testing.T) {
		t.Parallel()
		repo := NewMemoryAccountRepository()
		account := &model.Account{Email: "u@test.com", PasswordHash: "h"}
		role := &model.RoleAssignment{RoleName: "user"}

		require.NoError(t, repo.CreateAccountWithRole(ctx, account, role))
		require.Equal(t, account.ID, role.AccountID)

		roles, err := repo.ListRoleAssignments(ctx, account.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)

		err = repo.CreateAccountWithRole(ctx, &model.Account{Email: "U@test.com", PasswordHash: "h"}, &model.RoleAssignment{RoleName: "user"})
		require.ErrorIs(t, err, model.ErrAccountExists)
	})

	t.Run("failed role write leaves no account", func(t *testing.T) {
		t.Parallel()
		repo := NewMemoryAccountRepository()
		boom := errors.New("connection reset")
		repo.FailRoleWritesWith(boom)

		err := repo.CreateAccountWithRole(ctx, &model.Account{Email: "u@test.com", PasswordHash: "h"}, &model.RoleAssignment{RoleName: "user"})
		require.ErrorIs(t, err, boom)

		_, err = repo.FindAccountByEmail(ctx, "u@test.com")
		require.ErrorIs(t, err, model.ErrAccountNotFound)
	})
}

func TestMemoryAuditRepositoryQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryAuditRepository()

	require.NoError(t, repo.Log(ctx, model.AuditEntry{Action: model.AuditActionRegister, Email: "a@x.com"}))
	require.NoError(t, repo.Log(ctx, model.AuditEntry{Action: model.AuditActionLogin, Email: "a@x.com"}))
	require.NoError(t, repo.Log(ctx, model.AuditEntry{Action: model.AuditActionLogin, Email: "b@x.com"}))

	entries, err := repo.Query(ctx, model.AuditQuery{Action: "LOGIN", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "b@x.com", entries[0].Email)

	entries, err = repo.Query(ctx, model.AuditQuery{Email: "a@x.com", Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.AuditActionLogin, entries[0].Action)
}
