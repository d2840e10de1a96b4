package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/server/auth"
	"github.com/dkovalev/assetvault/internal/server/config"
	"github.com/dkovalev/assetvault/internal/server/repositories/repomanager"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{SecretKey: "unit-secret", TokenValidityDuration: time.Minute}
	m := repomanager.NewInMemoryRepositoryManager()
	return NewUserService(db, m, cfg)
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	user, err := svc.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	assert.NotEqual(t, "correct horse battery", string(user.PasswordHash))

	token, err := svc.Login(ctx, "alice", "correct horse battery")
	require.NoError(t, err)

	userID, err := auth.GetUserIDFromToken(token, []byte("unit-secret"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestUserService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "", "long enough password")
	require.ErrorIs(t, err, common.ErrorInvalidLoginFormat)

	_, err = svc.Register(ctx, "alice", "short")
	require.ErrorIs(t, err, common.ErrorInvalidLoginFormat)
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "correct horse battery")
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestUserService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong password!!")
	require.ErrorIs(t, err, common.ErrorInvalidLoginPassword)

	// unknown user looks exactly like a wrong password
	_, err = svc.Login(ctx, "nobody", "correct horse battery")
	require.ErrorIs(t, err, common.ErrorInvalidLoginPassword)
}
