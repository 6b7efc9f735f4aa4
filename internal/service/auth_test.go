package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

// MockUserRepo is a mock implementation of UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockSessionRepo is a mock implementation of SessionRepository
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepo) GetByHash(ctx context.Context, hash string) (*domain.Session, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func newAuthService(userRepo *MockUserRepo, sessionRepo *MockSessionRepo) *AuthService {
	return NewAuthService(userRepo, sessionRepo, &DefaultUUIDGenerator{}, time.Hour)
}

func activeUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           3,
		Username:     "alice",
		PasswordHash: string(hash),
		IsActive:     true,
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepo)
	userRepo.On("GetByUsername", ctx, "alice").Return(nil, domain.ErrUserNotFound)

	var created *domain.User
	userRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.User)
	}).Return(nil)

	svc := newAuthService(userRepo, new(MockSessionRepo))
	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "correct horse", Email: "a@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsActive)
	require.NotNil(t, created)
	// Stored hash verifies against the raw password and is not the password.
	assert.NotEqual(t, "correct horse", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("correct horse")))
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepo)
	userRepo.On("GetByUsername", ctx, "alice").Return(&domain.User{ID: 1}, nil)

	svc := newAuthService(userRepo, new(MockSessionRepo))
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "longenough"})

	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthService(new(MockUserRepo), new(MockSessionRepo))

	_, err := svc.Register(context.Background(), RegisterInput{Username: "ab", Password: "longenough"})
	require.Error(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{Username: "alice", Password: "short"})
	require.Error(t, err)
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	userRepo.On("GetByUsername", ctx, "alice").Return(activeUser(t, "correct horse"), nil)

	var session *domain.Session
	sessionRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		session = args.Get(1).(*domain.Session)
	}).Return(nil)

	svc := newAuthService(userRepo, sessionRepo)
	result, err := svc.Login(ctx, "alice", "correct horse", false)

	require.NoError(t, err)
	assert.True(t, IsValidSessionToken(result.Token))
	require.NotNil(t, session)
	// The raw token never hits the database.
	assert.NotEqual(t, result.Token, session.TokenHash)
	assert.Equal(t, hashToken(result.Token), session.TokenHash)
	assert.Equal(t, int64(3), session.UserID)
}

func TestAuthService_Login_RememberMeExtendsSession(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	userRepo.On("GetByUsername", ctx, "alice").Return(activeUser(t, "correct horse"), nil)

	var session *domain.Session
	sessionRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		session = args.Get(1).(*domain.Session)
	}).Return(nil)

	svc := newAuthService(userRepo, sessionRepo)
	result, err := svc.Login(ctx, "alice", "correct horse", true)

	require.NoError(t, err)
	require.NotNil(t, session)
	// Well beyond the default 24h window.
	assert.True(t, result.ExpiresAt.After(time.Now().Add(29*24*time.Hour)))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepo)
	userRepo.On("GetByUsername", ctx, "alice").Return(activeUser(t, "correct horse"), nil)

	svc := newAuthService(userRepo, new(MockSessionRepo))
	_, err := svc.Login(ctx, "alice", "wrong", false)

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownUserLooksLikeBadCredentials(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepo)
	userRepo.On("GetByUsername", ctx, "ghost").Return(nil, domain.ErrUserNotFound)

	svc := newAuthService(userRepo, new(MockSessionRepo))
	_, err := svc.Login(ctx, "ghost", "whatever", false)

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepo)
	user := activeUser(t, "correct horse")
	user.IsActive = false
	userRepo.On("GetByUsername", ctx, "alice").Return(user, nil)

	svc := newAuthService(userRepo, new(MockSessionRepo))
	_, err := svc.Login(ctx, "alice", "correct horse", false)

	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestAuthService_ValidateToken_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepo)
	sessionRepo := new(MockSessionRepo)

	token := sessionTokenPrefix + "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	session := &domain.Session{
		ID:        "sess-1",
		UserID:    3,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	sessionRepo.On("GetByHash", ctx, hashToken(token)).Return(session, nil)
	userRepo.On("GetByID", ctx, int64(3)).Return(activeUser(t, "x"), nil)

	svc := newAuthService(userRepo, sessionRepo)
	user, err := svc.ValidateToken(ctx, token)

	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
}

func TestAuthService_ValidateToken_Expired(t *testing.T) {
	ctx := context.Background()
	sessionRepo := new(MockSessionRepo)

	token := sessionTokenPrefix + "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	sessionRepo.On("GetByHash", ctx, hashToken(token)).Return(&domain.Session{
		ID:        "sess-1",
		UserID:    3,
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	svc := newAuthService(new(MockUserRepo), sessionRepo)
	_, err := svc.ValidateToken(ctx, token)

	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthService_ValidateToken_BadFormat(t *testing.T) {
	svc := newAuthService(new(MockUserRepo), new(MockSessionRepo))

	for _, token := range []string{"", "bearer", "pbs_short", "ntx_" + string(make([]byte, 64))} {
		_, err := svc.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken, "token %q", token)
	}
}

func TestAuthService_Logout_UnknownTokenIsClean(t *testing.T) {
	ctx := context.Background()
	sessionRepo := new(MockSessionRepo)

	token := sessionTokenPrefix + "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	sessionRepo.On("GetByHash", ctx, hashToken(token)).Return(nil, domain.ErrSessionNotFound)

	svc := newAuthService(new(MockUserRepo), sessionRepo)
	assert.NoError(t, svc.Logout(ctx, token))
	assert.NoError(t, svc.Logout(ctx, "not-a-token"))
}
