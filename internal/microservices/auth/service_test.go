package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taskhub/internal/broker"
	"taskhub/internal/config"
)

// MockRepository mocks the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindAll(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]User), args.Error(1)
}

func (m *MockRepository) FindByIDs(ctx context.Context, ids []string) ([]User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]User), args.Error(1)
}

func (m *MockRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	args := m.Called(ctx, email, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UpdateRefreshTokenHash(ctx context.Context, userID, hash string) error {
	args := m.Called(ctx, userID, hash)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-access-secret-test-access-secret",
		JWTRefreshSecret: "test-refresh-secret-test-refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	}
}

func newService(repo Repository) *Service {
	return NewService(repo, testConfig(), slog.Default())
}

func storedUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &User{
		ID:       "u1",
		Email:    "alice@example.com",
		Username: "alice",
		Password: hash,
	}
}

func TestRegister_Success(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)

	repo.On("ExistsByEmailOrUsername", mock.Anything, "alice@example.com", "alice").Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)
	repo.On("UpdateRefreshTokenHash", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	repo.AssertExpectations(t)
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)

	repo.On("ExistsByEmailOrUsername", mock.Anything, "alice@example.com", "alice").Return(true, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})

	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 409, remote.StatusCode)
	repo.AssertNotCalled(t, "Create")
}

func TestRegister_ValidationMessagesAreAList(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{Password: "short"})

	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 400, remote.StatusCode)
	messages, ok := remote.Message.Value().([]string)
	require.True(t, ok)
	assert.Len(t, messages, 3)
}

func TestLogin_Success(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)
	user := storedUser(t, "password123")

	repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(user, nil)
	repo.On("UpdateRefreshTokenHash", mock.Anything, "u1", mock.Anything).Return(nil)

	resp, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.ID)

	// the access token must carry the subject claim the gateway relies on
	token, err := jwt.Parse(resp.AccessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte(testConfig().JWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "access", claims["type"])
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)
	user := storedUser(t, "password123")

	repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(user, nil)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong",
	})

	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 401, remote.StatusCode)
}

func TestLogin_UnknownUserSame401(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)

	repo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, ErrUserNotFound)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})

	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 401, remote.StatusCode)
	assert.Equal(t, "Invalid credentials", remote.Message.String())
}

func TestRefresh_RotatesTokens(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)
	user := storedUser(t, "password123")

	var storedHash string
	repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(user, nil)
	repo.On("FindByID", mock.Anything, "u1").Return(user, nil)
	repo.On("UpdateRefreshTokenHash", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) {
			storedHash = args.String(2)
			user.RefreshTokenHash = storedHash
		}).Return(nil)

	login, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), RefreshInput{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// the old token's hash was overwritten, so replaying it fails
	_, err = svc.Refresh(context.Background(), RefreshInput{RefreshToken: login.RefreshToken})
	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 401, remote.StatusCode)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)
	user := storedUser(t, "password123")

	repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(user, nil)
	repo.On("UpdateRefreshTokenHash", mock.Anything, "u1", mock.Anything).Return(nil)

	login, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	// an access token is signed with a different secret and type
	_, err = svc.Refresh(context.Background(), RefreshInput{RefreshToken: login.AccessToken})
	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 401, remote.StatusCode)
}

func TestValidateUser_ReturnsPublicProfile(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)
	user := storedUser(t, "password123")

	repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(user, nil)

	public, err := svc.ValidateUser(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "u1", public.ID)
	assert.Equal(t, "alice", public.Username)
}

func TestFindByIDs_MapsToPublicUsers(t *testing.T) {
	repo := new(MockRepository)
	svc := newService(repo)

	repo.On("FindByIDs", mock.Anything, []string{"u1", "u2"}).Return([]User{
		{ID: "u1", Email: "a@example.com", Username: "alice", Password: "hash"},
		{ID: "u2", Email: "b@example.com", Username: "bob", Password: "hash"},
	}, nil)

	users, err := svc.FindByIDs(context.Background(), []string{"u1", "u2"})

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestHashTokenHandlesLongTokens(t *testing.T) {
	long := make([]byte, 300) // longer than bcrypt's 72-byte limit
	for i := range long {
		long[i] = 'a'
	}

	hash, err := HashToken(string(long))
	require.NoError(t, err)
	require.NoError(t, VerifyToken(hash, string(long)))
	require.Error(t, VerifyToken(hash, string(long)+"x"))
}
