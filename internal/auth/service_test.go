package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticketly/internal/shared/config"
	"ticketly/internal/users"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*users.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[uuid.UUID]*users.User{}}
}

func (r *memoryRepo) CreateUser(_ context.Context, u *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == normalizeEmail(u.Email) {
			return ErrUserAlreadyExists
		}
	}
	u.ID = uuid.New()
	u.Email = normalizeEmail(u.Email)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = u
	return nil
}

func (r *memoryRepo) GetUserByEmail(_ context.Context, email string) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == normalizeEmail(email) {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryRepo) GetUserByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (r *memoryRepo) GetContact(ctx context.Context, id uuid.UUID) (*users.Contact, error) {
	u, err := r.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &users.Contact{Name: u.Name, Email: u.Email}, nil
}

func (r *memoryRepo) UpdatePassword(_ context.Context, id uuid.UUID, hashed string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Password = hashed
	return nil
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.JWTExpiresIn = time.Minute
	cfg.JWT.RefreshExpiresIn = time.Hour
	return cfg
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), testConfig())

	resp, err := svc.Register(ctx, &RegisterRequest{Name: "Ada", Email: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, string(users.RoleUser), resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Register(ctx, &RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestRegisterUnknownRoleFallsBackToUser(t *testing.T) {
	svc := NewService(newMemoryRepo(), testConfig())

	resp, err := svc.Register(context.Background(), &RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "secret1", Role: "root"})
	require.NoError(t, err)
	assert.Equal(t, string(users.RoleUser), resp.User.Role)

	admin, err := svc.Register(context.Background(), &RegisterRequest{Name: "Al", Email: "al@example.com", Password: "secret1", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, string(users.RoleAdmin), admin.User.Role)
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), testConfig())

	resp, err := svc.Register(ctx, &RegisterRequest{Name: "Cy", Email: "cy@example.com", Password: "secret1"})
	require.NoError(t, err)

	pair, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// access tokens cannot be used to refresh
	_, err = svc.RefreshToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testConfig()
	svc := &service{repo: newMemoryRepo(), config: cfg}

	token, err := svc.signToken(uuid.NewString(), "x@example.com", "USER", "access", time.Now().Add(-2*time.Hour), time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{Type: "access"})
	s, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), testConfig())

	resp, err := svc.Register(ctx, &RegisterRequest{Name: "Di", Email: "di@example.com", Password: "secret1"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, resp.User.ID, &ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "secret2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, resp.User.ID, &ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))
	_, err = svc.Login(ctx, &LoginRequest{Email: "di@example.com", Password: "secret2"})
	assert.NoError(t, err)
}

func TestGetUserRejectsMalformedID(t *testing.T) {
	svc := NewService(newMemoryRepo(), testConfig())

	_, err := svc.GetUser(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserDirectory(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, testConfig())

	resp, err := svc.Register(ctx, &RegisterRequest{Name: "Ed", Email: "ed@example.com", Password: "secret1"})
	require.NoError(t, err)

	dir := NewUserDirectory(repo)
	email, name, err := dir.GetUserContact(ctx, uuid.MustParse(resp.User.ID))
	require.NoError(t, err)
	assert.Equal(t, "ed@example.com", email)
	assert.Equal(t, "Ed", name)

	_, _, err = dir.GetUserContact(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
