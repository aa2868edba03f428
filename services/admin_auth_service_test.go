package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/database"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/utils"
)

type memoryAdminStore struct {
	mu        sync.Mutex
	admins    map[string]*models.AdminCredential
	lastLogin map[primitive.ObjectID]time.Time
	findErr   error
}

func newMemoryAdminStore() *memoryAdminStore {
	return &memoryAdminStore{
		admins:    map[string]*models.AdminCredential{},
		lastLogin: map[primitive.ObjectID]time.Time{},
	}
}

func (m *memoryAdminStore) Create(ctx context.Context, admin *models.AdminCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[admin.Username]; ok {
		return fmt.Errorf("admin %s: %w", admin.Username, database.ErrDuplicate)
	}
	admin.ID = primitive.NewObjectID()
	copied := *admin
	m.admins[admin.Username] = &copied
	return nil
}

func (m *memoryAdminStore) FindByUsername(ctx context.Context, username string) (*models.AdminCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	admin, ok := m.admins[username]
	if !ok {
		return nil, nil
	}
	copied := *admin
	return &copied, nil
}

func (m *memoryAdminStore) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLogin[id] = at
	return nil
}

func (m *memoryAdminStore) UpdatePassword(ctx context.Context, username, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[username]
	if !ok {
		return false, nil
	}
	admin.PasswordHash = hash
	return true, nil
}

const (
	testAdminSecret   = "admin-secret"
	testAdminPassword = "correct-horse-battery"
)

func newTestAdminAuth(t *testing.T) (*AdminAuthService, *memoryAdminStore) {
	t.Helper()
	store := newMemoryAdminStore()
	svc := NewAdminAuthService(store, NewMemoryLoginLimiter(5, 5*time.Minute), testAdminSecret, time.Hour, zap.NewNop(), NewMetrics())
	created, err := svc.EnsureAdmin(context.Background(), "root", testAdminPassword, false)
	require.NoError(t, err)
	require.True(t, created)
	return svc, store
}

func TestLoginSucces(t *testing.T) {
	svc, store := newTestAdminAuth(t)

	resp, err := svc.Login(context.Background(), "root", testAdminPassword, "ip")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	identity, err := svc.Authorize(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "root", identity.Username)
	assert.Equal(t, "admin", identity.Role)
	assert.Len(t, store.lastLogin, 1)
}

func TestLoginMemeReponsePourInconnuEtMauvaisMotDePasse(t *testing.T) {
	svc, _ := newTestAdminAuth(t)

	_, errUnknown := svc.Login(context.Background(), "ghost", testAdminPassword, "ip-a")
	_, errWrong := svc.Login(context.Background(), "root", "wrong-password", "ip-b")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, apperrors.FromError(errUnknown).Message, apperrors.FromError(errWrong).Message)
	assert.Equal(t, "Invalid credentials", apperrors.FromError(errWrong).Message)
	assert.ErrorIs(t, errWrong, apperrors.ErrUnauthorized)
}

func TestLoginBloqueApresCinqEchecsMemeAvecLeBonMotDePasse(t *testing.T) {
	svc, _ := newTestAdminAuth(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "root", "wrong-password", "ip")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}
	// trois échecs ne verrouillent pas le compte
	_, err := svc.Login(ctx, "root", testAdminPassword, "ip")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _ = svc.Login(ctx, "root", "wrong-password", "ip")
	}

	_, err = svc.Login(ctx, "root", testAdminPassword, "ip")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTooManyAttempts)
	var blocked *LoginBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Greater(t, blocked.RetryAfter, time.Duration(0))

	// un autre poste n'est pas bloqué
	_, err = svc.Login(ctx, "root", testAdminPassword, "other-ip")
	assert.NoError(t, err)
}

func TestLoginErreurBase(t *testing.T) {
	svc, store := newTestAdminAuth(t)
	store.findErr = errors.New("connection refused")

	_, err := svc.Login(context.Background(), "root", testAdminPassword, "ip")
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestAuthorize(t *testing.T) {
	svc, _ := newTestAdminAuth(t)

	expired, _ := utils.GenerateAdminToken("a", "root", testAdminSecret, -time.Minute)
	otherSecret, _ := utils.GenerateAdminToken("a", "root", "other", time.Hour)
	userToken, _ := utils.GenerateToken(utils.Claims{SubjectID: "g-1", Email: "a@x.com"}, testAdminSecret, time.Hour)

	tests := []struct {
		name    string
		token   string
		want    *apperrors.Error
		message string
	}{
		{"absent", "", apperrors.ErrUnauthorized, "Admin authentication required"},
		{"mal formé", "not-a-jwt", apperrors.ErrUnauthorized, "Invalid admin token"},
		{"expiré", expired, apperrors.ErrUnauthorized, "Admin token expired"},
		{"mauvais secret", otherSecret, apperrors.ErrUnauthorized, "Invalid admin token"},
		{"token utilisateur sans rôle", userToken, apperrors.ErrForbidden, "Admin access required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authorize(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.message, apperrors.FromError(err).Message)
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc, _ := newTestAdminAuth(t)
	ctx := context.Background()

	_, err := svc.EnsureAdmin(ctx, "root", "another-long-password", false)
	assert.Error(t, err)

	created, err := svc.EnsureAdmin(ctx, "root", "another-long-password", true)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Login(ctx, "root", "another-long-password", "ip")
	assert.NoError(t, err)

	_, err = svc.EnsureAdmin(ctx, "short", "abc", false)
	assert.Error(t, err)
}
