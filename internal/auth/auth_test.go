package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/database"
	"github.com/hoteldesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *gorm.DB) {
	t.Helper()
	db, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewAuthenticator("test-secret", time.Hour, db), db
}

func newRouter(a *Authenticator, roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", a.Middleware(), RequireRole(roles...), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginAndMiddleware(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()
	_, err := a.CreateUser(ctx, UserInput{Username: "frontdesk", Password: "s3cret-pass", Role: models.RoleManager})
	require.NoError(t, err)

	_, _, err = a.Login(ctx, "frontdesk", "wrong-pass")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, _, err = a.Login(ctx, "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	token, user, err := a.Login(ctx, "frontdesk", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, user.Role)

	claims, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleManager, claims.Role)

	r := newRouter(a, models.RoleAdmin, models.RoleManager)
	w := get(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"frontdesk"}`, w.Body.String())
}

func TestMiddlewareRejects(t *testing.T) {
	a, db := newTestAuthenticator(t)
	ctx := context.Background()
	staff, err := a.CreateUser(ctx, UserInput{Username: "porter", Password: "s3cret-pass", Role: models.RoleStaff})
	require.NoError(t, err)
	staffToken, err := a.GenerateToken(staff)
	require.NoError(t, err)

	r := newRouter(a, models.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "not-a-token").Code)
	assert.Equal(t, http.StatusForbidden, get(r, staffToken).Code)

	other := NewAuthenticator("another-secret", time.Hour, db)
	forged, err := other.GenerateToken(staff)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, forged).Code)

	expired := NewAuthenticator("test-secret", time.Hour, db)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateToken(staff)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, old).Code)

	require.NoError(t, db.Model(staff).Update("is_active", false).Error)
	w := get(newRouter(a, models.RoleStaff), staffToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"FORBIDDEN"`)
}

func TestCreateUserValidation(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	_, err := a.CreateUser(ctx, UserInput{Username: "", Password: "s3cret-pass", Role: models.RoleStaff})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = a.CreateUser(ctx, UserInput{Username: "maid", Password: "short", Role: models.RoleStaff})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = a.CreateUser(ctx, UserInput{Username: "maid", Password: "s3cret-pass", Role: "owner"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = a.CreateUser(ctx, UserInput{Username: "maid", Password: "s3cret-pass", Role: models.RoleStaff})
	require.NoError(t, err)
	_, err = a.CreateUser(ctx, UserInput{Username: "maid", Password: "s3cret-pass", Role: models.RoleStaff})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	users, err := a.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEnsureAdmin(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.EnsureAdmin(ctx, "admin", "", "", zap.NewNop()), apperrors.ErrValidation)

	require.NoError(t, a.EnsureAdmin(ctx, "admin", "bootstrap-pass", "admin@hotel.test", zap.NewNop()))
	require.NoError(t, a.EnsureAdmin(ctx, "admin", "bootstrap-pass", "admin@hotel.test", zap.NewNop()))

	users, err := a.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.True(t, users[0].IsActive)
}
