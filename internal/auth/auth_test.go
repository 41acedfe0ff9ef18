package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	_, err := NewJWTManager("")
	assert.Error(t, err)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)

	token, err := jm.GenerateToken(context.Background(), "ops", []string{RoleOperator}, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := jm.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.HasRole(RoleOperator))
	assert.False(t, claims.HasRole(RoleIntegrator))
	assert.Equal(t, "reorder-engine", claims.Issuer)
}

func TestJWTManager_RejectsExpiredAndForeignTokens(t *testing.T) {
	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)
	other, err := NewJWTManager("other-secret")
	require.NoError(t, err)

	expired, err := jm.GenerateToken(context.Background(), "ops", nil, -time.Minute)
	require.NoError(t, err)
	_, err = jm.ValidateToken(context.Background(), expired)
	assert.Error(t, err)

	foreign, err := other.GenerateToken(context.Background(), "ops", nil, time.Hour)
	require.NoError(t, err)
	_, err = jm.ValidateToken(context.Background(), foreign)
	assert.Error(t, err)

	_, err = jm.ValidateToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestHashAndCheckSecret(t *testing.T) {
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)

	assert.NoError(t, CheckSecret(hash, "s3cret"))
	assert.ErrorIs(t, CheckSecret(hash, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckSecret("", "s3cret"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckSecret(hash, ""), ErrInvalidCredentials)
}

func newRouter(jm *JWTManager) *gin.Engine {
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/read", RequireAuth(jm), ok)
	r.POST("/op", RequireAuth(jm), RequireRole(jm, RoleOperator), ok)
	return r
}

func TestMiddleware(t *testing.T) {
	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)
	operator, err := jm.GenerateToken(context.Background(), "ops", []string{RoleOperator}, time.Hour)
	require.NoError(t, err)
	integrator, err := jm.GenerateToken(context.Background(), "erp", []string{RoleIntegrator}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"missing header", http.MethodGet, "/read", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/read", "Basic abc", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/read", "Bearer nope", http.StatusUnauthorized},
		{"integrator reads", http.MethodGet, "/read", "Bearer " + integrator, http.StatusNoContent},
		{"integrator forbidden", http.MethodPost, "/op", "Bearer " + integrator, http.StatusForbidden},
		{"operator allowed", http.MethodPost, "/op", "Bearer " + operator, http.StatusNoContent},
	}

	router := newRouter(jm)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestMiddleware_DisabledWithoutManager(t *testing.T) {
	router := newRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/op", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
