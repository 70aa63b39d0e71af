package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck-backend/internal/accesskeys/domain"
	"github.com/quizdeck/quizdeck-backend/internal/accesskeys/service"
	"github.com/quizdeck/quizdeck-backend/internal/activity"
	"github.com/quizdeck/quizdeck-backend/internal/auth"
	"github.com/quizdeck/quizdeck-backend/internal/store"
	usersdomain "github.com/quizdeck/quizdeck-backend/internal/users/domain"
)

func setupRouter(t *testing.T, uid string) (*gin.Engine, *service.Service, *store.MemStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ms := store.NewMemStore()
	svc := service.NewService(ms, store.NewExecutor(ms), activity.NewRecorder(ms))

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if uid != "" {
			c.Set(auth.CtxFirebaseUID, uid)
		}
		c.Next()
	})
	admin := api.Group("/admin")
	NewHandler(svc).Register(api, admin)
	return r, svc, ms
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateKeyEndpoint(t *testing.T) {
	r, _, ms := setupRouter(t, "admin-1")

	w := doJSON(t, r, http.MethodPost, "/api/v1/admin/access-keys", gin.H{
		"unlocksCapability": domain.CapabilityTeacherQuizCreation,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		AccessKey domain.AccessKey `json:"accessKey"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, domain.ValidFormat(resp.AccessKey.Key))
	assert.Equal(t, "admin-1", resp.AccessKey.CreatedBy)

	doc, err := ms.Get(context.Background(), domain.Collection, resp.AccessKey.Key)
	require.NoError(t, err)
	assert.True(t, doc.Exists)
}

func TestCreateKeyEndpoint_InvalidBody(t *testing.T) {
	r, _, _ := setupRouter(t, "admin-1")

	// Neither capability nor cart.
	w := doJSON(t, r, http.MethodPost, "/api/v1/admin/access-keys", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid-request")
}

func TestRedeemEndpoint(t *testing.T) {
	r, svc, ms := setupRouter(t, "u1")
	ctx := context.Background()
	require.NoError(t, ms.Set(ctx, usersdomain.Collection, "u1", map[string]interface{}{"role": "student"}))

	key, err := svc.GenerateKey(ctx, service.CreateKeyRequest{
		UnlocksCapability: domain.CapabilityTeacherQuizCreation,
		CreatedBy:         "admin-1",
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/v1/access-keys/redeem", gin.H{"key": key.Key})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Redeemed service.RedeemResult `json:"redeemed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Redeemed.CanCreateQuizzes)

	t.Run("second redemption conflicts", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/v1/access-keys/redeem", gin.H{"key": key.Key})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "key-already-used")
	})
}

func TestRedeemEndpoint_Failures(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		r, _, _ := setupRouter(t, "")
		w := doJSON(t, r, http.MethodPost, "/api/v1/access-keys/redeem", gin.H{"key": "AB12-CD34-EF56"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing key field", func(t *testing.T) {
		r, _, _ := setupRouter(t, "u1")
		w := doJSON(t, r, http.MethodPost, "/api/v1/access-keys/redeem", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		r, _, ms := setupRouter(t, "u1")
		require.NoError(t, ms.Set(context.Background(), usersdomain.Collection, "u1", map[string]interface{}{"role": "student"}))
		w := doJSON(t, r, http.MethodPost, "/api/v1/access-keys/redeem", gin.H{"key": "NOPE-NOPE-NOPE"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "key-not-found")
	})
}

func TestListKeysEndpoint(t *testing.T) {
	r, svc, _ := setupRouter(t, "admin-1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.GenerateKey(ctx, service.CreateKeyRequest{
			UnlocksCapability: domain.CapabilityTeacherQuizCreation,
			CreatedBy:         "admin-1",
		})
		require.NoError(t, err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/admin/access-keys?status=new", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
}
