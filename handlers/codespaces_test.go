package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codespacehq/codespace-backend/internal/cache"
	"github.com/codespacehq/codespace-backend/internal/codespace/repository"
	"github.com/codespacehq/codespace-backend/internal/codespace/service"
	"github.com/codespacehq/codespace-backend/internal/config"
	"github.com/codespacehq/codespace-backend/internal/models"
	"github.com/codespacehq/codespace-backend/internal/sharetoken"
	"github.com/codespacehq/codespace-backend/internal/tokens"
)

const testSecret = "handler-test-secret"

func tctx(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}

type csTestEnv struct {
	router *gin.Engine
	svc    *service.Service
	repo   *repository.MemoryRepo
	cfg    *config.Config
}

func newCodespaceEnv(t *testing.T) *csTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := repository.NewMemoryRepo()
	svc := service.New(repo, cache.NewRedisStore(client))

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.ShareToken.Secret = testSecret
	cfg.ShareToken.DefaultTTL = time.Hour
	cfg.ShareToken.MaxTTL = 24 * time.Hour

	h := NewCodespaceHandler(cfg, svc, sharetoken.NewCodec(testSecret), tokens.NewJWTVerifier(testSecret))
	router := gin.New()
	h.Register(router.Group("/api"))

	return &csTestEnv{router: router, svc: svc, repo: repo, cfg: cfg}
}

func (e *csTestEnv) bearer(t *testing.T, userUUID string) string {
	t.Helper()
	access, err := tokens.GenerateAccessToken(e.cfg, &models.User{UUID: userUUID, Email: userUUID + "@example.com"}, 15*time.Minute)
	require.NoError(t, err)
	return "Bearer " + access
}

func (e *csTestEnv) do(t *testing.T, method, path, body, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateAnonymousMakesEphemeral(t *testing.T) {
	env := newCodespaceEnv(t)

	w := env.do(t, http.MethodPost, "/api/codespaces", `{"code":"print(1)"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	got := decodeJSON(t, w)
	uuid, _ := got["uuid"].(string)
	require.True(t, strings.HasPrefix(uuid, "tmp-"), "anonymous create should return a tmp uuid, got %q", uuid)
	assert.Equal(t, "print(1)", got["code"])

	// retrievable without any auth
	w = env.do(t, http.MethodGet, "/api/codespaces/"+uuid, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "print(1)", decodeJSON(t, w)["code"])
}

func TestCreateAuthenticatedMakesDurable(t *testing.T) {
	env := newCodespaceEnv(t)
	auth := env.bearer(t, "user-1")

	w := env.do(t, http.MethodPost, "/api/codespaces", `{"name":"scratch"}`, auth)
	require.Equal(t, http.StatusCreated, w.Code)

	got := decodeJSON(t, w)
	uuid, _ := got["uuid"].(string)
	require.NotEmpty(t, uuid)
	assert.False(t, strings.HasPrefix(uuid, "tmp-"))
	assert.Equal(t, "scratch", got["name"])
	assert.Equal(t, "user-1", got["created_by"])

	// shows up in the owner's listing
	w = env.do(t, http.MethodGet, "/api/codespaces", "", auth)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, uuid, list[0]["uuid"])
}

func TestRetrieveRequiresOwnership(t *testing.T) {
	env := newCodespaceEnv(t)
	owner := env.bearer(t, "owner")
	other := env.bearer(t, "intruder")

	w := env.do(t, http.MethodPost, "/api/codespaces", `{}`, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	uuid := decodeJSON(t, w)["uuid"].(string)

	w = env.do(t, http.MethodGet, "/api/codespaces/"+uuid, "", other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/codespaces/"+uuid, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/codespaces/"+uuid, "", owner)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCodeEditsStayCachedUntilSave(t *testing.T) {
	env := newCodespaceEnv(t)
	auth := env.bearer(t, "user-1")

	w := env.do(t, http.MethodPost, "/api/codespaces", `{"code":"v1"}`, auth)
	require.Equal(t, http.StatusCreated, w.Code)
	uuid := decodeJSON(t, w)["uuid"].(string)

	// edit the code; durable copy must not change yet
	w = env.do(t, http.MethodPatch, "/api/codespaces/"+uuid, `{"code":"v2"}`, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v2", decodeJSON(t, w)["code"])

	stored, err := env.repo.Get(tctx(t), uuid)
	require.NoError(t, err)
	assert.Equal(t, "v1", stored.Code, "durable code must be untouched before save")

	// reads serve the cached value
	w = env.do(t, http.MethodGet, "/api/codespaces/"+uuid, "", auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v2", decodeJSON(t, w)["code"])

	// save flushes to durable
	w = env.do(t, http.MethodPatch, "/api/codespaces/"+uuid+"/save", "", auth)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err = env.repo.Get(tctx(t), uuid)
	require.NoError(t, err)
	assert.Equal(t, "v2", stored.Code)
}

func TestSaveWithoutEditsReturnsNotFound(t *testing.T) {
	env := newCodespaceEnv(t)
	auth := env.bearer(t, "user-1")

	w := env.do(t, http.MethodPost, "/api/codespaces", `{}`, auth)
	require.Equal(t, http.StatusCreated, w.Code)
	uuid := decodeJSON(t, w)["uuid"].(string)

	w = env.do(t, http.MethodPatch, "/api/codespaces/"+uuid+"/save", "", auth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenamePersistsImmediately(t *testing.T) {
	env := newCodespaceEnv(t)
	auth := env.bearer(t, "user-1")

	w := env.do(t, http.MethodPost, "/api/codespaces", `{}`, auth)
	require.Equal(t, http.StatusCreated, w.Code)
	uuid := decodeJSON(t, w)["uuid"].(string)

	w = env.do(t, http.MethodPatch, "/api/codespaces/"+uuid, `{"name":"renamed"}`, auth)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.repo.Get(tctx(t), uuid)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Name)
}

func TestDeleteCodespace(t *testing.T) {
	env := newCodespaceEnv(t)
	auth := env.bearer(t, "user-1")

	w := env.do(t, http.MethodPost, "/api/codespaces", `{}`, auth)
	require.Equal(t, http.StatusCreated, w.Code)
	uuid := decodeJSON(t, w)["uuid"].(string)

	w = env.do(t, http.MethodDelete, "/api/codespaces/"+uuid, "", auth)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/codespaces/"+uuid, "", auth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTmpLifecycle(t *testing.T) {
	env := newCodespaceEnv(t)

	w := env.do(t, http.MethodPost, "/api/codespaces", `{}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	uuid := decodeJSON(t, w)["uuid"].(string)

	// patch overwrites the code
	w = env.do(t, http.MethodPatch, "/api/codespaces/"+uuid, `{"code":"changed"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "changed", decodeJSON(t, w)["code"])

	w = env.do(t, http.MethodDelete, "/api/codespaces/"+uuid, "", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/codespaces/"+uuid, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareTokenFlow(t *testing.T) {
	env := newCodespaceEnv(t)
	owner := env.bearer(t, "owner")

	w := env.do(t, http.MethodPost, "/api/codespaces", `{"code":"shared code"}`, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	uuid := decodeJSON(t, w)["uuid"].(string)

	// only the owner can mint
	other := env.bearer(t, "other")
	body := fmt.Sprintf(`{"uuid":%q,"mode":"view"}`, uuid)
	w = env.do(t, http.MethodPost, "/api/codespaces/token", body, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/codespaces/token", body, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	viewTok := decodeJSON(t, w)["token"].(string)

	// token grants unauthenticated read access
	w = env.do(t, http.MethodGet, "/api/codespaces/shared/"+viewTok, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeJSON(t, w)
	assert.Equal(t, "shared code", got["code"])
	assert.Equal(t, "view", got["mode"])

	// but not edits
	w = env.do(t, http.MethodPatch, "/api/codespaces/shared/"+viewTok, `{"code":"hax"}`, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// edit token allows writes and saves
	body = fmt.Sprintf(`{"uuid":%q,"mode":"edit"}`, uuid)
	w = env.do(t, http.MethodPost, "/api/codespaces/token", body, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	editTok := decodeJSON(t, w)["token"].(string)

	w = env.do(t, http.MethodPatch, "/api/codespaces/shared/"+editTok, `{"code":"edited via share"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, "/api/codespaces/shared/"+editTok+"/save", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.repo.Get(tctx(t), uuid)
	require.NoError(t, err)
	assert.Equal(t, "edited via share", stored.Code)
}

func TestSharedRejectsBadTokens(t *testing.T) {
	env := newCodespaceEnv(t)

	w := env.do(t, http.MethodGet, "/api/codespaces/shared/not-a-token", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// structurally valid token signed with another secret
	foreign, err := sharetoken.NewCodec("other-secret").Encode("some-uuid", sharetoken.ModeView, time.Hour)
	require.NoError(t, err)
	w = env.do(t, http.MethodGet, "/api/codespaces/shared/"+foreign, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMintTokenCapsTTL(t *testing.T) {
	env := newCodespaceEnv(t)
	owner := env.bearer(t, "owner")

	w := env.do(t, http.MethodPost, "/api/codespaces", `{}`, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	uuid := decodeJSON(t, w)["uuid"].(string)

	// request far beyond MaxTTL (24h in this env)
	body := fmt.Sprintf(`{"uuid":%q,"mode":"view","ttl_minutes":99999}`, uuid)
	w = env.do(t, http.MethodPost, "/api/codespaces/token", body, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	expiresIn := decodeJSON(t, w)["expires_in"].(float64)
	assert.LessOrEqual(t, expiresIn, float64((24*time.Hour).Seconds()))
}
