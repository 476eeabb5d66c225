package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codespacehq/codespace-backend/internal/cache"
	"github.com/codespacehq/codespace-backend/internal/codespace"
	"github.com/codespacehq/codespace-backend/internal/codespace/repository"
	"github.com/codespacehq/codespace-backend/internal/codespace/service"
	"github.com/codespacehq/codespace-backend/internal/config"
	"github.com/codespacehq/codespace-backend/internal/sharetoken"
	"github.com/codespacehq/codespace-backend/pkg/middleware"
)

// CodespaceHandler exposes the codespace CRUD, flush and share-token
// endpoints. The handler is a thin adapter: routing and status mapping only,
// the dual-tier semantics live in the service.
type CodespaceHandler struct {
	cfg      *config.Config
	svc      *service.Service
	codec    *sharetoken.Codec
	verifier middleware.Verifier
}

func NewCodespaceHandler(cfg *config.Config, svc *service.Service, codec *sharetoken.Codec, ver middleware.Verifier) *CodespaceHandler {
	return &CodespaceHandler{cfg: cfg, svc: svc, codec: codec, verifier: ver}
}

// Register routes under /api/codespaces
func (h *CodespaceHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/codespaces")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:uuid", h.Retrieve)
	g.PATCH("/:uuid", h.Update)
	g.DELETE("/:uuid", h.Delete)
	g.PATCH("/:uuid/save", h.SaveChanges)
	g.POST("/token", h.MintShareToken)
	g.GET("/shared/:token", h.RetrieveShared)
	g.PATCH("/shared/:token", h.UpdateShared)
	g.PATCH("/shared/:token/save", h.SaveSharedChanges)
}

// subject authenticates the request when an Authorization header is present.
// Returns the user uuid, or "" for anonymous requests. Writes a 401 and
// returns an error when a presented token doesn't verify.
func (h *CodespaceHandler) subject(c *gin.Context) (string, error) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return "", nil
	}
	var raw string
	if n, _ := fmt.Sscanf(auth, "Bearer %s", &raw); n != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
		return "", fmt.Errorf("bad header")
	}
	if h.verifier == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication unavailable"})
		return "", fmt.Errorf("no verifier")
	}
	tok, err := h.verifier.Verify(c.Request.Context(), raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", err
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
		return "", err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
		return "", fmt.Errorf("no subject")
	}
	return sub, nil
}

func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, codespace.ErrDoesNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, cache.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable"})
	case errors.Is(err, codespace.ErrUnknownField), errors.Is(err, codespace.ErrImmutableField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *CodespaceHandler) codespaceJSON(c *gin.Context, cs *codespace.Codespace) (gin.H, error) {
	// live fields go through the cache-first read path
	code, err := h.svc.ReadField(c.Request.Context(), cs, codespace.FieldCode)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"uuid":       cs.UUID,
		"name":       cs.Name,
		"code":       code,
		"created_by": cs.CreatedBy,
		"created_at": cs.CreatedAt,
		"updated_at": cs.UpdatedAt,
	}, nil
}

func tmpJSON(tc *codespace.TmpCodespace) gin.H {
	return gin.H{
		"uuid":       tc.UUID,
		"code":       tc.Code(),
		"created_at": tc.CreatedAt,
	}
}

// Create makes a durable codespace for authenticated users and an ephemeral
// one for anonymous requests.
func (h *CodespaceHandler) Create(c *gin.Context) {
	var req struct {
		Name *string `json:"name"`
		Code *string `json:"code"`
	}
	// an empty body is a valid create-with-defaults request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.subject(c)
	if err != nil {
		return
	}

	if sub == "" {
		tc, err := h.svc.CreateTmp(c.Request.Context(), req.Code)
		if err != nil {
			storeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, tmpJSON(tc))
		return
	}

	cs, err := h.svc.Create(c.Request.Context(), sub, req.Name, req.Code)
	if err != nil {
		storeError(c, err)
		return
	}
	out, err := h.codespaceJSON(c, cs)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// List returns the authenticated user's codespaces, newest first. Code is
// not expanded here; the listing is for navigation.
func (h *CodespaceHandler) List(c *gin.Context) {
	sub, err := h.subject(c)
	if err != nil {
		return
	}
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	list, err := h.svc.ListByOwner(c.Request.Context(), sub)
	if err != nil {
		storeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, cs := range list {
		out = append(out, gin.H{"uuid": cs.UUID, "name": cs.Name, "created_at": cs.CreatedAt, "updated_at": cs.UpdatedAt})
	}
	c.JSON(http.StatusOK, out)
}

// Retrieve returns a single codespace. tmp- identifiers resolve against the
// cache with no authentication; durable ones require ownership.
func (h *CodespaceHandler) Retrieve(c *gin.Context) {
	uuid := c.Param("uuid")
	if strings.HasPrefix(uuid, codespace.TmpPrefix) {
		tc, err := h.svc.GetTmp(c.Request.Context(), uuid)
		if err != nil {
			storeError(c, err)
			return
		}
		c.JSON(http.StatusOK, tmpJSON(tc))
		return
	}

	cs, ok := h.ownedCodespace(c, uuid)
	if !ok {
		return
	}
	out, err := h.codespaceJSON(c, cs)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ownedCodespace loads a durable codespace and enforces that the requester
// owns it. Responses are written on failure.
func (h *CodespaceHandler) ownedCodespace(c *gin.Context, uuid string) (*codespace.Codespace, bool) {
	sub, err := h.subject(c)
	if err != nil {
		return nil, false
	}
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil, false
	}
	cs, err := h.svc.Get(c.Request.Context(), uuid)
	if err != nil {
		storeError(c, err)
		return nil, false
	}
	if cs.CreatedBy != sub {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the codespace owner"})
		return nil, false
	}
	return cs, true
}

// Update writes fields. Code edits on durable codespaces land in the cache
// only; name changes persist immediately.
func (h *CodespaceHandler) Update(c *gin.Context) {
	uuid := c.Param("uuid")
	var req struct {
		Name *string `json:"name"`
		Code *string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.HasPrefix(uuid, codespace.TmpPrefix) {
		tc, err := h.svc.GetTmp(c.Request.Context(), uuid)
		if err != nil {
			storeError(c, err)
			return
		}
		if req.Code != nil {
			tc.SetCode(*req.Code)
		}
		if err := h.svc.SaveTmp(c.Request.Context(), tc); err != nil {
			storeError(c, err)
			return
		}
		c.JSON(http.StatusOK, tmpJSON(tc))
		return
	}

	cs, ok := h.ownedCodespace(c, uuid)
	if !ok {
		return
	}
	if req.Name != nil {
		if err := h.svc.WriteField(c.Request.Context(), cs.UUID, codespace.FieldName, *req.Name); err != nil {
			storeError(c, err)
			return
		}
		cs.Name = *req.Name
	}
	if req.Code != nil {
		if err := h.svc.WriteField(c.Request.Context(), cs.UUID, codespace.FieldCode, *req.Code); err != nil {
			storeError(c, err)
			return
		}
	}
	out, err := h.codespaceJSON(c, cs)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Delete removes a codespace: durable row plus cache entry, or the whole
// ephemeral entry.
func (h *CodespaceHandler) Delete(c *gin.Context) {
	uuid := c.Param("uuid")
	if strings.HasPrefix(uuid, codespace.TmpPrefix) {
		// confirm existence so a bogus uuid still 404s
		if _, err := h.svc.GetTmp(c.Request.Context(), uuid); err != nil {
			storeError(c, err)
			return
		}
		if err := h.svc.DeleteTmp(c.Request.Context(), uuid); err != nil {
			storeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	cs, ok := h.ownedCodespace(c, uuid)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), cs.UUID); err != nil {
		storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SaveChanges flushes cached live-field edits into the durable store.
func (h *CodespaceHandler) SaveChanges(c *gin.Context) {
	cs, ok := h.ownedCodespace(c, c.Param("uuid"))
	if !ok {
		return
	}
	h.flush(c, cs)
}

func (h *CodespaceHandler) flush(c *gin.Context, cs *codespace.Codespace) {
	if err := h.svc.Flush(c.Request.Context(), cs); err != nil {
		if errors.Is(err, codespace.ErrNoCachedChanges) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no cached changes to save"})
			return
		}
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "codespace data saved successfully"})
}

// MintShareToken issues a time-boxed access token for a codespace. Owner only.
func (h *CodespaceHandler) MintShareToken(c *gin.Context) {
	var req struct {
		UUID       string `json:"uuid" binding:"required"`
		Mode       string `json:"mode" binding:"required"`
		TTLMinutes int    `json:"ttl_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cs, ok := h.ownedCodespace(c, req.UUID)
	if !ok {
		return
	}

	ttl := h.cfg.ShareToken.DefaultTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}
	if max := h.cfg.ShareToken.MaxTTL; max > 0 && ttl > max {
		ttl = max
	}

	tok, err := h.codec.Encode(cs.UUID, sharetoken.Mode(req.Mode), ttl)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": tok, "expires_in": int(ttl.Seconds())})
}

// sharedGrant decodes the token path parameter and loads the codespace it
// grants access to. Responses are written on failure.
func (h *CodespaceHandler) sharedGrant(c *gin.Context) (*codespace.Codespace, *sharetoken.Grant, bool) {
	grant, err := h.codec.Decode(c.Param("token"))
	if err != nil {
		if errors.Is(err, sharetoken.ErrTokenExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "share token has expired"})
		} else {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "share token is not valid"})
		}
		return nil, nil, false
	}
	cs, err := h.svc.Get(c.Request.Context(), grant.CodespaceUUID)
	if err != nil {
		storeError(c, err)
		return nil, nil, false
	}
	return cs, grant, true
}

// RetrieveShared returns a codespace through a share token, no session needed.
func (h *CodespaceHandler) RetrieveShared(c *gin.Context) {
	cs, grant, ok := h.sharedGrant(c)
	if !ok {
		return
	}
	out, err := h.codespaceJSON(c, cs)
	if err != nil {
		storeError(c, err)
		return
	}
	out["mode"] = string(grant.Mode)
	c.JSON(http.StatusOK, out)
}

// UpdateShared writes code through an edit-mode share token.
func (h *CodespaceHandler) UpdateShared(c *gin.Context) {
	var req struct {
		Code *string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cs, grant, ok := h.sharedGrant(c)
	if !ok {
		return
	}
	if grant.Mode != sharetoken.ModeEdit {
		c.JSON(http.StatusForbidden, gin.H{"error": "share token does not allow editing"})
		return
	}
	if err := h.svc.WriteField(c.Request.Context(), cs.UUID, codespace.FieldCode, *req.Code); err != nil {
		storeError(c, err)
		return
	}
	out, err := h.codespaceJSON(c, cs)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SaveSharedChanges flushes through an edit-mode share token.
func (h *CodespaceHandler) SaveSharedChanges(c *gin.Context) {
	cs, grant, ok := h.sharedGrant(c)
	if !ok {
		return
	}
	if grant.Mode != sharetoken.ModeEdit {
		c.JSON(http.StatusForbidden, gin.H{"error": "share token does not allow editing"})
		return
	}
	h.flush(c, cs)
}
