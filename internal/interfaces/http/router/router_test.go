package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Equal(t, "v2", NewRouter(gin.New(), WithAPIVersion("v2")).apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/test").
		GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	NewRouter(engine).Register(group).Setup()

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestDomainGroup_Middleware(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("test", "/test").
		Use(func(c *gin.Context) { c.Header("X-Group", "test") }).
		POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })
	g.RegisterRoutes(engine.Group("/api/v1"))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/test/items", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Group"))
	assert.Equal(t, "test", g.Name())
	assert.Equal(t, "/test", g.Prefix())
}

// recordingHandler answers with the name of the verb it was routed to
type recordingHandler struct{}

func (recordingHandler) List(c *gin.Context)       { c.String(http.StatusOK, "list") }
func (recordingHandler) Create(c *gin.Context)     { c.String(http.StatusOK, "create") }
func (recordingHandler) GetByID(c *gin.Context)    { c.String(http.StatusOK, "get:"+c.Param("id")) }
func (recordingHandler) Update(c *gin.Context)     { c.String(http.StatusOK, "update") }
func (recordingHandler) Delete(c *gin.Context)     { c.String(http.StatusOK, "delete") }
func (recordingHandler) SoftDelete(c *gin.Context) { c.String(http.StatusOK, "soft_delete") }
func (recordingHandler) Restore(c *gin.Context)    { c.String(http.StatusOK, "restore") }

func TestResourceRoutes(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).Register(ResourceRoutes("widgets", "/widgets", recordingHandler{})).Setup()

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/widgets", "list"},
		{http.MethodPost, "/api/v1/widgets", "create"},
		{http.MethodGet, "/api/v1/widgets/42", "get:42"},
		{http.MethodPut, "/api/v1/widgets/42", "update"},
		{http.MethodPatch, "/api/v1/widgets/42", "update"},
		{http.MethodDelete, "/api/v1/widgets/42", "delete"},
		{http.MethodPost, "/api/v1/widgets/42/soft-delete", "soft_delete"},
		{http.MethodPost, "/api/v1/widgets/42/restore", "restore"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}
