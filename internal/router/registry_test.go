package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingModule struct{ path string }

func (m pingModule) Register(rg *gin.RouterGroup) {
	rg.GET(m.path, func(c *gin.Context) { c.String(http.StatusOK, c.GetString("mw")) })
}

func TestRegistry_MountsModulesUnderPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reg := NewRegistry(engine, "/api")
	reg.Use(func(c *gin.Context) { c.Set("mw", "applied") })
	reg.Add(pingModule{path: "/a"})
	reg.Add(pingModule{path: "/b"})
	reg.RegisterAll()

	for _, p := range []string{"/api/a", "/api/b"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "applied", rec.Body.String())
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
