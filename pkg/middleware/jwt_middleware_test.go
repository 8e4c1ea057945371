package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rigWithRole(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/plans",
		func(c *gin.Context) {
			if role != "" {
				c.Set("role", role)
			}
			c.Next()
		},
		RoleMiddleware("admin"),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)
	return r
}

func TestRoleMiddleware(t *testing.T) {
	get := func(r *gin.Engine) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/plans", nil))
		return w
	}

	w := get(rigWithRole("admin"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(rigWithRole("user"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(rigWithRole(""))
	assert.Equal(t, http.StatusForbidden, w.Code, "a request without a resolved role must be refused")
}
