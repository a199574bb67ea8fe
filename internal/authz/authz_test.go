package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"profile-api/internal/auth"

	"github.com/gin-gonic/gin"
)

func withState(id *auth.Identity, state auth.AuthState) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithAuthState(c.Request.Context(), state)
		if id != nil {
			ctx = auth.WithIdentity(ctx, *id)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRequireAuthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	cases := []struct {
		name      string
		id        *auth.Identity
		state     auth.AuthState
		code      int
		challenge string
	}{
		{name: "admitted", id: &auth.Identity{UserID: 42}, state: auth.StateAuthenticated, code: http.StatusOK},
		{name: "anonymous", state: auth.StateAnonymous, code: http.StatusUnauthorized, challenge: `Bearer`},
		{name: "rejected", state: auth.StateRejected, code: http.StatusUnauthorized, challenge: `Bearer error="invalid_token"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", withState(tc.id, tc.state), RequireAuthenticated(), ok)

			w := serve(r, "/x")
			if w.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, w.Code)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != tc.challenge {
				t.Fatalf("expected challenge %q, got %q", tc.challenge, got)
			}
		})
	}
}

func TestRequireAuthenticated_WithoutMiddlewareIsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", RequireAuthenticated(), func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := serve(r, "/x"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/users/:id", withState(&auth.Identity{UserID: 42}, auth.StateAuthenticated), RequireSelf("id"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	if w := serve(r, "/users/42"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for own id, got %d", w.Code)
	}
	if w := serve(r, "/users/7"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other id, got %d", w.Code)
	}
	if w := serve(r, "/users/me"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-numeric id, got %d", w.Code)
	}
}

func TestRequireSelf_Anonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/users/:id", RequireSelf("id"), func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := serve(r, "/users/42"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
