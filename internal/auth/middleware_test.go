package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBearerAuth(t *testing.T) {
	p, _ := newTestProvider()
	s, err := p.SignUp(context.Background(), "a@b.c", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/me", BearerAuth(p), func(c *gin.Context) {
		u, ok := UserFrom(c)
		sess, hasSess := SessionFromContext(c.Request.Context())
		if !ok || !hasSess || sess.AccessToken == "" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, u.Email)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + s.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusOK && w.Body.String() != "a@b.c" {
				t.Fatalf("body = %q", w.Body.String())
			}
		})
	}
}
