package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ripple/internal/auth"
	"ripple/internal/config"
	"ripple/internal/repository"
	"ripple/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer assembles a Server over the given mocks with a working token
// codec and a throwaway upload directory.
func newTestServer(t *testing.T, userRepo repository.UserRepository, postRepo repository.PostRepository) *Server {
	t.Helper()

	codec, err := auth.NewCodec("test_secret", time.Hour)
	require.NoError(t, err)

	uploads, err := service.NewUploadService(t.TempDir())
	require.NoError(t, err)

	s := &Server{
		config:   &config.Config{JWTSecret: "test_secret", TokenTTLHours: 1},
		codec:    codec,
		userRepo: userRepo,
		postRepo: postRepo,
		uploads:  uploads,
	}
	if userRepo != nil {
		s.userService = service.NewUserService(userRepo)
	}
	if postRepo != nil {
		s.postService = service.NewPostService(postRepo, userRepo, uploads)
	}
	return s
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil, nil)

	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)
		return c.SendString(fmt.Sprintf("user:%d", userID))
	})

	validToken, err := s.codec.Issue(42)
	require.NoError(t, err)

	t.Run("no token redirects to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/user/login", resp.Header.Get("Location"))
	})

	t.Run("invalid token clears cookie and redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/user/login", resp.Header.Get("Location"))

		setCookie := resp.Header.Get("Set-Cookie")
		assert.Contains(t, setCookie, "token=")
		assert.NotContains(t, setCookie, "garbage")
	})

	t.Run("valid cookie passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: validToken})
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Equal(t, "user:42", body)
	})

	t.Run("bearer header fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		parts := strings.Split(validToken, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: tampered})
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	})
}

func TestOptionalUserID(t *testing.T) {
	s := newTestServer(t, nil, nil)

	app := fiber.New()
	app.Get("/feedish", func(c *fiber.Ctx) error {
		userID, ok := s.optionalUserID(c)
		return c.JSON(fiber.Map{"user_id": userID, "ok": ok})
	})

	validToken, err := s.codec.Issue(7)
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(req *http.Request)
		expect string
	}{
		{
			name:   "anonymous",
			setup:  func(req *http.Request) {},
			expect: `"ok":false`,
		},
		{
			name: "valid cookie",
			setup: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: "token", Value: validToken})
			},
			expect: `"user_id":7`,
		},
		{
			name: "invalid token ignored",
			setup: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: "token", Value: "bogus"})
			},
			expect: `"ok":false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feedish", nil)
			tt.setup(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), tt.expect)
		})
	}
}
