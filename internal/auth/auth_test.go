package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/jis-backend/internal/testutil"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

func newTestApp(t *testing.T, hooks ...SignupHook) (*fiber.App, *Issuer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	issuer := NewIssuer("test-secret", time.Hour)
	h := NewHandler(db, issuer, hooks...)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/signup", h.Signup)
	app.Post("/api/login", h.Login)

	api := app.Group("/api", issuer.RequireAuth())
	api.Get("/me", h.Me)
	api.Get("/registrar-only", RequireRole(models.RoleRegistrar), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, issuer
}

func signup(t *testing.T, app *fiber.App, username, role string) *http.Response {
	t.Helper()
	resp, err := app.Test(testutil.JSONRequest(http.MethodPost, "/api/signup", map[string]string{
		"username":  username,
		"email":     username + "@court.test",
		"full_name": "Test User",
		"password":  "secret123",
		"role":      role,
	}))
	require.NoError(t, err)
	return resp
}

func TestSignupAndLogin(t *testing.T) {
	var hooked []models.User
	app, _ := newTestApp(t, func(_ context.Context, u models.User, _ string) { hooked = append(hooked, u) })

	resp := signup(t, app, "reg_one", "registrar")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := testutil.DecodeJSON(t, resp)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "registrar", body["role"])
	require.Len(t, hooked, 1)
	assert.Equal(t, "reg_one", hooked[0].Username)

	t.Run("duplicate username", func(t *testing.T) {
		resp := signup(t, app, "reg_one", "registrar")
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		body := testutil.DecodeJSON(t, resp)
		assert.Equal(t, "DUPLICATE_USER", body["code"])
	})

	t.Run("unknown role", func(t *testing.T) {
		resp := signup(t, app, "someone", "client")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		body := testutil.DecodeJSON(t, resp)
		errs := body["errors"].(map[string]any)
		assert.Contains(t, errs, "role")
	})

	for _, login := range []string{"reg_one", "REG_ONE@court.test"} {
		t.Run("login with "+login, func(t *testing.T) {
			resp, err := app.Test(testutil.JSONRequest(http.MethodPost, "/api/login", map[string]string{
				"login": login, "password": "secret123",
			}))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		})
	}

	t.Run("wrong password", func(t *testing.T) {
		resp, err := app.Test(testutil.JSONRequest(http.MethodPost, "/api/login", map[string]string{
			"login": "reg_one", "password": "nope",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		body := testutil.DecodeJSON(t, resp)
		assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
	})
}

func TestMeAndRoles(t *testing.T) {
	app, _ := newTestApp(t)

	body := testutil.DecodeJSON(t, signup(t, app, "lawyer_one", "lawyer"))
	token := body["token"].(string)

	req := testutil.JSONRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	me := testutil.DecodeJSON(t, resp)
	assert.Equal(t, "lawyer_one", me["username"])
	assert.Equal(t, "lawyer", me["role"])
	assert.NotContains(t, me, "password_hash")

	req = testutil.JSONRequest(http.MethodGet, "/api/registrar-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(testutil.JSONRequest(http.MethodGet, "/api/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestIssuerParse(t *testing.T) {
	issuer := NewIssuer("one", time.Hour)
	id := uuid.New()

	token, err := issuer.Issue(id, models.RoleJudge)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.Sub)
	assert.Equal(t, "judge", claims.Role)

	_, err = NewIssuer("two", time.Hour).Parse(token)
	testutil.AssertAppError(t, err, "UNAUTHORIZED")

	// a non-positive ttl falls back to the default lifetime
	fallback, err := NewIssuer("one", -time.Hour).Issue(id, models.RoleJudge)
	require.NoError(t, err)
	_, err = issuer.Parse(fallback)
	assert.NoError(t, err)

	_, err = issuer.Parse("not-a-token")
	testutil.AssertAppError(t, err, "UNAUTHORIZED")
}

func TestActorFrom(t *testing.T) {
	id := uuid.New()
	app := fiber.New()
	app.Use(testutil.InjectAuth(id, "registrar"))
	app.Get("/", func(c *fiber.Ctx) error {
		a := ActorFrom(c)
		assert.Equal(t, id, a.UserID)
		assert.True(t, a.Is(models.RoleRegistrar))
		assert.NotEmpty(t, a.IP)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(testutil.JSONRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
