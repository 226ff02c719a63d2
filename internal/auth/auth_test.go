package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"invplan-backend/internal/database"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), database.Config())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newApp(t *testing.T) *fiber.App {
	h := NewHandler(newTestDB(t), testSecret, logger.Nop())
	app := fiber.New()
	api := app.Group("/api")
	api.Post("/auth/register-admin", h.RegisterAdmin())
	api.Post("/auth/login", h.Login())

	protected := api.Group("", JWTMiddleware(testSecret))
	protected.Get("/auth/me", h.Me())
	protected.Post("/users", RequireRole(models.RoleAdmin), h.CreateUser())
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	code, out := call(t, app, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
	if code != http.StatusOK {
		t.Fatalf("login %s: status %d", email, code)
	}
	token, _ := out["token"].(string)
	return token
}

func TestRegisterAdminOnlyOnce(t *testing.T) {
	app := newApp(t)
	admin := RegisterRequest{Name: "Ops", Email: " Ops@Example.com ", Password: "supersecret"}

	if code, _ := call(t, app, http.MethodPost, "/api/auth/register-admin", "", admin); code != http.StatusCreated {
		t.Fatalf("first register: %d", code)
	}
	admin.Email = "other@example.com"
	if code, _ := call(t, app, http.MethodPost, "/api/auth/register-admin", "", admin); code != http.StatusForbidden {
		t.Fatalf("second register: %d", code)
	}
	short := RegisterRequest{Name: "x", Email: "x@example.com", Password: "short"}
	if code, _ := call(t, app, http.MethodPost, "/api/auth/register-admin", "", short); code != http.StatusBadRequest {
		t.Fatalf("short password: %d", code)
	}
}

func TestLoginAndMe(t *testing.T) {
	app := newApp(t)
	call(t, app, http.MethodPost, "/api/auth/register-admin", "",
		RegisterRequest{Name: "Ops", Email: "ops@example.com", Password: "supersecret"})

	if code, _ := call(t, app, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Email: "ops@example.com", Password: "wrongwrong"}); code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", code)
	}

	token := login(t, app, "OPS@example.com", "supersecret")
	code, me := call(t, app, http.MethodGet, "/api/auth/me", token, nil)
	if code != http.StatusOK || me["email"] != "ops@example.com" || me["role"] != string(models.RoleAdmin) {
		t.Fatalf("me: %d %v", code, me)
	}
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	app := newApp(t)
	if code, _ := call(t, app, http.MethodGet, "/api/auth/me", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("no header: %d", code)
	}
	if code, _ := call(t, app, http.MethodGet, "/api/auth/me", "not-a-jwt", nil); code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", code)
	}

	forged, _ := GenerateToken("another-secret-another-secret-00", &models.User{ID: 1, Role: models.RoleAdmin})
	if code, _ := call(t, app, http.MethodGet, "/api/auth/me", forged, nil); code != http.StatusUnauthorized {
		t.Fatalf("foreign signature: %d", code)
	}
}

func TestViewerCannotCreateUsers(t *testing.T) {
	app := newApp(t)
	call(t, app, http.MethodPost, "/api/auth/register-admin", "",
		RegisterRequest{Name: "Ops", Email: "ops@example.com", Password: "supersecret"})
	adminToken := login(t, app, "ops@example.com", "supersecret")

	code, out := call(t, app, http.MethodPost, "/api/users", adminToken,
		RegisterRequest{Name: "Viewer", Email: "viewer@example.com", Password: "viewerpass"})
	if code != http.StatusCreated || out["role"] != string(models.RoleViewer) {
		t.Fatalf("create viewer: %d %v", code, out)
	}
	if code, _ := call(t, app, http.MethodPost, "/api/users", adminToken,
		RegisterRequest{Name: "Viewer", Email: "viewer@example.com", Password: "viewerpass"}); code != http.StatusConflict {
		t.Fatalf("duplicate email: %d", code)
	}

	viewerToken := login(t, app, "viewer@example.com", "viewerpass")
	if code, _ := call(t, app, http.MethodPost, "/api/users", viewerToken,
		RegisterRequest{Name: "Nope", Email: "nope@example.com", Password: "nopenope"}); code != http.StatusForbidden {
		t.Fatalf("viewer create: %d", code)
	}
}
