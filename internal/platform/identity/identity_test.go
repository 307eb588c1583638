package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signToken(t *testing.T, secret []byte, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func runMiddleware(cfg Config, req *http.Request) (Actor, *httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Actor
	handler := func(c echo.Context) error {
		got = FromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}
	err := Middleware(cfg)(handler)(c)
	return got, rec, err
}

func TestMiddleware_DevHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderActorID, "dr-rao")
	req.Header.Set(HeaderActorName, "Dr. Rao")
	req.Header.Set(HeaderActorRoles, "physician, admin")

	actor, _, err := runMiddleware(Config{Mode: ModeDevelopment}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "dr-rao" || actor.Name != "Dr. Rao" {
		t.Errorf("unexpected actor: %+v", actor)
	}
	if !actor.HasRole("physician") {
		t.Error("expected physician role")
	}
}

func TestMiddleware_DevDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	actor, _, err := runMiddleware(Config{Mode: ModeDevelopment}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "dev-user" {
		t.Errorf("expected dev-user fallback, got %q", actor.ID)
	}
	if !actor.HasRole("admin") {
		t.Error("expected default admin role")
	}
}

func TestMiddleware_ValidToken(t *testing.T) {
	secret := []byte("test-secret")
	tok := signToken(t, secret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-mehta",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Dr. Mehta",
		Roles: []string{"physician"},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	actor, _, err := runMiddleware(Config{Mode: ModeToken, Secret: secret}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "dr-mehta" {
		t.Errorf("expected subject as actor id, got %q", actor.ID)
	}
}

func TestMiddleware_MissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, _, err := runMiddleware(Config{Mode: ModeToken, Secret: []byte("s")}, req)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestMiddleware_WrongSecret(t *testing.T) {
	tok := signToken(t, []byte("other-secret"), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-mehta",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	_, _, err := runMiddleware(Config{Mode: ModeToken, Secret: []byte("test-secret")}, req)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	tok := signToken(t, secret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-mehta",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	_, _, err := runMiddleware(Config{Mode: ModeToken, Secret: secret}, req)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetRequest(req.WithContext(WithActor(req.Context(), Actor{ID: "u", Roles: []string{"physician"}})))

	if err := RequireRole("admin", "physician")(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	c2 := e.NewContext(req2, httptest.NewRecorder())
	c2.SetRequest(req2.WithContext(WithActor(req2.Context(), Actor{ID: "u", Roles: []string{"clerk"}})))

	err := RequireRole("admin")(handler)(c2)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
