// Package identity resolves the acting clinician for a request. The
// surrounding records application owns authentication; this service only
// reads its HS256 bearer tokens (or, in development, plain headers) so that
// alert acknowledgments carry a real actor in their audit records.
package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Auth modes accepted by Middleware.
const (
	ModeDevelopment = "development"
	ModeToken       = "token"
)

// Dev header names trusted in development mode.
const (
	HeaderActorID    = "X-Actor-ID"
	HeaderActorName  = "X-Actor-Name"
	HeaderActorRoles = "X-Actor-Roles"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor identifies the clinician (or system) behind a request.
type Actor struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the actor carries any of the given roles.
func (a Actor) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range a.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Claims is the token payload the records application signs for this
// service.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// Config selects how Middleware resolves the actor.
type Config struct {
	// Mode is ModeDevelopment or ModeToken.
	Mode string
	// Secret is the HS256 signing key shared with the records application.
	// Required in token mode.
	Secret []byte
}

// Middleware installs the resolved actor on the request context. In token
// mode a missing or invalid bearer token rejects the request; in development
// mode the dev headers are trusted and an absent header falls back to a
// default dev actor.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var actor Actor
			switch cfg.Mode {
			case ModeDevelopment:
				actor = actorFromHeaders(c.Request())
			default:
				var err error
				actor, err = actorFromToken(c.Request(), cfg.Secret)
				if err != nil {
					return err
				}
			}

			c.Set("actor_id", actor.ID)
			ctx := context.WithValue(c.Request().Context(), actorKey, actor)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func actorFromHeaders(req *http.Request) Actor {
	actor := Actor{
		ID:    req.Header.Get(HeaderActorID),
		Name:  req.Header.Get(HeaderActorName),
		Roles: splitRoles(req.Header.Get(HeaderActorRoles)),
	}
	if actor.ID == "" {
		actor.ID = "dev-user"
	}
	if len(actor.Roles) == 0 {
		actor.Roles = []string{"admin"}
	}
	return actor
}

func actorFromToken(req *http.Request, secret []byte) (Actor, error) {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	if claims.Subject == "" {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
	}

	return Actor{ID: claims.Subject, Name: claims.Name, Roles: claims.Roles}, nil
}

func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

// FromContext returns the actor installed by Middleware. The zero Actor is
// returned when no middleware ran, e.g. in unit tests.
func FromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey).(Actor)
	return actor
}

// WithActor returns a context carrying the given actor. Intended for tests
// and internal callers that bypass the HTTP layer.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// RequireRole guards a route group: the resolved actor must carry at least
// one of the given roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := FromContext(c.Request().Context())
			if !actor.HasRole(roles...) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}
