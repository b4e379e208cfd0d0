// Package session authenticates requests from a signed JWT carried in the
// Authorization header or a session cookie.
//
// Middleware "optional" attaches the user when a valid token is present.
// Builder "requirejwt" rejects requests without one:
//
//	{type = "session#requirejwt", issuer = "...", audience = "...",
//	 role = "admin", cookie = "session", redirect = "/login"}
//
// Extension config: secret, or secret_env naming the variable that holds it
// (default SESSION_JWT_SECRET); leeway_seconds.
//
// Tokens are only checked on the server. In the browser the chain proceeds
// and the server stays authoritative for the full-page fallback.
package session

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"go.uber.org/zap"
)

const Locator = "steeze/session"

// DataKey is where the user is placed in the request data.
const DataKey = "user"

var (
	ErrNoSecret     = errors.New("session: secret not configured")
	ErrNoToken      = errors.New("session: no token")
	ErrInvalidToken = errors.New("session: invalid token")
	ErrBadIssuer    = errors.New("session: bad issuer")
	ErrBadAudience  = errors.New("session: bad audience")
	ErrForbidden    = errors.New("session: role not allowed")
)

type Role struct {
	Name string `json:"name"`
}

type User struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type claims struct {
	jwt.RegisteredClaims
	UID   string   `json:"uid"`
	Role  string   `json:"role"`
	Roles []string `json:"roles"`
}

type validator struct {
	secret   []byte
	leeway   time.Duration
	issuer   string
	audience string
}

type session struct {
	host   extension.Host
	secret []byte
	leeway time.Duration
	log    *zap.Logger
}

func Factory(host extension.Host, spec manifest.Extension) (*extension.Extension, error) {
	secret := spec.String("secret", os.Getenv(spec.String("secret_env", "SESSION_JWT_SECRET")))
	if secret == "" && (host == nil || host.Server()) {
		return nil, ErrNoSecret
	}
	s := &session{host: host, secret: []byte(secret), log: zap.NewNop()}
	if v, ok := spec.Config["leeway_seconds"].(int64); ok {
		s.leeway = time.Duration(v) * time.Second
	} else if v, ok := spec.Config["leeway_seconds"].(float64); ok {
		s.leeway = time.Duration(v * float64(time.Second))
	}
	if host != nil && host.Logger() != nil {
		s.log = host.Logger().With(zap.String("extension", spec.ID))
	}
	return &extension.Extension{
		Middleware: map[string]chain.Handler{"optional": s.optional},
		Builders:   map[string]extension.Builder{"requirejwt": s.requireJWT},
	}, nil
}

func (s *session) server() bool { return s.host == nil || s.host.Server() }

func (s *session) optional(req *chain.Request, next chain.Next) {
	if s.server() {
		v := validator{secret: s.secret, leeway: s.leeway}
		if u, err := v.validate(token(req.Header, "session")); err == nil {
			req.Data[DataKey] = u
		}
	}
	next(nil)
}

func (s *session) requireJWT(opts map[string]any) (chain.Handler, error) {
	v := validator{
		secret:   s.secret,
		leeway:   s.leeway,
		issuer:   str(opts, "issuer"),
		audience: str(opts, "audience"),
	}
	role := str(opts, "role")
	cookie := str(opts, "cookie")
	if cookie == "" {
		cookie = "session"
	}
	redirect := str(opts, "redirect")

	return func(req *chain.Request, next chain.Next) {
		if !s.server() {
			next(nil)
			return
		}
		u, err := v.validate(token(req.Header, cookie))
		if err == nil && role != "" && u.Role.Name != role {
			err = ErrForbidden
		}
		if err != nil {
			s.log.Info("request rejected", zap.String("url", req.URL), zap.Error(err))
			if redirect != "" {
				req.Redirect(redirect)
				return
			}
			code := http.StatusUnauthorized
			if errors.Is(err, ErrForbidden) {
				code = http.StatusForbidden
			}
			next(chain.Error{Code: code, Cause: err})
			return
		}
		req.Data[DataKey] = u
		next(nil)
	}, nil
}

func (v validator) validate(raw string) (User, error) {
	if raw == "" {
		return User{}, ErrNoToken
	}
	if len(v.secret) == 0 {
		return User{}, ErrNoSecret
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
	)

	var c claims
	tok, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return User{}, ErrInvalidToken
	}
	if v.issuer != "" && c.Issuer != v.issuer {
		return User{}, ErrBadIssuer
	}
	if v.audience != "" {
		found := false
		for _, a := range c.Audience {
			if a == v.audience {
				found = true
				break
			}
		}
		if !found {
			return User{}, ErrBadAudience
		}
	}

	username := c.UID
	if username == "" {
		username = c.Subject
	}
	if username == "" {
		return User{}, ErrInvalidToken
	}
	role := c.Role
	if role == "" && len(c.Roles) > 0 {
		role = c.Roles[0]
	}
	return User{Username: username, Role: Role{Name: role}}, nil
}

func token(h http.Header, cookie string) string {
	if h == nil {
		return ""
	}
	if a := h.Get("Authorization"); strings.HasPrefix(a, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(a, "Bearer "))
	}
	r := http.Request{Header: h}
	if c, err := r.Cookie(cookie); err == nil {
		return c.Value
	}
	return ""
}

func str(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return strings.TrimSpace(s)
}
