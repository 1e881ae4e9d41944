// Package auth handles staff logins: bcrypt password hashes and a signed
// session cookie carrying an HS256 JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"churchclerk/internal/activity"
	"churchclerk/internal/core"
	"churchclerk/internal/records"
)

const CookieName = "clerk_session"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

type Manager struct {
	staff  records.StaffStore
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(staff records.StaffStore, secret string, ttl time.Duration, secureCookie bool) *Manager {
	return &Manager{
		staff:  staff,
		secret: []byte(secret),
		ttl:    ttl,
		secure: secureCookie,
		now:    time.Now,
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateStaff registers a new staff account.
func (m *Manager) CreateStaff(ctx context.Context, username, password string) (core.StaffUser, error) {
	if len(password) < 8 {
		return core.StaffUser{}, errors.New("password must be at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return core.StaffUser{}, err
	}
	u := core.StaffUser{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		CreatedAt:    m.now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return core.StaffUser{}, err
	}
	if err := m.staff.CreateStaff(ctx, u); err != nil {
		return core.StaffUser{}, err
	}
	return u, nil
}

// EnsureStaff creates the account unless the username already exists.
func (m *Manager) EnsureStaff(ctx context.Context, username, password string) error {
	if _, err := m.staff.GetStaffByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("look up staff user: %w", err)
	}
	if _, err := m.CreateStaff(ctx, username, password); err != nil {
		return fmt.Errorf("create staff user %s: %w", username, err)
	}
	slog.InfoContext(ctx, "Bootstrap staff account created", "username", username)
	return nil
}

// Login checks credentials and returns a signed session token.
func (m *Manager) Login(ctx context.Context, username, password string) (string, error) {
	u, err := m.staff.GetStaffByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("look up staff user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return m.Issue(u.Username)
}

func (m *Manager) Issue(username string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify returns the username carried by a valid token.
func (m *Manager) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.Parser{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSession
	}
	if !claims.VerifyExpiresAt(m.now(), true) || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Require rejects requests without a valid session. Browser page loads are
// redirected to the login form; everything else gets 401.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err == nil {
			if username, verr := m.Verify(cookie.Value); verr == nil {
				next.ServeHTTP(w, r.WithContext(activity.WithActor(r.Context(), username)))
				return
			}
		}

		if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html") {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"authentication required"}`))
	})
}

// SafeNext keeps post-login redirects on this site.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/reports"
	}
	return next
}
