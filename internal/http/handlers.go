package http

import (
	"bytes"
	"errors"
	"net/http"

	"churchclerk/internal/auth"
	clog "churchclerk/internal/log"
)

type pageData struct {
	Org      string
	Title    string
	SignedIn bool
	Error    string
	Next     string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.deps.Logger.WithComponent(clog.ComponentTemplate).ErrorContext(r.Context(), "Template render failed",
			"template", name,
			clog.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) signedIn(r *http.Request) bool {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return false
	}
	_, err = s.deps.Auth.Verify(c.Value)
	return err == nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", pageData{
		Org:      s.deps.Org,
		Title:    "Clerk's Desk",
		SignedIn: s.signedIn(r),
	})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.URL.Query().Get("next"))
	if s.signedIn(r) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", pageData{Org: s.deps.Org, Title: "Staff sign in", Next: next})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", pageData{Org: s.deps.Org, Title: "Staff sign in", Error: "Invalid request"})
		return
	}
	username := sanitizeInput(r.PostForm.Get("username"))
	next := auth.SafeNext(r.PostForm.Get("next"))
	logger := s.deps.Logger.WithComponent(clog.ComponentAuth)

	token, err := s.deps.Auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.WarnContext(r.Context(), "Failed login attempt",
				"username", username,
				clog.FieldClientIP, s.detector.ExtractClientIP(r))
			s.render(w, r, http.StatusUnauthorized, "login.html", pageData{
				Org: s.deps.Org, Title: "Staff sign in", Error: "Invalid username or password", Next: next,
			})
			return
		}
		logger.ErrorContext(r.Context(), "Login failed", clog.FieldError, err)
		http.Error(w, "login unavailable", http.StatusInternalServerError)
		return
	}

	s.deps.Auth.SetCookie(w, token)
	logger.InfoContext(r.Context(), "Staff signed in", "username", username)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
