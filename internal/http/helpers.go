package http

import (
	"html/template"
	"strings"
	"time"

	"churchclerk/internal/core"
)

var templateFuncs = template.FuncMap{
	"date": func(d core.Date) string { return d.String() },
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
