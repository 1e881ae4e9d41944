// Package web carries the clerk desk's page templates and stylesheet.
package web

import "embed"

// TemplatesFS holds the landing, login and report pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS is served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
