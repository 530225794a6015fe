// Package web embeds the console templates and stylesheet.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Renderer renders the embedded templates for echo.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// GetFileSystem returns the embedded static files with the static folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(assets, "static")
}

// RegisterStaticRoutes serves the stylesheet under /static.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	e.StaticFS("/static", staticFS)
	return nil
}

// HasEmbeddedFiles reports whether the page template is embedded.
func HasEmbeddedFiles() bool {
	entries, err := assets.ReadDir("templates")
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Name() == "index.html" {
			return true
		}
	}
	return false
}
