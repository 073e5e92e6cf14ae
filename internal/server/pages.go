package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed content/about.md
var aboutMarkdown string

var md = goldmark.New()

var pageNames = []string{"about.html", "corpus.html"}

// parsePages clones the base layout once per page so each page gets its own
// "title" and "content" blocks.
func parsePages() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"color":    lyrics.ColorTag,
		"excerpt":  excerpt,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}
	return pages, nil
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		s.logger.Error("loading stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "about.html", map[string]any{
		"About":  aboutMarkdown,
		"Stats":  stats,
		"Genres": lyrics.Genres,
	})
}

func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.HumanLyrics(r.Context())
	if err != nil {
		s.logger.Error("loading corpus", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "corpus.html", map[string]any{
		"Lyrics": rows,
		"Counts": countByGenre(rows),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// excerpt returns the first line of a lyric, cut to n runes.
func excerpt(text string, n int) string {
	line, _, _ := strings.Cut(text, "\n")
	r := []rune(line)
	if len(r) <= n {
		return line
	}
	return string(r[:n]) + "…"
}

func countByGenre(rows []lyrics.HumanLyric) map[string]int {
	counts := make(map[string]int)
	for _, h := range rows {
		counts[strings.ToLower(h.Genre)]++
	}
	return counts
}
