/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preview serves a live HTML rendering of a project's resolved
// manuscript along with its placeholder report.
package preview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"makinilya/internal/build"
	"makinilya/internal/interpolate"
	"makinilya/internal/manuscript"
	"makinilya/internal/project"
	"makinilya/internal/storage"
	"makinilya/internal/story"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"
)

// Server renders the project at Root on every request, so edits show up on reload.
type Server struct {
	root    string
	workers int
	log     *slog.Logger
	router  chi.Router
	md      goldmark.Markdown
}

func NewServer(root string, workers int, log *slog.Logger) *Server {
	s := &Server{root: root, workers: workers, log: log, md: goldmark.New()}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleManuscript)
	r.Get("/api/identifiers", s.handleIdentifiers)
	r.Get("/api/search", s.handleSearch)
	r.Get("/api/usages/{identifier}", s.handleUsages)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleManuscript(w http.ResponseWriter, r *http.Request) {
	p, err := project.Open(s.root)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	tree, err := p.LoadStory()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	nctx, err := p.LoadContext()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resolved, err := interpolate.Interpolator{Workers: s.workers}.Interpolate(tree, nctx)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	var body bytes.Buffer
	if err := s.md.Convert(Markdown(resolved, manuscript.LayoutFrom(p.Config)), &body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n%s</body></html>\n",
		html.EscapeString(p.Config.Story.Title), body.Bytes())
}

func (s *Server) handleIdentifiers(w http.ResponseWriter, r *http.Request) {
	rep, err := build.Check(r.Context(), s.root, s.workers)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]any{
		"identifiers": nonNil(rep.Identifiers),
		"unresolved":  nonNil(rep.Unresolved),
		"unused":      nonNil(rep.Unused),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := storage.SearchQuery{
		Text:       r.URL.Query().Get("q"),
		PathPrefix: r.URL.Query().Get("in"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "limit must be a number", http.StatusBadRequest)
			return
		}
		q.Limit = n
	}
	res, err := storage.Search(r.Context(), s.root, q)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, storage.ErrBadQuery) {
			code = http.StatusBadRequest
		}
		jsonError(w, err.Error(), code)
		return
	}
	out := make([]map[string]any, 0, len(res))
	for _, hit := range res {
		out = append(out, map[string]any{"path": hit.Path, "title": hit.Title, "words": hit.Words, "snippet": hit.Snippet})
	}
	writeJSON(w, map[string]any{"results": out})
}

func (s *Server) handleUsages(w http.ResponseWriter, r *http.Request) {
	uses, err := storage.WhereUsed(r.Context(), s.root, chi.URLParam(r, "identifier"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := make([]map[string]any, 0, len(uses))
	for _, u := range uses {
		out = append(out, map[string]any{"identifier": u.Identifier, "scene": u.Scene, "line": u.Line, "column": u.Column})
	}
	writeJSON(w, map[string]any{"usages": out})
}

// Markdown lays out a resolved tree as Markdown: the title block, then a
// heading per part (deeper parts get smaller headings) and the scenes'
// lines as paragraphs, with "#" between scenes of the same part. Author
// text is escaped, so it renders literally as it does in the manuscript.
func Markdown(root story.Node, l manuscript.Layout) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n*%s* · %s\n\n", escapeMarkdown(l.Title), escapeMarkdown(l.PenName), escapeMarkdown(manuscript.WordLine(root)))
	var visit func(n story.Node, depth int)
	visit = func(n story.Node, depth int) {
		p, ok := n.(*story.Part)
		if !ok {
			return
		}
		if depth > 0 {
			fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", min(depth+1, 6)), escapeMarkdown(p.Title))
		}
		scenes := 0
		for _, c := range p.Children {
			switch v := c.(type) {
			case *story.Content:
				if scenes > 0 {
					b.WriteString("\\#\n\n")
				}
				scenes++
				for _, line := range strings.Split(v.Source, "\n") {
					if line = strings.TrimSpace(line); line != "" {
						b.WriteString(escapeMarkdown(line))
						b.WriteString("\n\n")
					}
				}
			case *story.Part:
				visit(v, depth+1)
			}
		}
	}
	visit(root, 0)
	return b.Bytes()
}

// asciiPunct is the set CommonMark allows to be backslash-escaped.
const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// escapeMarkdown backslash-escapes every ASCII punctuation character, which
// CommonMark then reads as the literal character.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(asciiPunct, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func statusFor(err error) int {
	var se *interpolate.SourceError
	if errors.As(err, &se) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
