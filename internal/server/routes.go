package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/report"
)

func registerRoutes(r chi.Router, store *history.Store) {
	r.Get("/", handleIndex(store))
	r.Get("/runs/{id}", handleRunPage(store))
	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/{id}", handleGet(store))
		r.Get("/{id}/diff/{other}", handleDiff(store))
	})
}

func filterFromQuery(r *http.Request) (history.Filter, error) {
	q := r.URL.Query()
	filter := history.Filter{
		Kind:   report.Kind(q.Get("kind")),
		Target: q.Get("target"),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid since: %w", err)
		}
		filter.Since = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit %q", v)
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid offset %q", v)
		}
		filter.Offset = n
	}
	return filter, nil
}

func handleList(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		runs, err := store.List(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if runs == nil {
			runs = []history.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGet(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func handleDiff(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := store.Diff(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "other"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func handleRunPage(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		page, err := report.RenderHTML(rep)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeHTML(w, page)
	}
}

func handleIndex(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := store.List(r.Context(), history.Filter{Limit: 100})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		body, err := report.MarkdownToHTML(runsMarkdown(runs))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		page, err := report.WrapPage("siteaudit runs", body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeHTML(w, page)
	}
}

func runsMarkdown(runs []history.Run) string {
	var b strings.Builder
	b.WriteString("# Runs\n\n")
	if len(runs) == 0 {
		b.WriteString("No runs recorded yet. Run `siteaudit scan` or `siteaudit crawl` first.\n")
		return b.String()
	}
	b.WriteString("| Run | Kind | Target | Started | Errors | Warnings | Info | Score |\n")
	b.WriteString("|-----|------|--------|---------|--------|----------|------|-------|\n")
	for _, run := range runs {
		score := "-"
		if run.Score != nil {
			score = fmt.Sprintf("%.0f%%", *run.Score)
		}
		fmt.Fprintf(&b, "| [%s](/runs/%s) | %s | %s | %s | %d | %d | %d | %s |\n",
			shortID(run.ID), run.ID, run.Kind, escapeCell(run.Target),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Errors, run.Warnings, run.Infos, score)
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, history.ErrAmbiguous):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}
