package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/gridplan-labs/gridplan/internal/assist"
	"github.com/gridplan-labs/gridplan/internal/timetable"
)

const sessionName = "gridplan"

// pageDataFromView maps the cached view to template data.
func (s *Server) pageDataFromView(v *View) pageData {
	return pageData{
		Title:         "Timetable",
		Days:          timetable.Days,
		Periods:       timetable.PeriodRows(),
		Grids:         v.Grids,
		Summary:       v.Summary,
		Unassigned:    v.Schedule.UnassignedByGrade(),
		SolveStatus:   v.SolveStatus,
		GeneratedAt:   v.GeneratedAt,
		AssistEnabled: s.assistant != nil,
	}
}

// handleIndex renders the timetable page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := s.pageDataFromView(s.currentView())

	if session, err := s.sessionStore.Get(r, sessionName); err == nil {
		if q, ok := session.Values["last_question"].(string); ok {
			data.Question = q
		}
	}

	s.renderPage(w, data)
}

// handleAsk answers a question about the current timetable and re-renders
// the page with the answer below the grid.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(r.PostFormValue("question"))
	if question == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if session, err := s.sessionStore.Get(r, sessionName); err == nil {
		session.Values["last_question"] = question
		_ = session.Save(r, w)
	}

	data := s.pageDataFromView(s.currentView())
	data.Question = question

	// The answer is grounded in the same fragment the browser is showing.
	tableHTML, err := renderGrid(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	answer, err := s.assistant.Ask(r.Context(), question, tableHTML)
	if err != nil {
		s.logger.Error("assistant request failed", slog.String("error", err.Error()))
		data.AssistError = "The assistant could not answer. Try again in a moment."
		s.renderPage(w, data)
		return
	}

	html, err := assist.RenderMarkdown(answer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data.Answer = html
	s.renderPage(w, data)
}

// handleSolve triggers a background re-seed and re-solve.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	ctx := s.bgCtx
	go func() {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error("refresh failed", slog.String("error", err.Error()))
		}
	}()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleUpdates is the long-lived SSE endpoint. Each broadcast patches the
// timetable fragment in place.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			html, err := renderGrid(s.pageDataFromView(s.currentView()))
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElements(html); err != nil {
				return
			}
		}
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleNotFound renders the 404 page with the requested path.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	if err := notFoundTemplate.ExecuteTemplate(w, "layout", notFoundData{
		Title: "Not found",
		Path:  r.URL.Path,
	}); err != nil {
		s.logger.Error("render failed", slog.String("error", err.Error()))
	}
}

func (s *Server) renderPage(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("render failed", slog.String("error", err.Error()))
	}
}
