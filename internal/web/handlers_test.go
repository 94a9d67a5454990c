package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridplan-labs/gridplan/internal/assist"
	"github.com/gridplan-labs/gridplan/internal/store"
	"github.com/gridplan-labs/gridplan/internal/timetable"
)

type stubCompleter struct {
	answer string
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, nil
}

// newTestServer builds a server over an in-memory store with one course
// and one room, solved once so the view is populated.
func newTestServer(t *testing.T, assistant *assist.Assistant) *Server {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, Path: ":memory:"},
		slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate())

	require.NoError(t, st.ReplaceCourses(ctx, []timetable.Course{
		{Subject: "Algorithms", Section: "A", Duration: 2, Professor: "Kim", Department: "CS", Grade: 2, Enrollment: 30},
	}))
	require.NoError(t, st.ReplaceRooms(ctx, []timetable.Room{{Number: "101", Capacity: 45}}))

	s := NewServer(Config{
		Store:         st,
		Assistant:     assistant,
		Host:          "127.0.0.1",
		Port:          0,
		SessionSecret: "test-secret",
		SolveBudget:   time.Second,
	})
	require.NoError(t, s.Refresh(ctx))
	return s
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "CS · Year 2 · Section A")
	assert.Contains(t, body, "Algorithms")
	assert.Contains(t, body, "Room 101")
	// No assistant configured, so no question form.
	assert.NotContains(t, body, "Ask about this timetable")
}

func TestHandleIndex_AssistFormShown(t *testing.T) {
	assistant := assist.New(&stubCompleter{answer: "ok"}, nil)
	s := newTestServer(t, assistant)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ask about this timetable")
}

func TestHandleAsk(t *testing.T) {
	stub := &stubCompleter{answer: "It meets **Monday**."}
	s := newTestServer(t, assist.New(stub, nil))

	form := url.Values{"question": {"When does Algorithms meet?"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>Monday</strong>")
	// The prompt carries the rendered grid as context.
	assert.Contains(t, stub.prompt, "Algorithms")
	assert.Contains(t, stub.prompt, "When does Algorithms meet?")
}

func TestHandleAsk_NoAssistantRedirects(t *testing.T) {
	s := newTestServer(t, nil)

	form := url.Values{"question": {"anything"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestHandleSolve_Redirects(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/solve", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/no-such-page", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/no-such-page")
}

func TestHandleUpdates_PatchesOnBroadcast(t *testing.T) {
	s := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/updates", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.handleUpdates(rec, req)
		close(done)
	}()

	// Give the handler time to subscribe before broadcasting.
	time.Sleep(50 * time.Millisecond)
	s.notifier.Broadcast()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "Algorithms")
	// The headline counts live inside the patched fragment so they update
	// together with the grid.
	assert.Contains(t, body, "courses assigned")
}

func TestRefresh_RecordsUnassignedInRun(t *testing.T) {
	ctx := context.Background()

	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, Path: ":memory:"},
		slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate())

	// The second course outgrows every room, so only one can be placed.
	require.NoError(t, st.ReplaceCourses(ctx, []timetable.Course{
		{Subject: "Algorithms", Section: "A", Duration: 2, Professor: "Kim", Department: "CS", Grade: 2, Enrollment: 30},
		{Subject: "Chemistry", Section: "B", Duration: 2, Professor: "Lee", Department: "Chem", Grade: 1, Enrollment: 200},
	}))
	require.NoError(t, st.ReplaceRooms(ctx, []timetable.Room{{Number: "101", Capacity: 45}}))

	s := NewServer(Config{
		Store:         st,
		Host:          "127.0.0.1",
		Port:          0,
		SessionSecret: "test-secret",
		SolveBudget:   time.Second,
	})
	require.NoError(t, s.Refresh(ctx))

	run, err := st.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 1, run.AssignedCourses)
	assert.Equal(t, 2, run.TotalCourses)

	v := s.currentView()
	assert.Equal(t, 1, v.Summary.Assigned)
	assert.Equal(t, 2, v.Summary.Total)
	assert.Equal(t, 1, v.Summary.Unassigned)
}

func TestRefresh_UpdatesView(t *testing.T) {
	s := newTestServer(t, nil)

	v := s.currentView()
	assert.Equal(t, 1, v.Summary.Assigned)
	assert.Equal(t, 1, v.Summary.Total)
	assert.Equal(t, "optimal", v.SolveStatus)
	require.Len(t, v.Grids, 1)
}

func TestNotifier(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()

	n.Broadcast()
	select {
	case <-ch:
	default:
		t.Fatal("expected a ping after broadcast")
	}

	// A full channel must not block further broadcasts.
	n.Broadcast()
	n.Broadcast()

	n.Unsubscribe(ch)
	// One ping is still buffered from the broadcasts above; after it is
	// drained the closed channel reads as not open.
	_, open := <-ch
	assert.True(t, open)
	_, open = <-ch
	assert.False(t, open)
}
