package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/repo"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer поднимает API на SQLite в памяти.
func newTestServer(t *testing.T, hub *Hub) (*http.ServeMux, repo.Store) {
	t.Helper()

	store, err := repo.OpenSQLite(repo.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(Config{
		Store:   store,
		Hub:     hub,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, "# metrics") }),
		Logger:  quietLogger(),
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, store
}

func seedRun(t *testing.T, store repo.Store, status domain.RunStatus) *domain.Run {
	t.Helper()
	ctx := context.Background()

	run := domain.NewRun(domain.DefaultParams(), "sim", "biorad_96_wellplate_200ul_pcr")
	require.NoError(t, store.CreateRun(ctx, run))

	run.MarkRunning()
	setup := domain.NewPhaseRecord(run.ID, domain.PhaseSetup)
	setup.Finish(nil)
	require.NoError(t, store.RecordPhase(ctx, setup))

	switch status {
	case domain.RunStatusSucceeded:
		run.MarkSucceeded()
	case domain.RunStatusFailed:
		binding := domain.NewPhaseRecord(run.ID, domain.PhaseBeadBinding)
		binding.Finish(errors.New("out of tips"))
		require.NoError(t, store.RecordPhase(ctx, binding))
		run.EnterPhase(domain.PhaseBeadBinding)
		run.MarkFailed("out of tips")
	}
	require.NoError(t, store.UpdateRun(ctx, run))
	return run
}

func get(t *testing.T, mux http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

type listBody[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

func TestHealthzAndMetrics(t *testing.T) {
	mux, _ := newTestServer(t, nil)

	rec := get(t, mux, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "ok"))

	rec = get(t, mux, "/metrics")
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestListRuns(t *testing.T) {
	mux, store := newTestServer(t, nil)
	ok := seedRun(t, store, domain.RunStatusSucceeded)
	seedRun(t, store, domain.RunStatusFailed)

	rec := get(t, mux, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var all listBody[RunResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Equal(t, 2, all.Total)

	rec = get(t, mux, "/api/v1/runs?status=SUCCEEDED")
	var filtered listBody[RunResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&filtered))
	require.Len(t, filtered.Data, 1)
	assert.Equal(t, ok.ID, filtered.Data[0].ID)
	assert.Equal(t, 3, filtered.Data[0].Columns)
}

func TestListRuns_BadQuery(t *testing.T) {
	mux, _ := newTestServer(t, nil)

	for _, q := range []string{"status=DONE", "limit=abc", "limit=-1", "limit=100000", "offset=-3"} {
		rec := get(t, mux, "/api/v1/runs?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, ErrCodeBadRequest, body.Error.Code)
	}
}

func TestGetRun(t *testing.T) {
	mux, store := newTestServer(t, nil)
	run := seedRun(t, store, domain.RunStatusFailed)

	rec := get(t, mux, "/api/v1/runs/"+run.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data RunResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.RunStatusFailed, body.Data.Status)
	assert.Equal(t, domain.PhaseBeadBinding, body.Data.Phase)
	assert.Equal(t, "out of tips", body.Data.Error)

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/api/v1/runs/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/api/v1/runs/not-a-uuid").Code)
}

func TestListRunPhases(t *testing.T) {
	mux, store := newTestServer(t, nil)
	run := seedRun(t, store, domain.RunStatusFailed)

	rec := get(t, mux, "/api/v1/runs/"+run.ID.String()+"/phases")
	require.Equal(t, http.StatusOK, rec.Code)

	var body listBody[PhaseResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, domain.PhaseSetup, body.Data[0].Phase)
	assert.Equal(t, domain.PhaseStatusFailed, body.Data[1].Status)

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/api/v1/runs/"+uuid.NewString()+"/phases").Code)
}

func TestListRunPhases_FilterByPhase(t *testing.T) {
	mux, store := newTestServer(t, nil)
	run := seedRun(t, store, domain.RunStatusFailed)
	base := "/api/v1/runs/" + run.ID.String() + "/phases"

	rec := get(t, mux, base+"?phase="+domain.PhaseSetup.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body listBody[PhaseResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, domain.PhaseSetup, body.Data[0].Phase)

	rec = get(t, mux, base+"?phase="+domain.PhaseWash.String())
	require.Equal(t, http.StatusOK, rec.Code)
	body = listBody[PhaseResponse]{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Empty(t, body.Data)

	rec = get(t, mux, base+"?phase=centrifuge")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := Chain(Recovery(quietLogger()))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(ErrCodeInternalError))
}

func TestEventsRouteDisabledWithoutHub(t *testing.T) {
	mux, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/api/v1/events").Code)
}

func dialEvents(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event domain.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(quietLogger())
	mux, _ := newTestServer(t, hub)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	runA, runB := uuid.New(), uuid.New()
	all := dialEvents(t, srv, "")
	onlyB := dialEvents(t, srv, "?run_id="+runB.String())
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.HandleEvent(ctx, domain.NewEvent(domain.EventRunStarted, runA, "", "")))
	require.NoError(t, hub.HandleEvent(ctx, domain.NewEvent(domain.EventPhaseStarted, runB, domain.PhaseSetup, "")))

	first := readEvent(t, all)
	assert.Equal(t, domain.EventRunStarted, first.Type)
	assert.Equal(t, runA, first.RunID)
	assert.Equal(t, domain.EventPhaseStarted, readEvent(t, all).Type)

	// Фильтр по run_id пропускает только события runB
	got := readEvent(t, onlyB)
	assert.Equal(t, runB, got.RunID)
	assert.Equal(t, domain.PhaseSetup, got.Phase)
}

func TestHub_DisconnectAndClose(t *testing.T) {
	hub := NewHub(quietLogger())
	mux, _ := newTestServer(t, hub)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dialEvents(t, srv, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.ErrorIs(t, hub.HandleEvent(context.Background(), domain.Event{}), ErrHubClosed)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, mux, "/api/v1/events").Code)
}

func TestHub_BadRunID(t *testing.T) {
	hub := NewHub(quietLogger())
	mux, _ := newTestServer(t, hub)

	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/api/v1/events?run_id=xyz").Code)
}

func TestHub_AddAfterClose(t *testing.T) {
	hub := NewHub(quietLogger())

	open := &wsClient{out: make(chan domain.Event, 1), done: make(chan struct{})}
	require.True(t, hub.add(open))
	assert.Equal(t, 1, hub.Clients())

	// Handshake завершился после Close: клиент не регистрируется
	hub.mu.Lock()
	hub.closed = true
	hub.clients = make(map[*wsClient]struct{})
	hub.mu.Unlock()

	late := &wsClient{out: make(chan domain.Event, 1), done: make(chan struct{})}
	assert.False(t, hub.add(late))
	assert.Zero(t, hub.Clients())
}
