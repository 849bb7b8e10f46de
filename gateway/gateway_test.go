package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxscan/scankit/cache"
	"github.com/mxscan/scankit/logger"
	"github.com/mxscan/scankit/outbox"
	"github.com/mxscan/scankit/place"
	"github.com/mxscan/scankit/store"
)

func testRecord() place.Record {
	return place.Record{PlaceCod: 100101, PlaceName: "Э6.01.01.01", MXType: place.MXTypeBox, QtySHK: 7}
}

func testSubmission() place.Submission {
	return place.Submission{
		ClientID: "c-1",
		Badge:    "W123",
		PlaceCod: 100101,
		FactQty:  7,
		Status:   place.StatusOK,
	}
}

// collaborator is a scripted stand-in for the warehouse API.
func collaborator(t *testing.T, lookups *int32, submit func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/place/", func(w http.ResponseWriter, r *http.Request) {
		if lookups != nil {
			atomic.AddInt32(lookups, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testRecord())
	})
	if submit != nil {
		mux.HandleFunc("/api/scan/complete", submit)
	}
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, baseURL string) (*Gateway, *cache.PlaceCache, *outbox.Outbox) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	log := logger.NewTestLogger()
	pc := cache.New(ctx, mem, log)
	box := outbox.New(mem, log)
	return New(log, baseURL, pc, box), pc, box
}

func TestLookupPopulatesCache(t *testing.T) {
	var lookups int32
	srv := collaborator(t, &lookups, nil)
	g, pc, _ := newGateway(t, srv.URL)
	ctx := context.Background()

	rec, err := g.Lookup(ctx, "э6.01.01.01")
	require.NoError(t, err)
	assert.Equal(t, testRecord(), rec)
	assert.Equal(t, int32(1), atomic.LoadInt32(&lookups))

	// Second lookup, by the numeric alias this time, is served from the
	// cache without a network call.
	rec, err = g.Lookup(ctx, "100101")
	require.NoError(t, err)
	assert.Equal(t, testRecord(), rec)
	assert.Equal(t, int32(1), atomic.LoadInt32(&lookups))
	assert.Equal(t, 2, pc.Len())
}

func TestLookupRejectsInvalidCode(t *testing.T) {
	var lookups int32
	srv := collaborator(t, &lookups, nil)
	g, _, _ := newGateway(t, srv.URL)

	_, err := g.Lookup(context.Background(), "garbage frame##")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, int32(0), atomic.LoadInt32(&lookups))
}

func TestLookupNotFoundSurfaced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/place/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "place not found"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	g, pc, _ := newGateway(t, srv.URL)

	_, err := g.Lookup(context.Background(), "Э9.99.99.99")
	require.Error(t, err)
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusNotFound, gerr.Status)
	assert.Contains(t, err.Error(), "place not found")
	assert.Equal(t, 0, pc.Len())
}

func TestLookupTransportFailureSurfaced(t *testing.T) {
	// A read failure is a user-visible error, never queued.
	g, _, box := newGateway(t, "http://127.0.0.1:1")
	_, err := g.Lookup(context.Background(), "Э6.01.01.01")
	require.Error(t, err)
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, 0, gerr.Status)
	assert.Equal(t, 0, box.Len(context.Background()))
}

func TestSubmitDelivered(t *testing.T) {
	var got place.Submission
	srv := collaborator(t, nil, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "result": "recorded"})
	})
	g, _, box := newGateway(t, srv.URL)

	outcome, err := g.Submit(context.Background(), testSubmission())
	require.NoError(t, err)
	assert.True(t, outcome.Delivered)
	assert.False(t, outcome.Queued)
	assert.Equal(t, int64(100101), got.PlaceCod)
	assert.Equal(t, 0, box.Len(context.Background()))
}

func TestSubmitTransportFailureQueues(t *testing.T) {
	g, _, box := newGateway(t, "http://127.0.0.1:1")
	ctx := context.Background()

	outcome, err := g.Submit(ctx, testSubmission())
	require.NoError(t, err)
	assert.True(t, outcome.Queued)
	assert.Equal(t, 1, outcome.Pending)

	items := box.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, SubmitPath, items[0].Path)
	var queued place.Submission
	require.NoError(t, json.Unmarshal(items[0].Body, &queued))
	assert.Equal(t, "c-1", queued.ClientID)
}

func TestSubmitHTTPErrorNotQueued(t *testing.T) {
	srv := collaborator(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "missing badge"})
	})
	g, _, box := newGateway(t, srv.URL)

	_, err := g.Submit(context.Background(), testSubmission())
	require.Error(t, err)
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusBadRequest, gerr.Status)
	assert.Contains(t, err.Error(), "missing badge")
	assert.Equal(t, 0, box.Len(context.Background()))
}

func TestSubmitApplicationErrorNotQueued(t *testing.T) {
	// A 200 carrying an error field is still a definitive rejection.
	srv := collaborator(t, nil, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "zone is reserved"})
	})
	g, _, box := newGateway(t, srv.URL)

	_, err := g.Submit(context.Background(), testSubmission())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zone is reserved")
	assert.Equal(t, 0, box.Len(context.Background()))
}

func TestSubmitQueueUnavailable(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	log := logger.NewTestLogger()
	box := outbox.New(mem, log)
	g := New(log, "http://127.0.0.1:1", nil, box)

	mem.FailWrites(true)
	_, err := g.Submit(ctx, testSubmission())
	assert.ErrorIs(t, err, ErrNotQueued)
}

func TestSweepReplaysQueue(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	log := logger.NewTestLogger()
	box := outbox.New(mem, log)

	// Enqueue while unreachable.
	offline := New(log, "http://127.0.0.1:1", nil, box)
	outcome, err := offline.Submit(ctx, testSubmission())
	require.NoError(t, err)
	require.True(t, outcome.Queued)

	// Reconnect: the sweep drains through the gateway.
	var delivered int32
	srv := collaborator(t, nil, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&delivered, 1)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	online := New(log, srv.URL, nil, box)
	assert.Equal(t, 0, online.Sweep(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&delivered))
	assert.Equal(t, 0, box.Len(ctx))
}

func TestSweepKeepsRejectedSubmissions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	log := logger.NewTestLogger()
	box := outbox.New(mem, log)
	box.Push(ctx, SubmitPath, json.RawMessage(`{"n":1}`))

	srv := collaborator(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	g := New(log, srv.URL, nil, box)
	assert.Equal(t, 1, g.Sweep(ctx))
	assert.Equal(t, 1, box.Len(ctx))
}

func TestHealth(t *testing.T) {
	srv := collaborator(t, nil, nil)
	g, _, _ := newGateway(t, srv.URL)
	assert.True(t, g.Health(context.Background()))
	assert.True(t, g.Probe(context.Background()))

	down, _, _ := newGateway(t, "http://127.0.0.1:1")
	assert.False(t, down.Health(context.Background()))
}
