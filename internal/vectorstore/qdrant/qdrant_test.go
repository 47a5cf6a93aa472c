package qdrant

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQdrant implements the handful of endpoints the client uses.
type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	points  map[int][]float32
	deletes int
	apiKeys []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	switch {
	case r.Method == http.MethodDelete && r.URL.Path == "/collections/test":
		f.deletes++
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.exists = false
		f.points = nil
	case r.Method == http.MethodPut && r.URL.Path == "/collections/test":
		f.exists = true
		f.points = map[int][]float32{}
	case r.Method == http.MethodPut && r.URL.Path == "/collections/test/points":
		var body struct {
			Points []struct {
				ID     int       `json:"id"`
				Vector []float32 `json:"vector"`
			} `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			f.points[p.ID] = p.Vector
		}
	case r.Method == http.MethodPost && r.URL.Path == "/collections/test/points/search":
		var body struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		type hit struct {
			ID    int     `json:"id"`
			Score float64 `json:"score"`
		}
		var hits []hit
		for id, v := range f.points {
			var d float64
			for i := range v {
				x := float64(v[i] - body.Vector[i])
				d += x * x
			}
			hits = append(hits, hit{ID: id, Score: math.Sqrt(d)})
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score }) // scrambled on purpose
		if len(hits) > body.Limit {
			sort.Slice(hits, func(i, j int) bool { return hits[i].Score < hits[j].Score })
			hits = hits[:body.Limit]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": hits})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestStorage(t *testing.T) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewStorage(Config{URL: srv.URL + "/", APIKey: "k", Collection: "test", Dimension: 2})
	require.NoError(t, err)
	return s, fake
}

func TestStorage_AddSearch(t *testing.T) {
	s, fake := newTestStorage(t)
	ctx := context.Background()

	hits, err := s.Search(ctx, []float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, s.Add(ctx, [][]float32{{3, 4}, {1, 0}}))
	require.NoError(t, s.Add(ctx, [][]float32{{0, 2}}))
	assert.Equal(t, 3, s.Size())

	hits, err = s.Search(ctx, []float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Index)
	assert.InDelta(t, 1.0, hits[0].Distance, 1e-9)
	assert.Equal(t, 2, hits[1].Index)
	assert.InDelta(t, 4.0, hits[1].Distance, 1e-9)
	assert.Equal(t, 0, hits[2].Index)
	assert.InDelta(t, 25.0, hits[2].Distance, 1e-9)

	for _, k := range fake.apiKeys {
		assert.Equal(t, "k", k)
	}
}

func TestStorage_Reset(t *testing.T) {
	s, fake := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, [][]float32{{1, 1}}))
	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 2, fake.deletes)
	assert.Empty(t, fake.points)

	require.NoError(t, s.Add(ctx, [][]float32{{2, 2}}))
	hits, err := s.Search(ctx, []float32{2, 2}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, hits[0].Index)
}

func TestStorage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	s, err := NewStorage(Config{URL: srv.URL, Collection: "test", Dimension: 2})
	require.NoError(t, err)
	err = s.Add(context.Background(), [][]float32{{1, 1}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "500"))
	assert.Equal(t, 0, s.Size())
}

func TestStorage_DimensionMismatch(t *testing.T) {
	s, _ := newTestStorage(t)
	assert.Error(t, s.Add(context.Background(), [][]float32{{1}}))
	_, err := s.Search(context.Background(), []float32{1, 2, 3}, 1)
	assert.Error(t, err)
}

func TestNewStorage_Validation(t *testing.T) {
	_, err := NewStorage(Config{Collection: "c"})
	assert.Error(t, err)
	_, err = NewStorage(Config{Dimension: 2})
	assert.Error(t, err)
}
