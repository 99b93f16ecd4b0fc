package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisabledClientIsNoOp(t *testing.T) {
	c := NewClient(zap.NewNop(), Config{})

	assert.False(t, c.Enabled())
	assert.NoError(t, c.Health(context.Background()))
	assert.NoError(t, c.UpsertRows(context.Background(), "users", []map[string]any{{"id": "u-1"}}))
}

func TestHealthProbesRestRoot(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), Config{URL: srv.URL, Key: "service-key"})
	require.NoError(t, c.Health(context.Background()))

	assert.Equal(t, "/rest/v1/", gotPath)
	assert.Equal(t, "service-key", gotKey)
}

func TestHealthReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), Config{URL: srv.URL, Key: "k"})
	assert.ErrorContains(t, c.Health(context.Background()), "503")
}

func TestUpsertRowsSendsMergeDuplicates(t *testing.T) {
	type row struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	var gotPrefer, gotAuth, gotContentType string
	var gotBody []row
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), Config{URL: srv.URL + "/", Key: "service-key"})
	rows := []row{{ID: "u-1", Name: "alice"}, {ID: "u-2", Name: "bob"}}
	require.NoError(t, c.UpsertRows(context.Background(), "users", rows))

	assert.Equal(t, "resolution=merge-duplicates", gotPrefer)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, rows, gotBody)
}

func TestUpsertRowsSurfacesErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"duplicate key"}`))
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), Config{URL: srv.URL, Key: "k"})
	err := c.UpsertRows(context.Background(), "alerts", []map[string]any{{"id": 1}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "409")
	assert.ErrorContains(t, err, "duplicate key")
}
