package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/alias"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/cache"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/client"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/handlers"
)

func newRemote(t *testing.T) *client.HTTPStore {
	t.Helper()
	mux := http.NewServeMux()
	handlers.NewHTTPHandlers(cache.NewMemoryStore(), alias.NewResolver(alias.DefaultTable())).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return client.NewHTTPStore(srv.URL + "/")
}

func TestHTTPStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newRemote(t)

	require.NoError(t, s.Save(ctx, "cargo_description", "Steel coils"))
	require.NoError(t, s.Save(ctx, "cargo_description", "steel coils"))
	require.NoError(t, s.Save(ctx, "cargo_description", "Paper rolls"))

	got, err := s.Fetch(ctx, "cargo_description", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Steel coils", got[0].Value)
	assert.Equal(t, 2, got[0].UsageCount)
	assert.Equal(t, "cargo_description", got[0].SourceKey)
	assert.WithinDuration(t, time.Now(), got[0].LastUsedAt, time.Minute)

	got, err = s.Fetch(ctx, "cargo_description", "PAPER")
	require.NoError(t, err)
	require.Len(t, got, 1)

	n, err := s.Len(ctx, "cargo_description")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cargo_description"}, keys)

	deleted, err := s.Delete(ctx, "cargo_description", "paper rolls")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "cargo_description", "paper rolls")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestHTTPStoreKeysWithSpecialCharacters(t *testing.T) {
	ctx := context.Background()
	s := newRemote(t)

	require.NoError(t, s.Save(ctx, "contact name", "Jonas"))
	got, err := s.Fetch(ctx, "contact name", "jon")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jonas", got[0].Value)
}

func TestHTTPStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := newRemote(t)

	assert.ErrorIs(t, s.Save(ctx, "city", "  "), models.ErrEmptyValue)
	assert.ErrorIs(t, s.Save(ctx, " ", "Vilnius"), models.ErrEmptyKey)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream down"}`))
	}))
	defer failing.Close()

	_, err := client.NewHTTPStore(failing.URL).Fetch(ctx, "city", "v")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.ErrorContains(t, err, "upstream down")

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer garbage.Close()

	_, err = client.NewHTTPStore(garbage.URL).Fetch(ctx, "city", "v")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	unreachable := client.NewHTTPStore("http://127.0.0.1:1")
	assert.ErrorIs(t, unreachable.Save(ctx, "city", "Vilnius"), models.ErrStoreUnavailable)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Fetch(cancelled, "city", "")
	assert.ErrorIs(t, err, context.Canceled)
}
