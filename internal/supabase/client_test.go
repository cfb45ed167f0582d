package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livey-backend/internal/errs"
)

func fakeAuthServer(t *testing.T, users map[string]uuid.UUID) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			http.NotFound(w, r)
			return
		}
		id, ok := users[r.Header.Get("Authorization")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id.String(), "aud": "authenticated", "role": "authenticated"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyToken(t *testing.T) {
	seller := uuid.New()
	srv := fakeAuthServer(t, map[string]uuid.UUID{"Bearer good-token": seller})

	c, err := NewClient(srv.URL, "publishable-key")
	require.NoError(t, err)

	got, err := c.VerifyToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, seller, got)

	_, err = c.VerifyToken(context.Background(), "expired-token")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestVerifyToken_ContextCancelled(t *testing.T) {
	srv := fakeAuthServer(t, nil)
	c, err := NewClient(srv.URL, "publishable-key")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.VerifyToken(ctx, "any")
	assert.Error(t, err)
}
