package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/codadmin/internal/transport"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// fakeAuth serves /{actor}/auth/* for one account per actor.
type fakeAuth struct {
	mu       sync.Mutex
	profiles map[string]map[string]any
	logouts  []string
	refresh  map[string]any
}

func (f *fakeAuth) routes() http.Handler {
	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	r := chi.NewRouter()
	r.Route("/{actor}/auth", func(r chi.Router) {
		r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(req.Body).Decode(&body)
			if body["password"] != "secret" {
				write(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
				return
			}
			switch chi.URLParam(req, "actor") {
			case "platform":
				write(w, http.StatusOK, map[string]any{"access_token": "platform-token"})
			case "merchant":
				write(w, http.StatusOK, map[string]any{"data": map[string]any{"access_token": "merchant-token"}})
			default:
				write(w, http.StatusOK, map[string]any{"token": "buyer-token"})
			}
		})
		r.Get("/me", func(w http.ResponseWriter, req *http.Request) {
			actor := chi.URLParam(req, "actor")
			if req.Header.Get("Authorization") != "Bearer "+actor+"-token" && req.Header.Get("Authorization") != "Bearer renewed" {
				write(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated"})
				return
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			write(w, http.StatusOK, map[string]any{"data": f.profiles[actor]})
		})
		r.Post("/refresh", func(w http.ResponseWriter, _ *http.Request) {
			write(w, http.StatusOK, f.refresh)
		})
		r.Post("/logout", func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.logouts = append(f.logouts, chi.URLParam(req, "actor"))
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func (f *fakeAuth) loggedOut() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logouts...)
}

func newAuth(t *testing.T, f *fakeAuth) (*Authenticator, *Store) {
	t.Helper()
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	store, _ := openStore(t)
	return NewAuthenticator(transport.Options{BaseURL: srv.URL}, store), store
}

func TestLoginMerchant(t *testing.T) {
	ctx := context.Background()
	f := &fakeAuth{profiles: map[string]map[string]any{
		"merchant": {"id": 7, "role_name": "Client", "permissions": []any{"view-product", map[string]any{"key_name": "view-branch"}}},
	}}
	a, store := newAuth(t, f)

	sess, err := a.Login(ctx, types.ActorMerchant, "m@x", "secret")
	require.NoError(t, err)
	assert.Equal(t, "merchant-token", sess.AccessToken)
	assert.Equal(t, []string{"view-product", "view-branch"}, sess.Identity.Permissions)
	assert.True(t, sess.Identity.IsClient())

	cur, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, cur.ID)
}

func TestLoginRejections(t *testing.T) {
	ctx := context.Background()
	f := &fakeAuth{profiles: map[string]map[string]any{
		"platform": {"id": 1, "email": "merchant@x"},
	}}
	a, store := newAuth(t, f)

	_, err := a.Login(ctx, types.ActorPlatform, "merchant@x", "secret")
	assert.ErrorIs(t, err, types.ErrWrongActor)
	assert.Contains(t, err.Error(), MessageMerchantLogin)
	assert.Equal(t, []string{"platform"}, f.loggedOut())
	_, err = store.Get(ctx, types.ActorPlatform)
	assert.ErrorIs(t, err, types.ErrNotLoggedIn)

	_, err = a.Login(ctx, types.ActorMerchant, "m@x", "wrong")
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = a.Login(ctx, "robot", "m@x", "secret")
	assert.ErrorIs(t, err, types.ErrUnknownActor)
}

func TestLoginPlatform(t *testing.T) {
	ctx := context.Background()
	f := &fakeAuth{profiles: map[string]map[string]any{
		"platform": {"id": 1, "platform_role_id": 2, "role_name": "Super"},
	}}
	a, _ := newAuth(t, f)

	sess, err := a.Login(ctx, types.ActorPlatform, "p@x", "secret")
	require.NoError(t, err)
	assert.Equal(t, types.ActorPlatform, sess.Identity.Actor)
	assert.Equal(t, "Super", sess.Identity.RoleName)
	assert.False(t, sess.Identity.MerchantSide())
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	f := &fakeAuth{
		profiles: map[string]map[string]any{"buyer": {"id": 9, "role_name": "buyer"}},
		refresh:  map[string]any{"access_token": "renewed"},
	}
	a, store := newAuth(t, f)

	_, err := a.Refresh(ctx, types.ActorBuyer)
	assert.ErrorIs(t, err, types.ErrNotLoggedIn)

	_, err = a.Login(ctx, types.ActorBuyer, "b@x", "secret")
	require.NoError(t, err)

	sess, err := a.Refresh(ctx, types.ActorBuyer)
	require.NoError(t, err)
	assert.Equal(t, "renewed", sess.AccessToken)

	require.NoError(t, a.Logout(ctx, types.ActorBuyer))
	assert.Equal(t, []string{"buyer"}, f.loggedOut())
	_, err = store.Current(ctx)
	assert.ErrorIs(t, err, types.ErrNotLoggedIn)
}

func TestAccessToken(t *testing.T) {
	tests := []struct {
		name string
		resp types.Row
		want string
	}{
		{"access_token", types.Row{"access_token": "a", "token": "b"}, "a"},
		{"token", types.Row{"token": "b"}, "b"},
		{"nested", types.Row{"data": map[string]any{"access_token": "c"}}, "c"},
		{"none", types.Row{"ok": true}, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AccessToken(tt.resp))
		})
	}
}
