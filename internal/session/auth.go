package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/codadmin/internal/transport"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// MessageMerchantLogin is returned when a merchant account signs in through
// the platform endpoints.
const MessageMerchantLogin = "Please login as merchant."

// ErrNoToken is returned when a login response carries no access token.
var ErrNoToken = errors.New("login response carries no access token")

// Authenticator signs actors in and out against /{actor}/auth/* and keeps the
// result in a Store.
type Authenticator struct {
	opts   transport.Options
	store  *Store
	logger *zap.Logger
}

// NewAuthenticator creates an Authenticator. opts.Token is ignored; each call
// carries the token of the session it acts on.
func NewAuthenticator(opts transport.Options, store *Store) *Authenticator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{opts: opts, store: store, logger: logger}
}

func (a *Authenticator) client(token string) *transport.Client {
	opts := a.opts
	opts.Token = func() string { return token }
	return transport.New(opts)
}

func authPath(actor types.Actor, op string) string {
	return "/" + string(actor) + "/auth/" + op
}

// Login signs actor in with email and password, fetches the profile, and
// stores the session as current. Platform logins of accounts without a
// platform role are signed out again and rejected.
func (a *Authenticator) Login(ctx context.Context, actor types.Actor, email, password string) (Session, error) {
	if !actor.Valid() {
		return Session{}, fmt.Errorf("%w: %q", types.ErrUnknownActor, actor)
	}
	resp, err := a.client("").Send(ctx, http.MethodPost, authPath(actor, "login"), map[string]any{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return Session{}, fmt.Errorf("login as %s: %w", actor, err)
	}
	token := AccessToken(resp)
	if token == "" {
		return Session{}, ErrNoToken
	}

	profile, err := a.client(token).Send(ctx, http.MethodGet, authPath(actor, "me"), nil)
	if err != nil && actor != types.ActorPlatform {
		return Session{}, fmt.Errorf("fetching profile: %w", err)
	}
	if actor == types.ActorPlatform && !profile.Has("platform_role_id") {
		a.logout(ctx, actor, token)
		return Session{}, fmt.Errorf("%w: %s", types.ErrWrongActor, MessageMerchantLogin)
	}

	sess, err := a.store.Save(ctx, Session{AccessToken: token, Identity: IdentityFromProfile(actor, profile)})
	if err != nil {
		return Session{}, err
	}
	a.logger.Info("signed in", zap.String("actor", string(actor)), zap.String("role", sess.Identity.RoleName))
	return sess, nil
}

// Refresh renews the token of actor's session and reloads its profile.
func (a *Authenticator) Refresh(ctx context.Context, actor types.Actor) (Session, error) {
	sess, err := a.store.Get(ctx, actor)
	if err != nil {
		return Session{}, err
	}
	resp, err := a.client(sess.AccessToken).Send(ctx, http.MethodPost, authPath(actor, "refresh"), nil)
	if err != nil {
		return Session{}, fmt.Errorf("refreshing %s session: %w", actor, err)
	}
	if token := AccessToken(resp); token != "" {
		sess.AccessToken = token
	}
	return a.Me(ctx, sess)
}

// Me reloads the profile of sess and stores the updated identity.
func (a *Authenticator) Me(ctx context.Context, sess Session) (Session, error) {
	actor := sess.Identity.Actor
	profile, err := a.client(sess.AccessToken).Send(ctx, http.MethodGet, authPath(actor, "me"), nil)
	if err != nil {
		return Session{}, fmt.Errorf("fetching profile: %w", err)
	}
	sess.Identity = IdentityFromProfile(actor, profile)
	return a.store.Save(ctx, sess)
}

// Logout signs actor out. The local session is dropped even when the server
// call fails.
func (a *Authenticator) Logout(ctx context.Context, actor types.Actor) error {
	sess, err := a.store.Get(ctx, actor)
	if err != nil {
		return err
	}
	a.logout(ctx, actor, sess.AccessToken)
	return a.store.Delete(ctx, actor)
}

func (a *Authenticator) logout(ctx context.Context, actor types.Actor, token string) {
	if _, err := a.client(token).Send(ctx, http.MethodPost, authPath(actor, "logout"), nil); err != nil {
		a.logger.Warn("server logout failed", zap.String("actor", string(actor)), zap.Error(err))
	}
}

// AccessToken extracts the token of a login or refresh response from
// access_token, token, or data.access_token.
func AccessToken(resp types.Row) string {
	for _, key := range []string{"access_token", "token"} {
		if s := resp.String(key); s != "" {
			return s
		}
	}
	if data, ok := resp["data"].(map[string]any); ok {
		return types.Row(data).String("access_token")
	}
	return ""
}

// IdentityFromProfile builds the identity of actor from a profile response.
// Permissions are read from "permissions" as strings or objects with a
// key_name.
func IdentityFromProfile(actor types.Actor, profile types.Row) types.Identity {
	id := types.Identity{Actor: actor, RoleName: profile.String("role_name"), Profile: profile}
	list, _ := profile["permissions"].([]any)
	for _, p := range list {
		switch x := p.(type) {
		case string:
			id.Permissions = append(id.Permissions, x)
		case map[string]any:
			if k := types.Row(x).String("key_name"); k != "" {
				id.Permissions = append(id.Permissions, k)
			}
		}
	}
	return id
}

// TokenFor returns a token source reading actor's token from the store.
func (s *Store) TokenFor(ctx context.Context, actor types.Actor) transport.TokenSource {
	return func() string {
		sess, err := s.Get(ctx, actor)
		if err != nil {
			return ""
		}
		return sess.AccessToken
	}
}
