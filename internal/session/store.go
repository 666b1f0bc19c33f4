// Package session keeps the signed-in identities of the console and the last
// navigable location in a local SQLite file, and talks to the auth endpoints
// of the API.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// DBFile is the name of the store file inside the data directory.
const DBFile = "session.db"

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("session store is closed")

// Session is one signed-in actor.
type Session struct {
	ID          string
	AccessToken string
	Identity    types.Identity
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists sessions and the last location.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens (creating if needed) the store in dataDir.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing session store: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) handle() (*sql.DB, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	return s.db, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Save stores sess for its actor, replacing any earlier session of that actor,
// and makes the actor current. A session without an ID gets a UUID v7.
func (s *Store) Save(ctx context.Context, sess Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return sess, err
	}
	if !sess.Identity.Actor.Valid() {
		return sess, types.ErrUnknownActor
	}
	if sess.ID == "" {
		sess.ID = generateUUID()
	}
	perms, err := json.Marshal(nonNil(sess.Identity.Permissions))
	if err != nil {
		return sess, fmt.Errorf("encoding permissions: %w", err)
	}
	profile, err := json.Marshal(sess.Identity.Profile)
	if err != nil {
		return sess, fmt.Errorf("encoding profile: %w", err)
	}

	ts := now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return sess, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO sessions
        (session_id, actor, access_token, role_name, permissions, profile, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(actor) DO UPDATE SET
            session_id = excluded.session_id,
            access_token = excluded.access_token,
            role_name = excluded.role_name,
            permissions = excluded.permissions,
            profile = excluded.profile,
            updated_at = excluded.updated_at`,
		sess.ID, string(sess.Identity.Actor), sess.AccessToken, sess.Identity.RoleName,
		string(perms), string(profile), ts, ts)
	if err != nil {
		return sess, fmt.Errorf("saving session: %w", err)
	}
	if err := setState(ctx, tx, stateCurrentActor, string(sess.Identity.Actor)); err != nil {
		return sess, err
	}
	if err := tx.Commit(); err != nil {
		return sess, err
	}
	return s.getLocked(ctx, db, sess.Identity.Actor)
}

// Get returns the session of actor, or ErrNotLoggedIn.
func (s *Store) Get(ctx context.Context, actor types.Actor) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return Session{}, err
	}
	return s.getLocked(ctx, db, actor)
}

func (s *Store) getLocked(ctx context.Context, db *sql.DB, actor types.Actor) (Session, error) {
	var (
		sess                 Session
		actorStr, perms, pro string
		created, updated     string
	)
	err := db.QueryRowContext(ctx, `SELECT session_id, actor, access_token, role_name, permissions, profile, created_at, updated_at
        FROM sessions WHERE actor = ?`, string(actor)).
		Scan(&sess.ID, &actorStr, &sess.AccessToken, &sess.Identity.RoleName, &perms, &pro, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w as %s", types.ErrNotLoggedIn, actor)
	}
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}
	sess.Identity.Actor = types.Actor(actorStr)
	if err := json.Unmarshal([]byte(perms), &sess.Identity.Permissions); err != nil {
		return Session{}, fmt.Errorf("decoding permissions: %w", err)
	}
	if err := json.Unmarshal([]byte(pro), &sess.Identity.Profile); err != nil {
		return Session{}, fmt.Errorf("decoding profile: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	sess.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return sess, nil
}

// Current returns the session of the actor that signed in last.
func (s *Store) Current(ctx context.Context) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return Session{}, err
	}
	actor, err := getState(ctx, db, stateCurrentActor)
	if err != nil {
		return Session{}, err
	}
	if actor == "" {
		return Session{}, types.ErrNotLoggedIn
	}
	return s.getLocked(ctx, db, types.Actor(actor))
}

// Delete forgets the session of actor. Deleting a missing session is not an
// error.
func (s *Store) Delete(ctx context.Context, actor types.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE actor = ?`, string(actor)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM state WHERE key = ? AND value = ?`, stateCurrentActor, string(actor)); err != nil {
		return fmt.Errorf("clearing current actor: %w", err)
	}
	return tx.Commit()
}

// SetLocation records the last navigable location.
func (s *Store) SetLocation(ctx context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return err
	}
	return setState(ctx, db, stateLocation, location)
}

// Location returns the last recorded location, or "" when none was recorded.
func (s *Store) Location(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return "", err
	}
	return getState(ctx, db, stateLocation)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setState(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now())
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

func getState(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// generateUUID generates a new UUID v7 for session IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
