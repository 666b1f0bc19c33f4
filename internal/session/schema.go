package session

// Schema DDL for the session store. Statements are idempotent so an existing
// file is reused across invocations.
const (
	createSessions = `CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    actor TEXT NOT NULL UNIQUE,
    access_token TEXT NOT NULL,
    role_name TEXT NOT NULL,
    permissions TEXT NOT NULL,
    profile TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createState = `CREATE TABLE IF NOT EXISTS state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// Keys of the state table.
const (
	stateCurrentActor = "current_actor"
	stateLocation     = "location"
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createSessions,
	createState,
}
