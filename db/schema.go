package db

import "fmt"

// EnsureSchema creates the application tables if they are missing. The
// UNIQUE constraints on servers.invite_code and server_members(server_id,
// user_id) back up the application-level checks so concurrent joins and
// invite-code collisions fail at the store instead of slipping through.
func EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS servers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			invite_code TEXT NOT NULL UNIQUE,
			owner_id INTEGER NOT NULL REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS server_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id INTEGER NOT NULL REFERENCES servers(id),
			user_id INTEGER NOT NULL REFERENCES users(id),
			joined_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(server_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			server_id INTEGER NOT NULL REFERENCES servers(id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel_id INTEGER NOT NULL REFERENCES channels(id),
			user_id INTEGER NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_created
			ON messages(channel_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("schema exec failed: %w", err)
		}
	}
	return nil
}
