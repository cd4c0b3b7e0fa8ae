package chat

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"concord/db"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "chat_test.sqlite")
	database, err := db.InitSQLite(dbPath)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}

	prev := db.DB
	db.DB = database
	t.Cleanup(func() {
		database.Close()
		db.DB = prev
	})

	if err := db.EnsureSchema(); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
}

func createUser(t *testing.T, username string) int64 {
	t.Helper()
	res, err := db.DB.Exec(`INSERT INTO users (username, password) VALUES (?, ?)`, username, "hashed")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func createChannel(t *testing.T, ownerID int64, name string) int64 {
	t.Helper()
	res, err := db.DB.Exec(`INSERT INTO servers (name, invite_code, owner_id) VALUES (?, ?, ?)`,
		name+" server", "TST"+name, ownerID)
	if err != nil {
		t.Fatalf("insert server: %v", err)
	}
	serverID, _ := res.LastInsertId()

	joinedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.DB.Exec(`INSERT INTO server_members (server_id, user_id, joined_at) VALUES (?, ?, ?)`,
		serverID, ownerID, joinedAt); err != nil {
		t.Fatalf("insert membership: %v", err)
	}

	res, err = db.DB.Exec(`INSERT INTO channels (name, server_id) VALUES (?, ?)`, name, serverID)
	if err != nil {
		t.Fatalf("insert channel: %v", err)
	}
	channelID, _ := res.LastInsertId()
	return channelID
}

func timeout(t *testing.T) <-chan time.Time {
	t.Helper()
	return time.After(2 * time.Second)
}

// fakeSubscriber records delivered messages for assertions.
type fakeSubscriber struct {
	mu       sync.Mutex
	received []WSMessage
}

func (f *fakeSubscriber) Deliver(msg WSMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, msg)
}

func (f *fakeSubscriber) messages() []WSMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WSMessage, len(f.received))
	copy(out, f.received)
	return out
}
