package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"concord/db"

	"github.com/gin-gonic/gin"
)

var (
	ErrEmptyContent    = errors.New("message content is empty")
	ErrChannelNotFound = errors.New("channel not found")
	ErrUserNotFound    = errors.New("user not found")
)

// createdAtLayout keeps the fractional seconds fixed-width, unlike
// RFC3339Nano, so the text ORDER BY on created_at matches chronological
// order even when a timestamp lands exactly on a second boundary.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MessageView is a message joined with its author's username, the shape
// pushed to subscribers and returned to the poster.
type MessageView struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	Username  string `json:"username"`
}

// MessageService is the only write path that causes a broadcast.
type MessageService struct {
	registry *Registry
	authz    Authorizer

	// One lock per channel serializes the insert-then-broadcast pair so
	// same-channel broadcasts reach subscribers in commit order. Channels
	// never contend with each other.
	channelLocks sync.Map
}

func NewMessageService(registry *Registry, authz Authorizer) *MessageService {
	return &MessageService{registry: registry, authz: authz}
}

func (s *MessageService) lockChannel(channelID int64) *sync.Mutex {
	actual, _ := s.channelLocks.LoadOrStore(channelID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// PostMessage persists the message, re-reads it joined with the author's
// username, broadcasts the enriched record to the channel's subscribers, and
// returns it. The persistence commit always precedes the broadcast: nobody
// ever sees a broadcast for a message a read-by-id would miss.
func (s *MessageService) PostMessage(ctx context.Context, channelID, userID int64, content string) (MessageView, error) {
	var view MessageView

	if strings.TrimSpace(content) == "" {
		return view, ErrEmptyContent
	}

	if err := s.authz.CanPost(ctx, userID, channelID); err != nil {
		return view, err
	}

	var exists int64
	if err := db.DB.QueryRowContext(ctx, `SELECT id FROM channels WHERE id = ?`, channelID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return view, ErrChannelNotFound
		}
		return view, fmt.Errorf("resolving channel: %w", err)
	}
	if err := db.DB.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return view, ErrUserNotFound
		}
		return view, fmt.Errorf("resolving user: %w", err)
	}

	mu := s.lockChannel(channelID)
	mu.Lock()
	defer mu.Unlock()

	createdAt := time.Now().UTC().Format(createdAtLayout)
	res, err := db.DB.ExecContext(ctx,
		`INSERT INTO messages (channel_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		channelID, userID, content, createdAt)
	if err != nil {
		return view, fmt.Errorf("inserting message: %w", err)
	}
	messageID, err := res.LastInsertId()
	if err != nil {
		return view, fmt.Errorf("reading insert id: %w", err)
	}

	err = db.DB.QueryRowContext(ctx,
		`SELECT messages.id, messages.content, messages.created_at, users.username
		 FROM messages
		 JOIN users ON messages.user_id = users.id
		 WHERE messages.id = ?`, messageID).
		Scan(&view.ID, &view.Content, &view.CreatedAt, &view.Username)
	if err != nil {
		return view, fmt.Errorf("re-reading message: %w", err)
	}

	s.registry.Broadcast(channelID, WSMessage{Type: "new-message", Data: view})

	return view, nil
}

func (s *MessageService) HandleSend(c *gin.Context) {
	var json struct {
		ChannelID int64  `json:"channel_id" binding:"required"`
		UserID    int64  `json:"user_id" binding:"required"`
		Content   string `json:"content"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	view, err := s.PostMessage(c.Request.Context(), json.ChannelID, json.UserID, json.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyContent):
			c.JSON(400, gin.H{"error": "Message content is required"})
		case errors.Is(err, ErrChannelNotFound):
			c.JSON(404, gin.H{"error": "Channel not found"})
		case errors.Is(err, ErrUserNotFound):
			c.JSON(404, gin.H{"error": "User not found"})
		case errors.Is(err, ErrNotMember):
			c.JSON(403, gin.H{"error": "You are not a member of this server"})
		default:
			c.JSON(500, gin.H{"error": "Failed to send message"})
		}
		return
	}

	c.JSON(201, gin.H{"message": "Message sent", "data": view})
}

func HandleGetMessages(c *gin.Context) {
	channelID := c.Param("channel_id")

	rows, err := db.DB.Query(
		`SELECT messages.id, messages.content, messages.created_at, users.username
		 FROM messages
		 JOIN users ON messages.user_id = users.id
		 WHERE messages.channel_id = ?
		 ORDER BY messages.created_at ASC, messages.id ASC`, channelID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error extracting messages"})
		return
	}
	defer rows.Close()

	messages := []MessageView{}
	for rows.Next() {
		var view MessageView
		if err := rows.Scan(&view.ID, &view.Content, &view.CreatedAt, &view.Username); err != nil {
			fmt.Println("Error scanning message:", err)
			continue
		}
		messages = append(messages, view)
	}

	c.JSON(200, messages)
}
