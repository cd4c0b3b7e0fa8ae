package community

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"concord/db"
	"concord/types"

	"github.com/gin-gonic/gin"
)

// How many times server creation retries a colliding invite code before
// giving up. Collisions are rare (36^6 codes) but the column is UNIQUE.
const inviteCodeAttempts = 5

func HandleCreateServer(c *gin.Context) {
	var json struct {
		Name   string `json:"name" binding:"required"`
		UserID int64  `json:"user_id"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	ownerID := c.GetInt64("userID")

	var server types.Server
	for attempt := 0; ; attempt++ {
		inviteCode, err := NewInviteCode()
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate invite code"})
			return
		}

		query := `INSERT INTO servers (name, invite_code, owner_id) VALUES (?, ?, ?) RETURNING id, name, invite_code, owner_id`
		err = db.DB.QueryRow(query, json.Name, inviteCode, ownerID).
			Scan(&server.ID, &server.Name, &server.InviteCode, &server.OwnerID)
		if err == nil {
			break
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: servers.invite_code") && attempt < inviteCodeAttempts {
			continue
		}
		c.JSON(500, gin.H{"error": "Database error inserting server data"})
		return
	}

	// The owner is a member of their own server.
	joinedAt := time.Now().UTC().Format(time.RFC3339)
	_, err := db.DB.Exec(`INSERT INTO server_members (server_id, user_id, joined_at) VALUES (?, ?, ?)`,
		server.ID, ownerID, joinedAt)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error inserting server member"})
		return
	}

	c.JSON(201, gin.H{
		"message":     "Server created",
		"server_id":   server.ID,
		"invite_code": server.InviteCode,
	})
}

func HandleGetServerInvite(c *gin.Context) {
	serverID := c.Param("id")

	var inviteCode string
	err := db.DB.QueryRow(`SELECT invite_code FROM servers WHERE id = ?`, serverID).Scan(&inviteCode)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(404, gin.H{"error": "Server not found"})
		} else {
			c.JSON(500, gin.H{"error": "Database error extracting server data"})
		}
		return
	}

	c.JSON(200, gin.H{"invite_code": inviteCode})
}

func HandleJoinServer(c *gin.Context) {
	var json struct {
		InviteCode string `json:"invite_code" binding:"required"`
		UserID     int64  `json:"user_id"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")

	var serverID int64
	err := db.DB.QueryRow(`SELECT id FROM servers WHERE invite_code = ?`, json.InviteCode).Scan(&serverID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(404, gin.H{"error": "Invalid invite code"})
		} else {
			c.JSON(500, gin.H{"error": "Database error checking invite code"})
		}
		return
	}

	joinedAt := time.Now().UTC().Format(time.RFC3339)
	_, err = db.DB.Exec(`INSERT INTO server_members (server_id, user_id, joined_at) VALUES (?, ?, ?)`,
		serverID, userID, joinedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			c.JSON(400, gin.H{"error": "You are already in this server"})
			return
		}
		c.JSON(500, gin.H{"error": "Database error joining server"})
		return
	}

	c.JSON(200, gin.H{"message": "Joined server", "server_id": serverID})
}

func HandleListServers(c *gin.Context) {
	userID := c.Param("user_id")

	rows, err := db.DB.Query(
		`SELECT servers.id, servers.name, servers.invite_code, servers.owner_id FROM servers
		 JOIN server_members ON servers.id = server_members.server_id
		 WHERE server_members.user_id = ?`, userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error extracting servers"})
		return
	}
	defer rows.Close()

	servers := []types.Server{}
	for rows.Next() {
		var server types.Server
		if err := rows.Scan(&server.ID, &server.Name, &server.InviteCode, &server.OwnerID); err != nil {
			fmt.Println("Error scanning server:", err)
			continue
		}
		servers = append(servers, server)
	}

	c.JSON(200, servers)
}

func HandleListServerMembers(c *gin.Context) {
	serverID := c.Param("id")

	var ownerID int64
	err := db.DB.QueryRow(`SELECT owner_id FROM servers WHERE id = ?`, serverID).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(404, gin.H{"error": "Server not found"})
		} else {
			c.JSON(500, gin.H{"error": "Database error extracting server data"})
		}
		return
	}

	rows, err := db.DB.Query(
		`SELECT users.id, users.username, server_members.joined_at
		 FROM server_members
		 JOIN users ON server_members.user_id = users.id
		 WHERE server_members.server_id = ?`, serverID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error extracting server members"})
		return
	}
	defer rows.Close()

	members := []types.ServerMember{}
	for rows.Next() {
		var member types.ServerMember
		var joinedAt sql.NullString
		if err := rows.Scan(&member.ID, &member.Username, &joinedAt); err != nil {
			fmt.Println("Error scanning server member:", err)
			continue
		}
		member.JoinedAt = formatJoinDate(joinedAt.String)
		member.IsOwner = member.ID == ownerID
		members = append(members, member)
	}

	c.JSON(200, members)
}

func formatJoinDate(raw string) string {
	if raw == "" {
		return "unknown"
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}
