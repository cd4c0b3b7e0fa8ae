package community

import (
	"database/sql"
	"fmt"

	"concord/db"
	"concord/types"

	"github.com/gin-gonic/gin"
)

func HandleCreateChannel(c *gin.Context) {
	var json struct {
		Name     string `json:"name" binding:"required"`
		ServerID int64  `json:"server_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var channel types.Channel
	query := `INSERT INTO channels (name, server_id) VALUES (?, ?) RETURNING id, name, server_id`
	err := db.DB.QueryRow(query, json.Name, json.ServerID).Scan(&channel.ID, &channel.Name, &channel.ServerID)
	if err != nil {
		if err == sql.ErrNoRows || isForeignKeyError(err) {
			c.JSON(404, gin.H{"error": "Server not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Database error inserting channel data"})
		return
	}

	c.JSON(201, gin.H{"message": "Channel created", "channel": channel})
}

func HandleListChannels(c *gin.Context) {
	serverID := c.Param("server_id")

	rows, err := db.DB.Query(`SELECT id, name, server_id FROM channels WHERE server_id = ?`, serverID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error extracting channels"})
		return
	}
	defer rows.Close()

	channels := []types.Channel{}
	for rows.Next() {
		var channel types.Channel
		if err := rows.Scan(&channel.ID, &channel.Name, &channel.ServerID); err != nil {
			fmt.Println("Error scanning channel:", err)
			continue
		}
		channels = append(channels, channel)
	}

	c.JSON(200, channels)
}
