package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Gateway owns the connection lifecycle: accept, wire join/leave intents to
// the registry, and tear everything down on transport close.
type Gateway struct {
	registry *Registry
	authz    Authorizer
}

func NewGateway(registry *Registry, authz Authorizer) *Gateway {
	return &Gateway{registry: registry, authz: authz}
}

func decodeData[T any](raw interface{}) (T, error) {
	var data T
	bytes, err := json.Marshal(raw)
	if err != nil {
		return data, err
	}
	err = json.Unmarshal(bytes, &data)
	return data, err
}

type joinPayload struct {
	ChannelID int64 `json:"channel_id"`
	UserID    int64 `json:"user_id"`
}

// join-channel and leave-channel carry either a bare channel id or an object
// with channel_id (and optionally user_id).
func decodeJoinPayload(raw interface{}) (joinPayload, error) {
	switch v := raw.(type) {
	case float64:
		return joinPayload{ChannelID: int64(v)}, nil
	case string:
		var payload joinPayload
		_, err := fmt.Sscan(v, &payload.ChannelID)
		return payload, err
	default:
		return decodeData[joinPayload](raw)
	}
}

func (g *Gateway) HandleSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	conn.SetReadLimit(256 * 1024)
	defer conn.Close()

	session := NewSession(conn)
	go session.WritePump()

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(msgBytes, &wsMsg); err != nil {
			log.Println("Invalid message format:", err)
			continue
		}

		g.dispatch(session, wsMsg)
	}

	g.registry.LeaveAll(session)
	session.Close()
}

func (g *Gateway) dispatch(session *Session, wsMsg WSMessage) {
	switch wsMsg.Type {
	case "join-channel":
		payload, err := decodeJoinPayload(wsMsg.Data)
		if err != nil || payload.ChannelID == 0 {
			session.Deliver(WSMessage{Type: "error", Data: gin.H{"error": "Invalid join-channel data"}})
			return
		}
		if payload.UserID != 0 {
			session.UserID = payload.UserID
		}
		if err := g.authz.CanSubscribe(context.Background(), session.UserID, payload.ChannelID); err != nil {
			session.Deliver(WSMessage{Type: "error", Data: gin.H{"error": "Not allowed to join this channel"}})
			return
		}
		g.registry.Join(session, payload.ChannelID)
		session.Deliver(WSMessage{Type: "joined-channel", Data: payload.ChannelID})

	case "leave-channel":
		payload, err := decodeJoinPayload(wsMsg.Data)
		if err != nil || payload.ChannelID == 0 {
			session.Deliver(WSMessage{Type: "error", Data: gin.H{"error": "Invalid leave-channel data"}})
			return
		}
		g.registry.Leave(session, payload.ChannelID)
		session.Deliver(WSMessage{Type: "left-channel", Data: payload.ChannelID})

	default:
		log.Println("Unknown message type:", wsMsg.Type)
	}
}
