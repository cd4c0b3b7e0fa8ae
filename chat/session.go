package chat

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Session is one live websocket connection. It carries no verified identity;
// the user id is whatever the client claimed on join.
type Session struct {
	Conn      *websocket.Conn
	UserID    int64
	SendQueue chan WSMessage
	Done      chan struct{}
	closeOnce sync.Once
}

func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		Conn:      conn,
		SendQueue: make(chan WSMessage, 64),
		Done:      make(chan struct{}),
	}
}

func (s *Session) WritePump() {
	defer s.Conn.Close()

	for {
		select {
		case msg, ok := <-s.SendQueue:
			if !ok {
				return
			}
			if err := s.Conn.WriteJSON(msg); err != nil {
				log.Println("WritePump error:", err)
				return
			}
		case <-s.Done:
			return
		}
	}
}

// Deliver enqueues without blocking. If the queue is full the session is too
// slow to keep up and the message is dropped for that session only.
func (s *Session) Deliver(msg WSMessage) {
	select {
	case <-s.Done:
	case s.SendQueue <- msg:
	default:
		log.Println("Deliver: send queue full, dropping message")
	}
}

// Close tears down the write side. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.Done)
	})
}
