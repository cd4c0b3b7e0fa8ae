package chat

import "sync"

// WSMessage is the envelope for everything pushed over a socket.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Subscriber is an opaque handle to one connected session. Deliver must not
// block; a slow or dead subscriber is its own problem.
type Subscriber interface {
	Deliver(msg WSMessage)
}

// Registry maps channel ids to the live set of subscribed sessions. State is
// process-local and rebuilds to empty on restart; reconnecting clients
// re-issue their joins.
type Registry struct {
	mu    sync.Mutex
	rooms map[int64]map[Subscriber]struct{}
	subs  map[Subscriber]map[int64]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]map[Subscriber]struct{}),
		subs:  make(map[Subscriber]map[int64]struct{}),
	}
}

// Join is idempotent. A session may sit in several channels at once; clients
// normally leave before joining the next channel, but the registry does not
// depend on that.
func (r *Registry) Join(sub Subscriber, channelID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[channelID]
	if !ok {
		room = make(map[Subscriber]struct{})
		r.rooms[channelID] = room
	}
	room[sub] = struct{}{}

	channels, ok := r.subs[sub]
	if !ok {
		channels = make(map[int64]struct{})
		r.subs[sub] = channels
	}
	channels[channelID] = struct{}{}
}

// Leave is a no-op when the session is not in the channel.
func (r *Registry) Leave(sub Subscriber, channelID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sub, channelID)
}

// LeaveAll removes the session from every channel it is subscribed to.
// Called on transport close so a reconnect cycle leaves nothing behind.
func (r *Registry) LeaveAll(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channelID := range r.subs[sub] {
		r.leaveLocked(sub, channelID)
	}
}

func (r *Registry) leaveLocked(sub Subscriber, channelID int64) {
	if room, ok := r.rooms[channelID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(r.rooms, channelID)
		}
	}
	if channels, ok := r.subs[sub]; ok {
		delete(channels, channelID)
		if len(channels) == 0 {
			delete(r.subs, sub)
		}
	}
}

// Broadcast delivers msg to every current subscriber of the channel. The set
// is snapshotted under the lock and delivery happens outside it, so a
// concurrent leave cannot corrupt iteration and Deliver may call back into
// the registry.
func (r *Registry) Broadcast(channelID int64, msg WSMessage) {
	r.mu.Lock()
	room := r.rooms[channelID]
	snapshot := make([]Subscriber, 0, len(room))
	for sub := range room {
		snapshot = append(snapshot, sub)
	}
	r.mu.Unlock()

	for _, sub := range snapshot {
		sub.Deliver(msg)
	}
}

// SubscriberCount reports how many sessions are in the channel.
func (r *Registry) SubscriberCount(channelID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[channelID])
}
