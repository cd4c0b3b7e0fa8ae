package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	sub := &fakeSubscriber{}

	registry.Join(sub, 42)
	registry.Join(sub, 42)

	require.Equal(t, 1, registry.SubscriberCount(42))

	registry.Broadcast(42, WSMessage{Type: "new-message", Data: "hello"})
	require.Len(t, sub.messages(), 1, "double join must not cause duplicate delivery")
}

func TestBroadcastReachesOnlyChannelSubscribers(t *testing.T) {
	registry := NewRegistry()
	subB := &fakeSubscriber{}
	subC := &fakeSubscriber{}
	subD := &fakeSubscriber{}

	registry.Join(subB, 42)
	registry.Join(subC, 42)
	registry.Join(subD, 7)

	registry.Broadcast(42, WSMessage{Type: "new-message", Data: "hello"})

	require.Len(t, subB.messages(), 1)
	require.Len(t, subC.messages(), 1)
	require.Empty(t, subD.messages(), "subscriber of another channel must receive nothing")
}

func TestLeaveIsNoOpWhenAbsent(t *testing.T) {
	registry := NewRegistry()
	sub := &fakeSubscriber{}

	registry.Leave(sub, 42)
	require.Equal(t, 0, registry.SubscriberCount(42))

	registry.Join(sub, 42)
	registry.Leave(sub, 42)
	registry.Leave(sub, 42)
	require.Equal(t, 0, registry.SubscriberCount(42))

	registry.Broadcast(42, WSMessage{Type: "new-message", Data: "hello"})
	require.Empty(t, sub.messages())
}

func TestSessionMayJoinMultipleChannels(t *testing.T) {
	registry := NewRegistry()
	sub := &fakeSubscriber{}

	registry.Join(sub, 42)
	registry.Join(sub, 7)

	registry.Broadcast(42, WSMessage{Type: "new-message", Data: "a"})
	registry.Broadcast(7, WSMessage{Type: "new-message", Data: "b"})
	require.Len(t, sub.messages(), 2)

	registry.LeaveAll(sub)
	require.Equal(t, 0, registry.SubscriberCount(42))
	require.Equal(t, 0, registry.SubscriberCount(7))
}

// A subscriber whose Deliver mutates the registry must not deadlock or
// corrupt the broadcast iteration.
type leavingSubscriber struct {
	registry *Registry
	victim   Subscriber
	received int
}

func (l *leavingSubscriber) Deliver(msg WSMessage) {
	l.received++
	l.registry.Leave(l.victim, 42)
}

func TestBroadcastSurvivesConcurrentLeave(t *testing.T) {
	registry := NewRegistry()
	other := &fakeSubscriber{}
	leaver := &leavingSubscriber{registry: registry, victim: other}

	registry.Join(leaver, 42)
	registry.Join(other, 42)

	registry.Broadcast(42, WSMessage{Type: "new-message", Data: "x"})

	// Both were subscribed when the snapshot was taken; the leave takes
	// effect for subsequent broadcasts only.
	require.Equal(t, 1, leaver.received)
	require.Equal(t, 1, registry.SubscriberCount(42))

	registry.Broadcast(42, WSMessage{Type: "new-message", Data: "y"})
	require.Len(t, other.messages(), 1)
}

func TestDeadSubscriberDoesNotBlockOthers(t *testing.T) {
	registry := NewRegistry()

	// A session whose WritePump is gone and whose queue is full: Deliver
	// must drop instead of blocking the broadcast loop.
	dead := NewSession(nil)
	for i := 0; i < cap(dead.SendQueue); i++ {
		dead.SendQueue <- WSMessage{Type: "filler"}
	}
	alive := &fakeSubscriber{}

	registry.Join(dead, 42)
	registry.Join(alive, 42)

	done := make(chan struct{})
	go func() {
		registry.Broadcast(42, WSMessage{Type: "new-message", Data: "hello"})
		close(done)
	}()

	select {
	case <-done:
	case <-timeout(t):
		t.Fatal("broadcast blocked on a dead subscriber")
	}
	require.Len(t, alive.messages(), 1)
}
