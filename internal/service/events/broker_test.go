package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lexdesk/backend/internal/service/lifecycle"
)

func TestBrokerFiltersByFeature(t *testing.T) {
	b := NewBroker(4, zerolog.Nop())
	chat, stopChat := b.Subscribe("chat")
	defer stopChat()
	all, stopAll := b.Subscribe("")
	defer stopAll()

	b.Publish(lifecycle.Event{Feature: "summary", Phase: lifecycle.PhasePending})
	b.Publish(lifecycle.Event{Feature: "chat", Phase: lifecycle.PhasePending})

	got := <-chat
	assert.Equal(t, "chat", got.Feature)
	assert.Len(t, all, 2)
	assert.Len(t, chat, 0)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker(1, zerolog.Nop())
	ch, stop := b.Subscribe("chat")
	defer stop()

	b.Publish(lifecycle.Event{Feature: "chat", Phase: lifecycle.PhasePending})
	b.Publish(lifecycle.Event{Feature: "chat", Phase: lifecycle.PhaseIdle})

	got := <-ch
	assert.Equal(t, lifecycle.PhasePending, got.Phase)
	assert.Len(t, ch, 0)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(0, zerolog.Nop())
	ch, stop := b.Subscribe("")
	require.Equal(t, 1, b.Subscribers())

	stop()
	stop()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, b.Subscribers())

	b.Publish(lifecycle.Event{Feature: "chat"})
}
