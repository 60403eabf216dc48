package services_test

import (
	"testing"
	"time"

	"talentpassport/internal/services"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNotifierBroadcastReachesAllObservers(t *testing.T) {
	n := services.NewNotifier(zap.NewNop())

	first := make(chan services.ProgressUpdate, 1)
	second := make(chan services.ProgressUpdate, 1)
	n.Register(&chanObserver{ch: first})
	n.Register(&chanObserver{ch: second})

	n.Broadcast(services.ProgressUpdate{UserID: 7, SkillName: "go", Level: 2})

	for _, ch := range []chan services.ProgressUpdate{first, second} {
		select {
		case update := <-ch:
			assert.Equal(t, uint(7), update.UserID)
			assert.Equal(t, 2, update.Level)
		case <-time.After(2 * time.Second):
			t.Fatal("observer did not receive the broadcast")
		}
	}
}

func TestNotifierUnregisterStopsDelivery(t *testing.T) {
	n := services.NewNotifier(zap.NewNop())

	ch := make(chan services.ProgressUpdate, 1)
	unregister := n.Register(&chanObserver{ch: ch})
	unregister()

	n.Broadcast(services.ProgressUpdate{UserID: 7})

	select {
	case <-ch:
		t.Fatal("unregistered observer still received the broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}
