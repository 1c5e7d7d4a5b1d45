package channel

import (
	"testing"

	"orderflow/models"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub[models.ConnectivityStatus]("connectivity", 4)
	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Publish(models.ConnectivityConnected)

	if got := <-a; got != models.ConnectivityConnected {
		t.Errorf("subscriber a got %q", got)
	}
	if got := <-b; got != models.ConnectivityConnected {
		t.Errorf("subscriber b got %q", got)
	}
}

func TestHubPreservesOrderPerSubscriber(t *testing.T) {
	hub := NewHub[int]("test", 8)
	sub := hub.Subscribe()

	for i := 0; i < 5; i++ {
		hub.Publish(i)
	}
	for i := 0; i < 5; i++ {
		if got := <-sub; got != i {
			t.Fatalf("event %d delivered as %d", i, got)
		}
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub[int]("test", 1)
	slow := hub.Subscribe()

	// One event fits the buffer, the rest must be dropped, not block.
	for i := 0; i < 10; i++ {
		hub.Publish(i)
	}

	if got := <-slow; got != 0 {
		t.Errorf("first delivered event = %d", got)
	}

	stats := hub.Stats()
	if stats.Published != 10 {
		t.Errorf("published = %d", stats.Published)
	}
	if stats.Dropped != 9 {
		t.Errorf("dropped = %d, want 9", stats.Dropped)
	}
}

func TestNewChannelsAllocatesAllHubs(t *testing.T) {
	c := NewChannels(4, 4, 4)
	defer c.Close()

	if c.Books == nil || c.Trades == nil || c.Orders == nil || c.Positions == nil || c.Connectivity == nil {
		t.Fatal("missing hub in channel aggregate")
	}
}
