package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventNounCreated, Message: "n1"})

	select {
	case e := <-sub:
		assert.Equal(t, EventNounCreated, e.Type)
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscriberCount(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	assert.Equal(t, 0, b.SubscriberCount())
	sub := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestProgressReporterComputesThroughput(t *testing.T) {
	var last Progress
	r := NewProgressReporter("rebuild", 100, func(p Progress) { last = p })
	time.Sleep(10 * time.Millisecond)
	r.Report(10, 1024, "v10")

	require.Equal(t, "rebuild", last.Stage)
	assert.EqualValues(t, 10, last.Processed)
	assert.EqualValues(t, 100, last.Total)
	assert.Greater(t, last.Throughput, 0.0)
}

func TestProgressReporterWithNilCallbackIsSafe(t *testing.T) {
	r := NewProgressReporter("compaction", 10, nil)
	assert.NotPanics(t, func() { r.Report(1, 0, "x") })
}
