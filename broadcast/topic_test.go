package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopic_PublishOrder(t *testing.T) {
	topic := NewTopic[int]()
	var received []string
	topic.Subscribe(func(v int) { received = append(received, "first") })
	topic.Subscribe(func(v int) { received = append(received, "second") })

	topic.Publish(1)
	assert.EqualValues(t, []string{"first", "second"}, received)
	assert.EqualValues(t, 2, topic.Len())
}

func TestTopic_Unsubscribe(t *testing.T) {
	topic := NewTopic[SignedOut]()
	count := 0
	unsubscribe := topic.Subscribe(func(SignedOut) { count++ })
	other := topic.Subscribe(func(SignedOut) {})

	topic.Publish(NewSignedOut(ReasonForbidden))
	unsubscribe()
	unsubscribe()
	topic.Publish(NewSignedOut(ReasonForbidden))

	assert.EqualValues(t, 1, count)
	assert.EqualValues(t, 1, topic.Len())
	other()
	assert.EqualValues(t, 0, topic.Len())
}

func TestTopic_ReentrantListener(t *testing.T) {
	topic := NewTopic[int]()
	var unsubscribe func()
	calls := 0
	unsubscribe = topic.Subscribe(func(v int) {
		calls++
		unsubscribe()
		if v == 1 {
			topic.Publish(2)
		}
	})
	topic.Publish(1)
	assert.EqualValues(t, 1, calls)
}

func TestTopic_ConcurrentPublish(t *testing.T) {
	topic := NewTopic[int]()
	var mux sync.Mutex
	total := 0
	topic.Subscribe(func(v int) {
		mux.Lock()
		total += v
		mux.Unlock()
	})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topic.Publish(1)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 100, total)
}
