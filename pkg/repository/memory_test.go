package repository_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/repository"
	"github.com/m-mizutani/gt"
)

func appendTurn(m *repository.Memory, id model.ConversationID, n int) {
	m.Append(id, model.NewUserMessage(fmt.Sprintf("q%d", n)), model.NewModelMessage(fmt.Sprintf("a%d", n)))
}

func TestMemoryGet(t *testing.T) {
	m := repository.NewMemory(0)

	t.Run("absent conversation is empty", func(t *testing.T) {
		h := m.Get("unknown")
		gt.True(t, h != nil)
		gt.A(t, h).Length(0)
		gt.Equal(t, m.Len(), 0)
	})

	t.Run("repeated reads are identical", func(t *testing.T) {
		appendTurn(m, "c1", 1)
		first := m.Get("c1")
		second := m.Get("c1")
		gt.Equal(t, first, second)
	})

	t.Run("returned history is a copy", func(t *testing.T) {
		h := m.Get("c1")
		h[0].Parts[0].Text = "mutated"
		_ = append(h, model.NewUserMessage("extra"))

		stored := m.Get("c1")
		gt.A(t, stored).Length(2)
		gt.Equal(t, stored[0].Text(), "q1")
	})
}

func TestMemoryAppend(t *testing.T) {
	m := repository.NewMemory(0)

	appendTurn(m, "c1", 1)
	appendTurn(m, "c1", 2)

	h := m.Get("c1")
	gt.A(t, h).Length(4)
	gt.True(t, h.Alternates())
	gt.Equal(t, h[0].Text(), "q1")
	gt.Equal(t, h[1].Text(), "a1")
	gt.Equal(t, h[2].Text(), "q2")
	gt.Equal(t, h[3].Text(), "a2")
	gt.Equal(t, m.Len(), 1)
}

func TestMemoryEvictsOldestCreated(t *testing.T) {
	var evicted []model.ConversationID
	m := repository.NewMemory(0, repository.WithEvictHook(func(id model.ConversationID) {
		evicted = append(evicted, id)
	}))
	gt.Equal(t, m.Max(), repository.DefaultMaxConversations)

	for i := range 50 {
		appendTurn(m, model.ConversationID(fmt.Sprintf("c%02d", i)), i)
	}
	gt.Equal(t, m.Len(), 50)

	// Recent use of the oldest conversation does not protect it
	appendTurn(m, "c00", 99)
	gt.Equal(t, m.Len(), 50)

	appendTurn(m, "c50", 50)
	gt.Equal(t, m.Len(), 50)
	gt.A(t, m.Get("c00")).Length(0)
	gt.A(t, m.Get("c01")).Length(2)
	gt.A(t, m.Get("c50")).Length(2)
	gt.Equal(t, evicted, []model.ConversationID{"c00"})

	ids := m.IDs()
	gt.A(t, ids).Length(50)
	gt.Equal(t, ids[0], model.ConversationID("c01"))
	gt.Equal(t, ids[49], model.ConversationID("c50"))
}

func TestMemoryCapacity(t *testing.T) {
	m := repository.NewMemory(3)
	for i := range 10 {
		appendTurn(m, model.ConversationID(fmt.Sprintf("c%d", i)), i)
	}

	gt.Equal(t, m.Len(), 3)
	gt.Equal(t, m.IDs(), []model.ConversationID{"c7", "c8", "c9"})
}

func TestMemoryConcurrentAppend(t *testing.T) {
	m := repository.NewMemory(0)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			appendTurn(m, "shared", i)
		}(i)
	}
	wg.Wait()

	h := m.Get("shared")
	gt.A(t, h).Length(200)
	gt.True(t, h.Alternates())
}

func TestMemoryLock(t *testing.T) {
	m := repository.NewMemory(0)

	t.Run("same id is serialized", func(t *testing.T) {
		unlock := m.Lock("c1")

		acquired := make(chan struct{})
		go func() {
			release := m.Lock("c1")
			close(acquired)
			release()
		}()

		select {
		case <-acquired:
			t.Fatal("second lock acquired while first is held")
		case <-time.After(50 * time.Millisecond):
		}

		unlock()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second lock was not acquired after release")
		}
	})

	t.Run("different ids do not contend", func(t *testing.T) {
		unlock := m.Lock("c1")
		defer unlock()

		acquired := make(chan struct{})
		go func() {
			release := m.Lock("c2")
			close(acquired)
			release()
		}()

		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("lock on another id blocked")
		}
	})
}
