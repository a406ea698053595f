package notify

import (
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock fires armed callbacks when simulated time is advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) schedule(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now + d, fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && timer.at <= c.now {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, timer := range due {
		timer.fn()
	}
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			n++
		}
	}
	return n
}

func newTestQueue() (*Queue, *fakeClock) {
	clock := &fakeClock{}
	return NewQueue(WithScheduler(clock.schedule)), clock
}

func boolPtr(v bool) *bool { return &v }

func TestAddAppliesDefaults(t *testing.T) {
	q, clock := newTestQueue()
	id := q.Add(Notice{Title: "Saved"})

	items := q.List()
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, SeverityInfo, items[0].Severity)
	assert.Equal(t, DefaultDuration, items[0].Duration)
	assert.True(t, items[0].AutoClose)
	assert.Equal(t, 1, clock.active())
}

func TestAddKeepsInsertionOrderAndUniqueIDs(t *testing.T) {
	q, _ := newTestQueue()
	first := q.ShowSuccess("one", "")
	second := q.ShowError("two", "")
	third := q.ShowWarning("three", "")

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, second, third)
	items := q.List()
	require.Len(t, items, 3)
	assert.Equal(t, []string{first, second, third}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, SeverityError, items[1].Severity)
}

func TestRemoveRestoresLengthAndIsIdempotent(t *testing.T) {
	q, clock := newTestQueue()
	q.ShowInfo("existing", "")
	before := q.Len()

	id := q.ShowInfo("temporary", "")
	q.Remove(id)
	assert.Equal(t, before, q.Len())
	assert.Equal(t, 1, clock.active(), "removing an entry cancels its timer")

	q.Remove(id)
	q.Remove("does-not-exist")
	assert.Equal(t, before, q.Len())
}

func TestAutoCloseRemovesExactlyOnce(t *testing.T) {
	q, clock := newTestQueue()
	removals := 0
	q.Add(Notice{Title: "expiring", Duration: 2 * time.Second, AutoClose: boolPtr(true)})
	id := q.List()[0].ID

	// Count removal callbacks through the timer itself.
	clock.mu.Lock()
	original := clock.timers[0].fn
	clock.timers[0].fn = func() {
		removals++
		original()
	}
	clock.mu.Unlock()

	clock.advance(1999 * time.Millisecond)
	assert.Equal(t, 1, q.Len())

	clock.advance(time.Millisecond)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 1, removals)

	clock.advance(10 * time.Second)
	assert.Equal(t, 1, removals)
	q.Remove(id)
	assert.Equal(t, 0, q.Len())
}

func TestTimersAreNotRearmedByLaterInsertions(t *testing.T) {
	q, clock := newTestQueue()
	q.Add(Notice{Title: "older", Duration: 3 * time.Second})

	clock.advance(2 * time.Second)
	q.Add(Notice{Title: "newer", Duration: 3 * time.Second})

	clock.advance(time.Second)
	items := q.List()
	require.Len(t, items, 1)
	assert.Equal(t, "newer", items[0].Title)

	clock.advance(2 * time.Second)
	assert.Equal(t, 0, q.Len())
}

func TestStickyNotificationHasNoTimer(t *testing.T) {
	q, clock := newTestQueue()
	q.Add(Notice{Title: "sticky", AutoClose: boolPtr(false)})
	assert.Equal(t, 0, clock.active())

	clock.advance(time.Hour)
	assert.Equal(t, 1, q.Len())
}

func TestClearAllCancelsTimers(t *testing.T) {
	q, clock := newTestQueue()
	q.ShowInfo("a", "")
	q.ShowInfo("b", "")
	require.Equal(t, 2, clock.active())

	q.ClearAll()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, clock.active())

	q.ClearAll()
	assert.Equal(t, 0, q.Len())
}

func TestCloseStopsArmingTimers(t *testing.T) {
	q, clock := newTestQueue()
	q.ShowInfo("a", "")
	q.Close()
	assert.Equal(t, 0, clock.active())

	q.ShowInfo("after close", "")
	assert.Equal(t, 0, clock.active())
}

func TestListReturnsCopy(t *testing.T) {
	q, _ := newTestQueue()
	q.ShowInfo("a", "")
	items := q.List()
	items[0].Title = "mutated"
	assert.Equal(t, "a", q.List()[0].Title)
}

func TestRealSchedulerExpires(t *testing.T) {
	q := NewQueue()
	q.Add(Notice{Title: "fast", Duration: 10 * time.Millisecond})
	assert.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestValidSeverity(t *testing.T) {
	assert.True(t, ValidSeverity(SeverityWarning))
	assert.False(t, ValidSeverity("fatal"))
}

func TestNotificationJSONUsesMilliseconds(t *testing.T) {
	n := Notification{ID: "n1", Severity: SeverityInfo, Title: "Saved", Duration: 5 * time.Second, AutoClose: true}
	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.EqualValues(t, 5000, fields["durationMs"])
	assert.NotContains(t, fields, "duration")
	assert.Equal(t, "Saved", fields["title"])

	var back Notification
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 5*time.Second, back.Duration)
	assert.Equal(t, "n1", back.ID)
}
