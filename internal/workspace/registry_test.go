package workspace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventdesk/eventdesk/internal/confirm"
	"github.com/eventdesk/eventdesk/internal/notify"
	"github.com/eventdesk/eventdesk/internal/shared"
)

func TestAttachCreatesOnceAndTouches(t *testing.T) {
	reg := NewRegistry(Factory{})
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return clock }

	first, err := reg.Attach("s1")
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	second, err := reg.Attach("s1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, clock, second.LastSeen())
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Attach("")
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestWorkspacesAreIsolated(t *testing.T) {
	reg := NewRegistry(Factory{})
	a, err := reg.Attach("a")
	require.NoError(t, err)
	b, err := reg.Attach("b")
	require.NoError(t, err)

	a.Loading.SetLoading("save", true)
	a.Notifications.ShowInfo("only a", "")

	assert.False(t, b.Loading.IsLoading("save"))
	assert.Equal(t, 0, b.Notifications.Len())
}

func TestFactoryRegistersActionsPerSession(t *testing.T) {
	var seen []string
	reg := NewRegistry(Factory{
		RegisterAction: func(sessionID string, registry *confirm.Registry) error {
			return registry.Register("notifications.clear", func(ctx context.Context, action confirm.Action) error {
				seen = append(seen, sessionID)
				return nil
			})
		},
	})
	ws, err := reg.Attach("s1")
	require.NoError(t, err)

	_, err = ws.Confirmations.Confirm(confirm.Options{Title: "Clear?"}, confirm.Action{Tag: "notifications.clear"})
	require.NoError(t, err)
	outcome, err := ws.Confirmations.HandleConfirm(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Failed())
	assert.Equal(t, []string{"s1"}, seen)
}

func TestFactoryErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	reg := NewRegistry(Factory{
		RegisterAction: func(string, *confirm.Registry) error { return boom },
	})
	_, err := reg.Attach("s1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, reg.Len())
}

func TestDetachClosesWorkspace(t *testing.T) {
	reg := NewRegistry(Factory{})
	ws, err := reg.Attach("s1")
	require.NoError(t, err)
	ws.Notifications.ShowInfo("pending", "")

	reg.Detach("s1")
	reg.Detach("s1")
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, ws.Notifications.Len())
	_, ok := reg.Lookup("s1")
	assert.False(t, ok)
}

func TestSweepEvictsIdleWorkspaces(t *testing.T) {
	reg := NewRegistry(Factory{})
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return clock }

	_, err := reg.Attach("old")
	require.NoError(t, err)
	clock = clock.Add(20 * time.Minute)
	_, err = reg.Attach("fresh")
	require.NoError(t, err)
	clock = clock.Add(5 * time.Minute)

	assert.Equal(t, 1, reg.Sweep(15*time.Minute))
	_, ok := reg.Lookup("old")
	assert.False(t, ok)
	_, ok = reg.Lookup("fresh")
	assert.True(t, ok)
}

func TestRunStopsOnCancel(t *testing.T) {
	reg := NewRegistry(Factory{})
	_, err := reg.Attach("s1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx, time.Hour, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
	assert.Equal(t, 0, reg.Len())
}

func TestDrainFlashes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})
	sess.AddFlash(shared.FlashMessage{Kind: "odd", Message: "Unknown kind"})

	reg := NewRegistry(Factory{})
	ws, err := reg.Attach(sess.ID)
	require.NoError(t, err)
	ws.DrainFlashes(sess)

	items := ws.Notifications.List()
	require.Len(t, items, 2)
	assert.Equal(t, notify.SeveritySuccess, items[0].Severity)
	assert.Equal(t, "Welcome back", items[0].Title)
	assert.Equal(t, notify.SeverityInfo, items[1].Severity)
	assert.Empty(t, sess.PopFlashes())
}

func TestWorkspaceContextRoundTrip(t *testing.T) {
	reg := NewRegistry(Factory{})
	ws, err := reg.Attach("ctx")
	require.NoError(t, err)

	ctx := ContextWithWorkspace(context.Background(), ws)
	assert.Same(t, ws, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestLiveCountFollowsRegistry(t *testing.T) {
	var counts []int
	reg := NewRegistry(Factory{LiveCount: func(n int) { counts = append(counts, n) }})
	_, err := reg.Attach("a")
	require.NoError(t, err)
	_, err = reg.Attach("a")
	require.NoError(t, err)
	_, err = reg.Attach("b")
	require.NoError(t, err)
	reg.Detach("a")
	reg.Detach("missing")
	assert.Equal(t, []int{1, 2, 1}, counts)
}

func TestLiveCountSettlesOnFinalSizeUnderConcurrency(t *testing.T) {
	var last atomic.Int64
	reg := NewRegistry(Factory{LiveCount: func(n int) { last.Store(int64(n)) }})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "s" + strconv.Itoa(i)
			_, err := reg.Attach(id)
			assert.NoError(t, err)
			if i%2 == 0 {
				reg.Detach(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 32, reg.Len())
	assert.EqualValues(t, reg.Len(), last.Load(), "gauge must report the final live count")
}
