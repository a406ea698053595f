package loading

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished map[string]error
}

func (o *recordingObserver) OperationStarted(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, key)
}

func (o *recordingObserver) OperationFinished(key string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished == nil {
		o.finished = map[string]error{}
	}
	o.finished[key] = err
}

func TestIsLoadingDefaultsToFalse(t *testing.T) {
	tracker := NewTracker()
	assert.False(t, tracker.IsLoading("never-seen"))
}

func TestSetLoadingIsPerKey(t *testing.T) {
	tracker := NewTracker()
	tracker.SetLoading("save", true)
	assert.True(t, tracker.IsLoading("save"))
	assert.False(t, tracker.IsLoading("delete"))

	tracker.SetLoading("save", false)
	assert.False(t, tracker.IsLoading("save"))
}

func TestWithLoadingClearsFlagOnSuccess(t *testing.T) {
	tracker := NewTracker()
	var during bool
	err := tracker.WithLoading(context.Background(), "save", func(ctx context.Context) error {
		during = tracker.IsLoading("save")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, during)
	assert.False(t, tracker.IsLoading("save"))
}

func TestWithLoadingClearsFlagAndPropagatesError(t *testing.T) {
	tracker := NewTracker()
	boom := errors.New("boom")
	err := tracker.WithLoading(context.Background(), "save", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, tracker.IsLoading("save"))
}

func TestWithLoadingClearsFlagOnPanic(t *testing.T) {
	tracker := NewTracker()
	assert.Panics(t, func() {
		_ = tracker.WithLoading(context.Background(), "save", func(ctx context.Context) error {
			panic("handler exploded")
		})
	})
	assert.False(t, tracker.IsLoading("save"))
}

func TestDistinctKeysDoNotInterfere(t *testing.T) {
	tracker := NewTracker()
	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- tracker.WithLoading(context.Background(), "export", func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	require.NoError(t, tracker.WithLoading(context.Background(), "import", func(ctx context.Context) error {
		return nil
	}))
	assert.False(t, tracker.IsLoading("import"))
	assert.True(t, tracker.IsLoading("export"))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, tracker.IsLoading("export"))
}

func TestSameKeyOverlapIsLastWriterWins(t *testing.T) {
	tracker := NewTracker()
	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- tracker.WithLoading(context.Background(), "sync", func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	require.NoError(t, tracker.WithLoading(context.Background(), "sync", func(ctx context.Context) error {
		return nil
	}))
	// The slow call is still running but the flag already reads idle.
	assert.False(t, tracker.IsLoading("sync"))

	close(release)
	require.NoError(t, <-done)
}

func TestWithExclusiveLoadingKeepsFlagForNewestCall(t *testing.T) {
	tracker := NewTracker()
	releaseNewer := make(chan struct{})
	enteredNewer := make(chan struct{})
	done := make(chan error, 1)

	releaseOlder := make(chan struct{})
	enteredOlder := make(chan struct{})
	olderDone := make(chan error, 1)
	go func() {
		olderDone <- tracker.WithExclusiveLoading(context.Background(), "sync", func(ctx context.Context) error {
			close(enteredOlder)
			<-releaseOlder
			return nil
		})
	}()
	<-enteredOlder

	go func() {
		done <- tracker.WithExclusiveLoading(context.Background(), "sync", func(ctx context.Context) error {
			close(enteredNewer)
			<-releaseNewer
			return nil
		})
	}()
	<-enteredNewer

	close(releaseOlder)
	require.NoError(t, <-olderDone)
	assert.True(t, tracker.IsLoading("sync"), "older completion must not clear the newer call's flag")

	close(releaseNewer)
	require.NoError(t, <-done)
	assert.False(t, tracker.IsLoading("sync"))
}

func TestSnapshotIsNotMutatedLater(t *testing.T) {
	tracker := NewTracker()
	tracker.SetLoading("a", true)
	snap := tracker.Snapshot()
	tracker.SetLoading("a", false)
	tracker.SetLoading("b", true)

	assert.Equal(t, map[string]bool{"a": true}, snap)
	assert.Equal(t, map[string]bool{"a": false, "b": true}, tracker.Snapshot())
}

func TestObserverSeesLifecycle(t *testing.T) {
	observer := &recordingObserver{}
	tracker := NewTracker(WithObserver(observer))
	boom := errors.New("boom")

	_ = tracker.WithLoading(context.Background(), "ok", func(ctx context.Context) error { return nil })
	_ = tracker.WithLoading(context.Background(), "fail", func(ctx context.Context) error { return boom })

	assert.Equal(t, []string{"ok", "fail"}, observer.started)
	assert.NoError(t, observer.finished["ok"])
	assert.ErrorIs(t, observer.finished["fail"], boom)
}
