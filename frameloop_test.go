package vkr

import (
	"bytes"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMarker struct {
	id       int
	signal   chan struct{}
	released bool
	mu       sync.Mutex
}

func newMockMarker(id int, signaled bool) *mockMarker {
	m := &mockMarker{id: id, signal: make(chan struct{})}
	if signaled {
		close(m.signal)
	}
	return m
}

func (m *mockMarker) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		<-m.signal
		return nil
	}
	select {
	case <-m.signal:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

func (m *mockMarker) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
}

func (m *mockMarker) isReleased() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

type submitCall struct {
	index uint32
	after Marker
}

type mockEngine struct {
	mu sync.Mutex

	images      int
	next        uint32
	signaled    bool
	acquire     func() (Acquisition, error)
	submitErr   error
	presentErr  error
	recreateErr error

	submits   []submitCall
	recreates []RecreateReason
	markers   []*mockMarker
}

func (e *mockEngine) ImageCount() int { return e.images }

func (e *mockEngine) Recreate(reason RecreateReason) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recreates = append(e.recreates, reason)
	return e.recreateErr
}

func (e *mockEngine) Acquire(time.Duration) (Acquisition, error) {
	if e.acquire != nil {
		return e.acquire()
	}
	a := Acquisition{Index: e.next % uint32(e.images)}
	e.next++
	return a, nil
}

func (e *mockEngine) Submit(a Acquisition, after Marker) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitErr != nil {
		return e.submitErr
	}
	e.submits = append(e.submits, submitCall{index: a.Index, after: after})
	return nil
}

func (e *mockEngine) Present(a Acquisition) (Marker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := newMockMarker(len(e.markers), e.signaled)
	e.markers = append(e.markers, m)
	return m, e.presentErr
}

func (e *mockEngine) submitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.submits)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestFrameLoopPresents(t *testing.T) {
	e := &mockEngine{images: 3, signaled: true}
	l := NewFrameLoop(e, 0, quietLogger())

	for i := 0; i < 7; i++ {
		require.NoError(t, l.Frame())
	}

	assert.Equal(t, Idle, l.State())
	assert.Equal(t, Stats{Presented: 7}, l.Stats())
	require.Len(t, e.submits, 7)
	for i, s := range e.submits {
		assert.Equal(t, uint32(i%3), s.index)
	}
	assert.Empty(t, e.recreates)

	// markers of reused images were waited on and released
	for _, m := range e.markers[:4] {
		assert.True(t, m.isReleased())
	}
	for _, m := range e.markers[4:] {
		assert.False(t, m.isReleased())
	}
}

func TestFrameLoopChainsAfterPreviousFrame(t *testing.T) {
	e := &mockEngine{images: 3, signaled: true}
	l := NewFrameLoop(e, 0, quietLogger())

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Frame())
	}

	assert.Nil(t, e.submits[0].after)
	assert.Same(t, e.markers[0], e.submits[1].after)
	assert.Same(t, e.markers[1], e.submits[2].after)
}

func TestFrameLoopOutOfOrderAcquire(t *testing.T) {
	order := []uint32{1, 0, 1}
	e := &mockEngine{images: 2, signaled: true}
	e.acquire = func() (Acquisition, error) {
		i := order[0]
		order = order[1:]
		return Acquisition{Index: i}, nil
	}
	l := NewFrameLoop(e, 0, quietLogger())

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Frame())
	}
	// the previous frame is tracked independently of the acquired index
	assert.Same(t, e.markers[0], e.submits[1].after)
	assert.Same(t, e.markers[1], e.submits[2].after)
	assert.True(t, e.markers[0].isReleased())
}

func TestFrameLoopBlocksOnBusyImage(t *testing.T) {
	e := &mockEngine{images: 2}
	l := NewFrameLoop(e, 0, quietLogger())

	require.NoError(t, l.Frame())
	require.NoError(t, l.Frame())

	done := make(chan error, 1)
	go func() {
		done <- l.Frame()
	}()

	select {
	case <-done:
		t.Fatal("frame proceeded while image 0 was still in flight")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 2, e.submitCount())
	assert.Equal(t, Acquiring, l.State())

	close(e.markers[0].signal)
	require.NoError(t, <-done)
	assert.Equal(t, 3, e.submitCount())
	assert.True(t, e.markers[0].isReleased())
}

func TestFrameLoopWaitTimeoutIsFatal(t *testing.T) {
	e := &mockEngine{images: 1}
	l := NewFrameLoop(e, 20*time.Millisecond, quietLogger())

	require.NoError(t, l.Frame())
	err := l.Frame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceLost))
	assert.Len(t, e.submits, 1)
}

func TestFrameLoopAcquireOutOfDate(t *testing.T) {
	e := &mockEngine{images: 2, signaled: true}
	e.acquire = func() (Acquisition, error) {
		return Acquisition{}, errors.Wrap(ErrOutOfDate, "acquire next image")
	}
	l := NewFrameLoop(e, 0, quietLogger())

	require.NoError(t, l.Frame())
	assert.Equal(t, NeedsRecreate, l.State())
	assert.Empty(t, e.submits)
	assert.Empty(t, e.recreates)

	e.acquire = nil
	require.NoError(t, l.Frame())
	assert.Equal(t, []RecreateReason{RecreateOutOfDate}, e.recreates)
	assert.Len(t, e.submits, 1)
	assert.Equal(t, Idle, l.State())
	assert.Equal(t, uint64(1), l.Stats().Recreations)
}

func TestFrameLoopAcquireFailureIsFatal(t *testing.T) {
	e := &mockEngine{images: 2}
	e.acquire = func() (Acquisition, error) {
		return Acquisition{}, errors.New("surface lost")
	}
	l := NewFrameLoop(e, 0, quietLogger())
	assert.Error(t, l.Frame())
	assert.Empty(t, e.submits)
}

func TestFrameLoopSuboptimalAcquire(t *testing.T) {
	e := &mockEngine{images: 2, signaled: true}
	e.acquire = func() (Acquisition, error) {
		return Acquisition{Index: 0, Suboptimal: true}, nil
	}
	l := NewFrameLoop(e, 0, quietLogger())

	require.NoError(t, l.Frame())
	assert.Len(t, e.submits, 1, "the suboptimal frame still presents")
	assert.Equal(t, NeedsRecreate, l.State())
	assert.Empty(t, e.recreates)

	e.acquire = nil
	require.NoError(t, l.Frame())
	assert.Equal(t, []RecreateReason{RecreateOutOfDate}, e.recreates)
	assert.True(t, e.markers[0].isReleased(), "recreation drains every slot")
}

func TestFrameLoopPresentOutcomes(t *testing.T) {
	t.Run("suboptimal", func(t *testing.T) {
		e := &mockEngine{images: 2, signaled: true, presentErr: errors.Wrap(ErrSuboptimal, "queue present")}
		l := NewFrameLoop(e, 0, quietLogger())
		require.NoError(t, l.Frame())
		assert.Equal(t, NeedsRecreate, l.State())
		assert.Equal(t, uint64(1), l.Stats().Presented)
		assert.False(t, e.markers[0].isReleased())
	})

	t.Run("out of date", func(t *testing.T) {
		e := &mockEngine{images: 2, signaled: true, presentErr: errors.Wrap(ErrOutOfDate, "queue present")}
		l := NewFrameLoop(e, 0, quietLogger())
		require.NoError(t, l.Frame())
		assert.Equal(t, NeedsRecreate, l.State())
		assert.Equal(t, Stats{}, l.Stats())
		assert.True(t, e.markers[0].isReleased())
		assert.Nil(t, l.slots[0])
	})

	t.Run("other error drops the frame", func(t *testing.T) {
		e := &mockEngine{images: 2, signaled: true, presentErr: errors.New("queue present: surface busy")}
		l := NewFrameLoop(e, 0, quietLogger())
		require.NoError(t, l.Frame())
		require.NoError(t, l.Frame())
		assert.Equal(t, Idle, l.State())
		assert.Equal(t, Stats{Dropped: 2}, l.Stats())
		assert.Nil(t, l.slots[0])
		assert.Nil(t, e.submits[1].after)
	})

	t.Run("submit error drops the frame and reclaims the image", func(t *testing.T) {
		e := &mockEngine{images: 2, signaled: true, submitErr: errors.New("queue submit: out of host memory")}
		l := NewFrameLoop(e, 0, quietLogger())
		require.NoError(t, l.Frame())
		assert.Equal(t, uint64(1), l.Stats().Dropped)
		assert.Empty(t, e.markers)
		assert.Equal(t, NeedsRecreate, l.State())

		e.submitErr = nil
		require.NoError(t, l.Frame())
		assert.Equal(t, []RecreateReason{RecreateDropped}, e.recreates)
		assert.Equal(t, Idle, l.State())
		assert.Len(t, e.submits, 1)
	})

	t.Run("repeated submit errors rebuild every time", func(t *testing.T) {
		e := &mockEngine{images: 2, signaled: true, submitErr: errors.New("queue submit: out of host memory")}
		l := NewFrameLoop(e, 0, quietLogger())
		for i := 0; i < 4; i++ {
			require.NoError(t, l.Frame())
		}
		assert.Equal(t, Stats{Dropped: 4, Recreations: 3}, l.Stats())
		assert.Len(t, e.recreates, 3)
	})

	t.Run("device lost is fatal", func(t *testing.T) {
		e := &mockEngine{images: 2, signaled: true, submitErr: errors.Wrap(ErrDeviceLost, "queue submit")}
		l := NewFrameLoop(e, 0, quietLogger())
		assert.True(t, errors.Is(l.Frame(), ErrDeviceLost))
	})
}

func TestFrameLoopResizeReallocatesSlots(t *testing.T) {
	e := &mockEngine{images: 2, signaled: true}
	l := NewFrameLoop(e, 0, quietLogger())

	require.NoError(t, l.Frame())
	require.NoError(t, l.Frame())

	e.images = 4
	l.Resize()
	l.RequestRebuild()
	require.NoError(t, l.Frame())

	assert.Equal(t, []RecreateReason{RecreateResize | RecreateShaders}, e.recreates)
	assert.Len(t, l.slots, 4)
	assert.True(t, e.markers[0].isReleased())
	assert.True(t, e.markers[1].isReleased())
	assert.Nil(t, e.submits[2].after, "no frame precedes the first one after a recreation")
}

func TestFrameLoopMinimized(t *testing.T) {
	e := &mockEngine{images: 2, signaled: true, recreateErr: errors.Wrap(ErrMinimized, "choose swapchain")}
	l := NewFrameLoop(e, 0, quietLogger())

	l.Resize()
	require.NoError(t, l.Frame())
	require.NoError(t, l.Frame())
	assert.Equal(t, NeedsRecreate, l.State())
	assert.Empty(t, e.submits)
	assert.Len(t, e.recreates, 2)

	e.recreateErr = nil
	require.NoError(t, l.Frame())
	assert.Len(t, e.submits, 1)
	assert.Equal(t, Idle, l.State())
}

func TestFrameLoopRecreateFailureIsFatal(t *testing.T) {
	e := &mockEngine{images: 2, recreateErr: errors.New("create render pass")}
	l := NewFrameLoop(e, 0, quietLogger())
	l.Resize()
	assert.Error(t, l.Frame())
}

func TestFrameLoopRunDrains(t *testing.T) {
	e := &mockEngine{images: 2, signaled: true}
	l := NewFrameLoop(e, 0, quietLogger())

	frames := 0
	err := l.Run(t.Context(), func() bool {
		frames++
		return frames <= 5
	})
	require.NoError(t, err)
	assert.Len(t, e.submits, 5)
	for _, m := range e.markers {
		assert.True(t, m.isReleased())
	}
}

func TestFrameLoopRunLogsDrainFailure(t *testing.T) {
	e := &mockEngine{images: 2}
	var buf bytes.Buffer
	l := NewFrameLoop(e, time.Millisecond, log.New(&buf, "", 0))

	frames := 0
	err := l.Run(t.Context(), func() bool {
		frames++
		if frames == 2 {
			e.acquire = func() (Acquisition, error) {
				return Acquisition{}, errors.New("acquire next image: out of device memory")
			}
		}
		return true
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of device memory")
	assert.Contains(t, buf.String(), "drain after failed frame")
}

func TestRecreateReasonString(t *testing.T) {
	assert.Equal(t, "none", RecreateReason(0).String())
	assert.Equal(t, "resize|shaders", (RecreateResize | RecreateShaders).String())
	assert.Equal(t, "out-of-date|dropped", (RecreateOutOfDate | RecreateDropped).String())
	assert.Equal(t, "needs-recreate", NeedsRecreate.String())
}
