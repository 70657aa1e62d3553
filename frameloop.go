package vkr

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// FrameState is the position of the frame loop within one iteration
type FrameState int32

const (
	Idle FrameState = iota
	Acquiring
	Submitting
	Presenting
	NeedsRecreate
)

func (s FrameState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Submitting:
		return "submitting"
	case Presenting:
		return "presenting"
	case NeedsRecreate:
		return "needs-recreate"
	}
	return "unknown"
}

// RecreateReason records why the swapchain has to be rebuilt
type RecreateReason uint32

const (
	RecreateResize RecreateReason = 1 << iota
	RecreateOutOfDate
	RecreateShaders
	// RecreateDropped reclaims an image that was acquired but never presented
	RecreateDropped
)

func (r RecreateReason) String() string {
	var parts []string
	if r&RecreateResize != 0 {
		parts = append(parts, "resize")
	}
	if r&RecreateOutOfDate != 0 {
		parts = append(parts, "out-of-date")
	}
	if r&RecreateShaders != 0 {
		parts = append(parts, "shaders")
	}
	if r&RecreateDropped != 0 {
		parts = append(parts, "dropped")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Marker signals completion of a submission
type Marker interface {
	// Wait blocks until the work signals, a timeout of zero waits forever
	Wait(timeout time.Duration) error
	// Release frees the marker once it has signaled or will never be waited on again
	Release()
}

// Acquisition is a presentable image handed out by the engine
type Acquisition struct {
	Index      uint32
	Suboptimal bool
	// Signal is signaled on the device once the image may be rendered to
	Signal vk.Semaphore
}

// PresentEngine is the device side of the frame loop. The loop calls it from a
// single goroutine.
type PresentEngine interface {
	ImageCount() int
	// Recreate rebuilds the swapchain and whatever depends on it. ErrMinimized
	// means there is nothing to present to yet.
	Recreate(reason RecreateReason) error
	// Acquire returns the next image, ErrOutOfDate when the swapchain must be rebuilt
	Acquire(timeout time.Duration) (Acquisition, error)
	// Submit queues the recorded commands for the image, ordered after the work
	// tracked by after when it is not nil.
	Submit(a Acquisition, after Marker) error
	// Present queues the image for display and returns the marker of the whole
	// submission. A marker may come back alongside an error.
	Present(a Acquisition) (Marker, error)
}

// Stats counts frames since the loop was created
type Stats struct {
	Presented   uint64
	Dropped     uint64
	Recreations uint64
}

// FrameLoop drives acquire, submit and present. It keeps one completion marker
// per swapchain image so an image is never rendered to while earlier work on it
// is in flight, and chains every submission after the previous frame.
type FrameLoop struct {
	Engine PresentEngine
	// Timeout bounds acquire and marker waits, zero waits forever
	Timeout time.Duration
	Logger  *log.Logger

	state    atomic.Int32
	pending  atomic.Uint32
	recreate RecreateReason

	slots    []Marker
	previous int

	presented   atomic.Uint64
	dropped     atomic.Uint64
	recreations atomic.Uint64
}

func NewFrameLoop(engine PresentEngine, timeout time.Duration, logger *log.Logger) *FrameLoop {
	if logger == nil {
		logger = log.Default()
	}
	return &FrameLoop{
		Engine:  engine,
		Timeout: timeout,
		Logger:  logger,
		slots:   make([]Marker, engine.ImageCount()),
	}
}

// Resize flags the swapchain for recreation before the next frame. Safe to call
// from any goroutine.
func (l *FrameLoop) Resize() {
	l.pending.Or(uint32(RecreateResize))
}

// RequestRebuild flags a shader reload, handled like a recreation. Safe to call
// from any goroutine.
func (l *FrameLoop) RequestRebuild() {
	l.pending.Or(uint32(RecreateShaders))
}

func (l *FrameLoop) State() FrameState {
	return FrameState(l.state.Load())
}

func (l *FrameLoop) Stats() Stats {
	return Stats{
		Presented:   l.presented.Load(),
		Dropped:     l.dropped.Load(),
		Recreations: l.recreations.Load(),
	}
}

func (l *FrameLoop) setState(s FrameState) {
	l.state.Store(int32(s))
}

func (l *FrameLoop) flagRecreate(reason RecreateReason) {
	l.recreate |= reason
	l.setState(NeedsRecreate)
}

// endFrame returns to Idle, or stays in NeedsRecreate when the next frame has
// to rebuild first.
func (l *FrameLoop) endFrame() {
	if l.recreate != 0 {
		l.setState(NeedsRecreate)
		return
	}
	l.setState(Idle)
}

// Frame runs one iteration. Only unrecoverable failures are returned, the
// frame is dropped for everything else.
func (l *FrameLoop) Frame() error {
	if reason := l.recreate | RecreateReason(l.pending.Swap(0)); reason != 0 {
		if err := l.recreateSwapchain(reason); err != nil {
			if errors.Is(err, ErrMinimized) {
				l.flagRecreate(reason)
				return nil
			}
			return errors.Wrap(err, "recreate swapchain")
		}
		l.recreate = 0
	}

	l.setState(Acquiring)
	a, err := l.Engine.Acquire(l.Timeout)
	switch {
	case err == nil:
	case IsOutOfDate(err):
		l.flagRecreate(RecreateOutOfDate)
		return nil
	case errors.Is(err, ErrTimeout):
		return errors.Wrapf(ErrDeviceLost, "acquire: %v", err)
	default:
		return err
	}
	if a.Suboptimal {
		l.recreate |= RecreateOutOfDate
	}

	idx := int(a.Index)
	if idx >= len(l.slots) {
		return errors.Errorf("acquired image %d of %d", idx, len(l.slots))
	}
	if m := l.slots[idx]; m != nil {
		if err := m.Wait(l.Timeout); err != nil {
			return errors.Wrapf(ErrDeviceLost, "wait for image %d: %v", idx, err)
		}
		m.Release()
		l.slots[idx] = nil
	}

	l.setState(Submitting)
	if err := l.Engine.Submit(a, l.slots[l.previous]); err != nil {
		if err := l.drop(idx, err); err != nil {
			return err
		}
		// the image stays acquired until the swapchain is rebuilt
		if l.State() != NeedsRecreate {
			l.flagRecreate(RecreateDropped)
		}
		return nil
	}

	l.setState(Presenting)
	m, err := l.Engine.Present(a)
	if err != nil && !errors.Is(err, ErrSuboptimal) {
		if m != nil {
			if werr := m.Wait(l.Timeout); werr != nil {
				return errors.Wrapf(ErrDeviceLost, "wait for dropped image %d: %v", idx, werr)
			}
			m.Release()
		}
		return l.drop(idx, err)
	}
	if err != nil {
		l.recreate |= RecreateOutOfDate
	}

	l.slots[idx] = m
	l.previous = idx
	l.presented.Add(1)
	l.endFrame()
	return nil
}

// drop leaves the slot of the image empty and carries on with the next frame
func (l *FrameLoop) drop(idx int, err error) error {
	if IsOutOfDate(err) {
		l.flagRecreate(RecreateOutOfDate)
		return nil
	}
	if errors.Is(err, ErrDeviceLost) {
		return err
	}
	l.Logger.Printf("dropped frame for image %d: %v", idx, err)
	l.dropped.Add(1)
	l.endFrame()
	return nil
}

func (l *FrameLoop) recreateSwapchain(reason RecreateReason) error {
	if err := l.Drain(); err != nil {
		return err
	}
	if err := l.Engine.Recreate(reason); err != nil {
		return err
	}
	l.slots = make([]Marker, l.Engine.ImageCount())
	l.previous = 0
	l.recreations.Add(1)
	l.Logger.Printf("swapchain recreated (%s) with %d images", reason, len(l.slots))
	return nil
}

// Drain waits for and releases every marker still held. The first wait error is
// returned once all slots are empty.
func (l *FrameLoop) Drain() error {
	var first error
	for i, m := range l.slots {
		if m == nil {
			continue
		}
		if err := m.Wait(l.Timeout); err != nil && first == nil {
			first = errors.Wrapf(ErrDeviceLost, "drain image %d: %v", i, err)
		}
		m.Release()
		l.slots[i] = nil
	}
	return first
}

// Run renders frames while poll returns true and ctx is live, then drains
func (l *FrameLoop) Run(ctx context.Context, poll func() bool) error {
	for poll() {
		select {
		case <-ctx.Done():
			return l.Drain()
		default:
		}
		if err := l.Frame(); err != nil {
			if derr := l.Drain(); derr != nil {
				l.Logger.Printf("drain after failed frame: %v", derr)
			}
			return err
		}
	}
	return l.Drain()
}
