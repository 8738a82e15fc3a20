// Stream wrappers enforcing inactivity timeout and cooperative cancellation
// over a canonical event channel without leaking the underlying connection.
package llm

import (
	"context"
	"sync"
	"time"
)

// streamBufferSize is the channel buffer used by wrappers, matching the
// buffering the provider adapters use for their raw event channels.
const streamBufferSize = 10

// StreamSource couples a canonical event channel with the teardown of the
// connection feeding it. Wrappers and consumers call Close exactly once on
// every exit path; the once guard makes layered teardown safe.
type StreamSource struct {
	events   <-chan StreamEvent
	closeFn  func() error
	once     sync.Once
	closeErr error
}

// NewStreamSource creates a source from an event channel and an optional
// teardown hook. A nil closeFn is valid for sources with nothing to release.
func NewStreamSource(events <-chan StreamEvent, closeFn func() error) *StreamSource {
	return &StreamSource{events: events, closeFn: closeFn}
}

// Events returns the canonical event channel. The channel is closed when
// the completion ends, fails, times out or is aborted.
func (s *StreamSource) Events() <-chan StreamEvent {
	return s.events
}

// Close releases the underlying connection. Safe to call multiple times;
// only the first call runs the teardown.
func (s *StreamSource) Close() error {
	s.once.Do(func() {
		if s.closeFn != nil {
			s.closeErr = s.closeFn()
		}
	})
	return s.closeErr
}

// StreamOptions configures the combined wrapper. A zero Timeout disables
// the inactivity timer entirely.
type StreamOptions struct {
	Timeout time.Duration
}

// StreamWithTimeout bounds the gap between consecutive source events. The
// timer is re-armed after every delivered event, so a slow stream that
// keeps moving never times out and no total-duration deadline accumulates.
// On expiry a terminal structured timeout error event is emitted and the
// source is torn down. A non-positive timeout returns the source unchanged.
func StreamWithTimeout(src *StreamSource, timeout time.Duration) *StreamSource {
	if timeout <= 0 {
		return src
	}

	out := make(chan StreamEvent, streamBufferSize)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(out)
		defer func() { _ = src.Close() }()

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		for {
			select {
			case event, ok := <-src.Events():
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-stop:
					return
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(timeout)

			case <-timer.C:
				select {
				case out <- NewErrorEvent(NewTimeoutError(timeout)):
				case <-stop:
				}
				return

			case <-stop:
				return
			}
		}
	}()

	return NewStreamSource(out, func() error {
		stopOnce.Do(func() { close(stop) })
		return src.Close()
	})
}

// StreamWithAbort terminates the stream when ctx is cancelled. Abort is a
// clean, silent termination, not an error: the channel simply closes with
// no further events. A context that is already cancelled yields a source
// producing zero events, with the underlying connection released
// immediately.
func StreamWithAbort(ctx context.Context, src *StreamSource) *StreamSource {
	if ctx.Err() != nil {
		_ = src.Close()
		closed := make(chan StreamEvent)
		close(closed)
		return NewStreamSource(closed, nil)
	}

	out := make(chan StreamEvent, streamBufferSize)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(out)
		defer func() { _ = src.Close() }()

		for {
			select {
			case event, ok := <-src.Events():
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				case <-stop:
					return
				}

			case <-ctx.Done():
				return

			case <-stop:
				return
			}
		}
	}()

	return NewStreamSource(out, func() error {
		stopOnce.Do(func() { close(stop) })
		return src.Close()
	})
}

// StreamWithOptions layers the abort wrapper outside the timeout wrapper,
// so a cancellation always wins over an in-flight timeout race and closing
// the returned source tears both layers down along with the connection.
func StreamWithOptions(ctx context.Context, src *StreamSource, opts StreamOptions) *StreamSource {
	wrapped := StreamWithTimeout(src, opts.Timeout)
	return StreamWithAbort(ctx, wrapped)
}
