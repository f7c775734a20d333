package capture

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/smart-presence/internal/frame"
)

// Connection status of the capture source.
const (
	StatusStopped      = "stopped"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Backoff bounds for device reconnection: 1s, 2s, 4s, 8s, then capped.
const (
	backoffBase = time.Second
	backoffMax  = 8 * time.Second
)

// readTimeout bounds a single device read so the loop can always observe
// the stop signal.
const readTimeout = 5 * time.Second

// stopTimeout bounds how long Stop waits for the loop before the device is
// force-released.
const stopTimeout = 3 * time.Second

// backoffDelay returns the reconnect delay for the given 1-based attempt.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := backoffBase << (attempt - 1)
	if d > backoffMax || d <= 0 {
		return backoffMax
	}
	return d
}

// Source runs the capture loop: it reads frames from the device and
// publishes them into the input slot, overwriting whatever is there.
// On read failure it goes Disconnected and retries with exponential
// backoff, resuming Connected on the first successful read.
type Source struct {
	dev  Device
	slot *frame.Slot
	log  zerolog.Logger

	status     atomic.Value // string
	fpsBits    atomic.Uint64
	reconnects atomic.Uint64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}

	// wait sleeps for the backoff delay, returning false when the source
	// is stopping. Replaceable in tests.
	wait func(d time.Duration) bool
}

// NewSource creates a capture source publishing into slot.
func NewSource(dev Device, slot *frame.Slot, log zerolog.Logger) *Source {
	s := &Source{
		dev:  dev,
		slot: slot,
		log:  log.With().Str("component", "capture").Logger(),
	}
	s.status.Store(StatusStopped)
	s.wait = s.sleepOrStop
	return s
}

// Start launches the capture loop. It is a no-op when already running.
func (s *Source) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.status.Store(StatusDisconnected)
	go s.run(s.stop, s.done)
	s.log.Info().Msg("capture loop started")
}

// Stop signals the loop and blocks until it exits or a bound elapses,
// after which the device is force-released.
func (s *Source) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(stopTimeout):
		s.log.Warn().Msg("capture loop did not exit in time, force-releasing device")
		s.dev.Close()
		<-done
	}
	s.status.Store(StatusStopped)
	s.log.Info().Msg("capture loop stopped")
}

// Status returns the current connection status. Never blocks.
func (s *Source) Status() string {
	return s.status.Load().(string)
}

// Connected reports whether the last device read succeeded.
func (s *Source) Connected() bool {
	return s.Status() == StatusConnected
}

// FPS returns the smoothed capture rate.
func (s *Source) FPS() float64 {
	return math.Float64frombits(s.fpsBits.Load())
}

// Reconnects returns how many read failures have triggered backoff.
func (s *Source) Reconnects() uint64 {
	return s.reconnects.Load()
}

func (s *Source) run(stop, done chan struct{}) {
	defer close(done)
	defer s.dev.Close()

	attempt := 0
	opened := false
	var lastRead time.Time

	for {
		select {
		case <-stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		if !opened {
			err := s.dev.Open(ctx)
			cancel()
			if err != nil {
				if !s.backOff(&attempt, err) {
					return
				}
				continue
			}
			opened = true
			continue
		}

		img, err := s.dev.Read(ctx)
		cancel()
		if err != nil {
			s.dev.Close()
			opened = false
			if !s.backOff(&attempt, err) {
				return
			}
			continue
		}

		if attempt > 0 {
			s.log.Info().Msg("camera reconnected")
		}
		attempt = 0
		s.status.Store(StatusConnected)

		now := time.Now()
		if !lastRead.IsZero() {
			s.updateFPS(now.Sub(lastRead))
		}
		lastRead = now

		s.slot.Publish(&frame.Frame{Image: img, Time: now})
	}
}

// backOff records a failure and sleeps the next backoff delay. Returns
// false when the source is stopping.
func (s *Source) backOff(attempt *int, err error) bool {
	*attempt++
	s.reconnects.Add(1)
	s.status.Store(StatusDisconnected)
	delay := backoffDelay(*attempt)
	s.log.Warn().Err(err).Int("attempt", *attempt).Dur("retry_in", delay).Msg("camera read failed, backing off")
	return s.wait(delay)
}

func (s *Source) sleepOrStop(d time.Duration) bool {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return false
	case <-time.After(d):
		return true
	}
}

// updateFPS maintains an exponential moving average of the capture rate.
func (s *Source) updateFPS(dt time.Duration) {
	if dt <= 0 {
		return
	}
	inst := 1.0 / dt.Seconds()
	prev := s.FPS()
	next := inst
	if prev > 0 {
		next = prev*0.9 + inst*0.1
	}
	s.fpsBits.Store(math.Float64bits(next))
}
