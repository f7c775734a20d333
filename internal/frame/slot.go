package frame

import "sync"

// Slot is a single-slot, overwrite-on-publish frame buffer. Publishers
// always replace the current frame and consumers always read whatever is
// current; frames dropped under load are accepted by design. The lock is
// held only for the pointer swap, never across I/O or computation.
type Slot struct {
	mu     sync.Mutex
	latest *Frame
	seq    uint64
}

// Publish replaces the slot's content with f and bumps the sequence number.
func (s *Slot) Publish(f *Frame) {
	s.mu.Lock()
	s.seq++
	f.Seq = s.seq
	s.latest = f
	s.mu.Unlock()
}

// Latest returns the most recently published frame, or nil if nothing has
// been published yet. The returned frame must not be mutated.
func (s *Slot) Latest() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Seq returns the sequence number of the latest published frame.
func (s *Slot) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// ByteSlot is the output sink variant of Slot: it holds the latest encoded
// (annotated) frame for an arbitrary number of concurrent streaming readers.
type ByteSlot struct {
	mu   sync.RWMutex
	data []byte
	seq  uint64
}

// Publish replaces the slot's bytes. The caller must not reuse the slice.
func (s *ByteSlot) Publish(data []byte) {
	s.mu.Lock()
	s.seq++
	s.data = data
	s.mu.Unlock()
}

// Latest returns the current bytes and their sequence number. Returns nil
// and zero before the first publish.
func (s *ByteSlot) Latest() ([]byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.seq
}
