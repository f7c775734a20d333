package engine

import (
	"image"
	"sort"

	"github.com/kozaktomas/smart-presence/internal/vision"
)

// maxMissedCycles is how many consecutive detection cycles may fail to
// reconfirm a tracked face before its tracker is dropped.
const maxMissedCycles = 2

// observation is one detection-cycle result: a full-frame box and the
// matched identity (vision.Unknown when nothing matched within tolerance).
type observation struct {
	box      vision.Box
	identity string
}

// trackedFace is one pool entry. Identity is assigned once at detection
// time; position updates between detections never change it.
type trackedFace struct {
	identity string
	tracker  vision.Tracker
	box      vision.Box
	missed   int
	visible  bool
}

// trackerPool maintains one tracker per face currently in frame. Detection
// cycles reconcile the pool against fresh observations; the cycles in
// between only refresh positions.
type trackerPool struct {
	factory vision.TrackerFactory
	entries []*trackedFace
}

func newTrackerPool(factory vision.TrackerFactory) *trackerPool {
	return &trackerPool{factory: factory}
}

// Apply reconciles the pool with the observations of a detection cycle.
// Known identities that reappear keep their entry with a reseeded tracker;
// unknown observations always get fresh entries. Entries missed twice in a
// row are dropped, and the pool never holds more entries than the latest
// detection produced.
func (p *trackerPool) Apply(img *image.RGBA, obs []observation) {
	confirmed := make(map[*trackedFace]bool)

	var next []*trackedFace
	for _, o := range obs {
		entry := p.findUnconfirmed(o.identity, confirmed)
		if entry == nil {
			entry = &trackedFace{identity: o.identity}
		}
		entry.tracker = p.factory(img, o.box)
		entry.box = o.box
		entry.missed = 0
		entry.visible = true
		confirmed[entry] = true
		next = append(next, entry)
	}

	// Carry over unconfirmed entries until they miss too many cycles.
	for _, entry := range p.entries {
		if confirmed[entry] {
			continue
		}
		entry.missed++
		entry.visible = false
		if entry.missed < maxMissedCycles {
			next = append(next, entry)
		}
	}

	// The pool never exceeds the latest face count; evict the stalest
	// unconfirmed entries first.
	if len(next) > len(obs) {
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].missed < next[j].missed
		})
		next = next[:len(obs)]
	}

	p.entries = next
}

// findUnconfirmed returns an existing pool entry for the identity that has
// not been matched this cycle yet. Unknown observations never reuse
// entries; there is no stable identity to reattach.
func (p *trackerPool) findUnconfirmed(identity string, confirmed map[*trackedFace]bool) *trackedFace {
	if identity == vision.Unknown {
		return nil
	}
	for _, entry := range p.entries {
		if entry.identity == identity && !confirmed[entry] {
			return entry
		}
	}
	return nil
}

// Update refreshes tracked positions on a non-detection cycle. Entries
// whose tracker loses its target stay in the pool (detection decides
// removal) but stop counting as visible.
func (p *trackerPool) Update(img *image.RGBA) {
	for _, entry := range p.entries {
		box, ok := entry.tracker.Update(img)
		entry.visible = ok
		if ok {
			entry.box = box
		}
	}
}

// VisibleIdentities returns the known identities currently on screen.
func (p *trackerPool) VisibleIdentities() []string {
	var out []string
	seen := make(map[string]bool)
	for _, entry := range p.entries {
		if !entry.visible || entry.identity == vision.Unknown || seen[entry.identity] {
			continue
		}
		seen[entry.identity] = true
		out = append(out, entry.identity)
	}
	return out
}

// Snapshot returns the render state of every visible entry.
func (p *trackerPool) Snapshot() []observation {
	var out []observation
	for _, entry := range p.entries {
		if !entry.visible {
			continue
		}
		out = append(out, observation{box: entry.box, identity: entry.identity})
	}
	return out
}

// Len returns the pool size including entries pending removal.
func (p *trackerPool) Len() int {
	return len(p.entries)
}

// Reset drops every tracker, used on session boundaries and detector swaps.
func (p *trackerPool) Reset() {
	p.entries = nil
}
