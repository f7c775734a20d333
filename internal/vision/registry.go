package vision

import (
	"fmt"
	"sort"
	"sync"
)

// DetectorConstructor builds a fresh detector instance. Hot-swapping the
// DETECTOR_MODEL setting reconstructs the detector through its constructor;
// nothing is reused across the swap boundary.
type DetectorConstructor func() (Detector, error)

var (
	detectorsMu sync.RWMutex
	detectors   = make(map[string]DetectorConstructor)
)

// RegisterDetector registers a named detector constructor. Called from
// wiring code (cmd) so the engine can resolve the DETECTOR_MODEL setting
// without knowing concrete types.
func RegisterDetector(name string, c DetectorConstructor) {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()
	detectors[name] = c
}

// NewDetector constructs the named detector, or errors if unregistered.
func NewDetector(name string) (Detector, error) {
	detectorsMu.RLock()
	c, ok := detectors[name]
	detectorsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown detector model %q", name)
	}
	return c()
}

// DetectorNames returns the registered detector names, sorted.
func DetectorNames() []string {
	detectorsMu.RLock()
	defer detectorsMu.RUnlock()
	names := make([]string, 0, len(detectors))
	for name := range detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
