package vision

import (
	"sync"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph. The enrolled
// population is small, so the default trade-off leans toward recall.
const hnswMaxNeighbors = 16

// KnownIdentity is an enrolled person: a name plus one or more reference
// feature vectors. Identities are immutable during a run except through
// Reload.
type KnownIdentity struct {
	Name    string
	Vectors []FeatureVector
}

// Matcher answers nearest-identity queries over the enrolled reference
// vectors using an in-memory HNSW index. The accept/reject decision
// (distance vs. tolerance) belongs to the engine; the matcher only reports
// the nearest identity and its distance.
type Matcher struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[int]
	idToName map[int]string
	count    int
}

// NewMatcher builds a matcher over the given identities.
func NewMatcher(identities []KnownIdentity) *Matcher {
	m := &Matcher{}
	m.Reload(identities)
	return m
}

// Reload replaces the index contents. Used at startup and when enrollment
// adds new reference vectors mid-run.
func (m *Matcher) Reload(identities []KnownIdentity) {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	idToName := make(map[int]string)
	id := 0
	count := 0
	for _, identity := range identities {
		name := NormalizeName(identity.Name)
		for _, vec := range identity.Vectors {
			if len(vec) == 0 {
				continue
			}
			g.Add(hnsw.MakeNode(id, vec))
			idToName[id] = name
			id++
		}
		count++
	}

	m.mu.Lock()
	m.graph = g
	m.idToName = idToName
	m.count = count
	m.mu.Unlock()
}

// Count returns the number of enrolled identities.
func (m *Matcher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Nearest returns the enrolled identity closest to the query vector and the
// cosine distance to it. ok is false when no reference vectors are loaded.
func (m *Matcher) Nearest(query FeatureVector) (name string, distance float64, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.graph == nil || len(m.idToName) == 0 {
		return "", 0, false
	}

	neighbors := m.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return "", 0, false
	}

	n := neighbors[0]
	return m.idToName[n.Key], float64(hnsw.CosineDistance(query, n.Value)), true
}
