package steward

import (
	"sync"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/hexfront/internal/hex"
)

const maxRecords = 10

// CycleRecord captures what happened in a single steward cycle.
type CycleRecord struct {
	Turn        int    `json:"turn"`
	CrisisLevel string `json:"crisis_level"`
	Steps       []Step `json:"steps"`
	Failures    int    `json:"failures"`
}

// Memory keeps recent cycle records and the cells where founding a capital
// was refused, so the steward does not retry them.
type Memory struct {
	mu       sync.Mutex
	Records  []CycleRecord
	rejected mapset.Set[hex.Coord]
}

// NewMemory returns empty memory.
func NewMemory() *Memory {
	return &Memory{rejected: mapset.New[hex.Coord]()}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *Memory) Record(r CycleRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// Reject marks c as unsuitable for a capital.
func (m *Memory) Reject(c hex.Coord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected.Put(c)
}

// Rejected reports whether a capital was refused at c.
func (m *Memory) Rejected(c hex.Coord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected.Has(c)
}
