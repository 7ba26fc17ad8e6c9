package violation

import (
	"sync"
	"time"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/detection"
)

// SessionStats accumulates counters for one pipeline run. Counters only grow.
// It is safe for concurrent use.
type SessionStats struct {
	mu        sync.Mutex
	startedAt time.Time

	frames     int64
	persons    int64
	compliant  int64
	violating  int64
	violations int64 // records durably stored
	discarded  int64
	seen       map[detection.Equipment]int64
	missing    map[detection.Equipment]int64
}

// NewSessionStats starts an empty accumulator
func NewSessionStats() *SessionStats {
	return &SessionStats{
		startedAt: time.Now(),
		seen:      make(map[detection.Equipment]int64),
		missing:   make(map[detection.Equipment]int64),
	}
}

// ObserveFrame counts one evaluated frame and its equipment detections
func (s *SessionStats) ObserveFrame(result *compliance.FrameResult, discarded int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	s.discarded += int64(discarded)
	for kind, n := range result.Seen {
		s.seen[kind] += int64(n)
	}
}

func (s *SessionStats) observePerson(obs *compliance.PersonObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persons++
	if obs.Compliant() {
		s.compliant++
		return
	}
	s.violating++
	for _, kind := range obs.Missing.Items() {
		s.missing[kind]++
	}
}

// RecordStored counts records the store accepted
func (s *SessionStats) RecordStored(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations += int64(n)
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	StartedAt      time.Time `json:"started_at"`
	Frames         int64     `json:"frames"`
	Persons        int64     `json:"persons"`
	Compliant      int64     `json:"compliant"`
	Violating      int64     `json:"violating"`
	Violations     int64     `json:"violations"`
	Discarded      int64     `json:"discarded"`
	HelmetsSeen    int64     `json:"helmets_seen"`
	VestsSeen      int64     `json:"vests_seen"`
	GogglesSeen    int64     `json:"goggles_seen"`
	MissingHelmet  int64     `json:"missing_helmet"`
	MissingVest    int64     `json:"missing_vest"`
	MissingGoggles int64     `json:"missing_goggles"`
}

// ComplianceRate is the fraction of observed persons that were compliant,
// or 0 when no person has been seen
func (s Snapshot) ComplianceRate() float64 {
	if s.Persons == 0 {
		return 0
	}
	return float64(s.Compliant) / float64(s.Persons)
}

// Snapshot returns a copy of the counters
func (s *SessionStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		StartedAt:      s.startedAt,
		Frames:         s.frames,
		Persons:        s.persons,
		Compliant:      s.compliant,
		Violating:      s.violating,
		Violations:     s.violations,
		Discarded:      s.discarded,
		HelmetsSeen:    s.seen[detection.Helmet],
		VestsSeen:      s.seen[detection.Vest],
		GogglesSeen:    s.seen[detection.Goggles],
		MissingHelmet:  s.missing[detection.Helmet],
		MissingVest:    s.missing[detection.Vest],
		MissingGoggles: s.missing[detection.Goggles],
	}
}
