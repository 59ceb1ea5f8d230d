package resource

// seqKey scopes sequencing to one subject of one resource. Every operation
// kind shares the key, so a save voids an older refresh still in flight.
type seqKey struct {
	resource string
	subject  string
}

// Sequencer hands out monotonically increasing sequence numbers per key and
// decides whether a resolution is still current. Only the most recently
// issued request for a key may commit. It is not safe for concurrent use;
// the Store serializes access.
type Sequencer struct {
	latest map[seqKey]uint64
}

// NewSequencer returns an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[seqKey]uint64)}
}

// Next issues the next sequence number for the key.
func (s *Sequencer) Next(resource, subject string) uint64 {
	k := seqKey{resource, subject}
	s.latest[k]++
	return s.latest[k]
}

// IsCurrent reports whether seq is the latest number issued for the key.
func (s *Sequencer) IsCurrent(resource, subject string, seq uint64) bool {
	return seq != 0 && s.latest[seqKey{resource, subject}] == seq
}

// Void supersedes every in-flight request of the resource, limited to one
// subject when subject is non-empty. Used when the cache slice is cleared.
func (s *Sequencer) Void(resource, subject string) {
	for k := range s.latest {
		if k.resource != resource {
			continue
		}
		if subject != "" && k.subject != subject {
			continue
		}
		s.latest[k]++
	}
}
