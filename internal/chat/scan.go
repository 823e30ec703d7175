package chat

import (
	"iter"
	"sort"
)

// MembersByDID yields every cached member record whose DID matches, walking
// populated list keys in lexicographic order, then pages, conversations and
// member positions in cache order. The snapshots are captured up front, so
// iteration holds no lock and sees a consistent view; each range over the
// sequence re-captures. Stopping early costs nothing beyond the records
// already visited.
func (s *ListStore) MembersByDID(did string) iter.Seq[Profile] {
	return func(yield func(Profile) bool) {
		for _, snap := range s.snapshots() {
			for _, page := range snap.Pages {
				for _, convo := range page.Convos {
					for _, member := range convo.Members {
						if member.DID != did {
							continue
						}
						if !yield(member) {
							return
						}
					}
				}
			}
		}
	}
}

func (s *ListStore) snapshots() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]Snapshot, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.entries[key].snapshot)
	}

	return out
}
