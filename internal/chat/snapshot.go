package chat

import "slices"

// Convos flattens the snapshot's pages into a single list, preserving page
// order. The returned slice is fresh; the summaries it points at are shared.
func (s Snapshot) Convos() []*ConvoSummary {
	n := 0
	for _, page := range s.Pages {
		n += len(page.Convos)
	}
	out := make([]*ConvoSummary, 0, n)
	for _, page := range s.Pages {
		out = append(out, page.Convos...)
	}

	return out
}

func (s Snapshot) Len() int {
	n := 0
	for _, page := range s.Pages {
		n += len(page.Convos)
	}

	return n
}

func (s Snapshot) Find(convoID string) (*ConvoSummary, bool) {
	for _, page := range s.Pages {
		for _, convo := range page.Convos {
			if convo.ID == convoID {
				return convo, true
			}
		}
	}

	return nil, false
}

// UpdateConvo returns a snapshot in which every conversation matching convoID
// (at most one in practice) is replaced by transform(convo). The transform
// must treat its argument as read-only and return a replacement record, or
// the argument itself to signal no change. Pages without a match keep their
// identity, as do all untouched summaries. changed is false when nothing was
// replaced, and the original snapshot is returned as-is.
func (s Snapshot) UpdateConvo(convoID string, transform func(*ConvoSummary) *ConvoSummary) (next Snapshot, changed bool) {
	var pages []Page
	for pi, page := range s.Pages {
		pageCloned := false
		for ci, convo := range page.Convos {
			if convo.ID != convoID {
				continue
			}
			replacement := transform(convo)
			if replacement == nil || replacement == convo {
				continue
			}
			if pages == nil {
				pages = slices.Clone(s.Pages)
			}
			if !pageCloned {
				pages[pi].Convos = slices.Clone(page.Convos)
				pageCloned = true
			}
			pages[pi].Convos[ci] = replacement
		}
	}
	if pages == nil {
		return s, false
	}

	return Snapshot{Pages: pages}, true
}
