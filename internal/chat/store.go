package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hipstersmoothie/social-app/internal/bus"
	"github.com/hipstersmoothie/social-app/internal/events"
)

type State int

const (
	StateLoading State = iota + 1
	StateLoaded
	StateStale
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

type listEntry struct {
	snapshot  Snapshot
	state     State
	fetchedAt time.Time
}

// ListStore caches conversation-list snapshots keyed by ListKey. Readers get
// immutable snapshots; every mutation installs replacement records, so a
// summary handed out earlier never changes underneath its holder.
type ListStore struct {
	mu      sync.RWMutex
	entries map[string]*listEntry
	gens    map[string]uint64
	changes chan struct{}
}

func NewListStore() *ListStore {
	return &ListStore{
		entries: make(map[string]*listEntry),
		gens:    make(map[string]uint64),
		changes: make(chan struct{}, 1),
	}
}

// Start consumes conversation log events from the bus and applies them as
// optimistic patches until ctx is cancelled. It also fans the store's
// coalesced change signal out as TopicConvoListChanged, so any number of
// subscribers can follow the cache without competing for Changes.
func (s *ListStore) Start(ctx context.Context, b bus.MessageBus) {
	topics := []string{
		events.TopicMessageCreated,
		events.TopicMessageDeleted,
		events.TopicConvoRead,
		events.TopicConvoCreated,
	}
	sub := b.Subscribe(topics...)

	go func() {
		defer b.Unsubscribe(sub, topics...)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				s.apply(raw)
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.changes:
				b.Publish(events.TopicConvoListChanged, events.ConvoListChanged{})
			}
		}
	}()
}

func (s *ListStore) apply(raw any) {
	switch ev := raw.(type) {
	case MessageCreated:
		s.HandleNewMessage(ListKey(ev.AccountDID), ev.ConvoID, ev.Message)
	case MessageDeleted:
		s.HandleMessageDeleted(ListKey(ev.AccountDID), ev.ConvoID, ev.MessageID)
	case ConvoRead:
		s.HandleRead(ListKey(ev.AccountDID), ev.ConvoID)
	case ConvoCreated:
		s.HandleConvoCreated(ListKey(ev.AccountDID))
	}
}

// Get returns the cached snapshot and state for key. ok is false when the key
// was never populated or has been invalidated.
func (s *ListStore) Get(key string) (Snapshot, State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return Snapshot{}, 0, false
	}

	return e.snapshot, e.state, true
}

// Convos returns the flattened conversation list for key, nil when absent.
func (s *ListStore) Convos(key string) []*ConvoSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil
	}

	return e.snapshot.Convos()
}

func (s *ListStore) Stale(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]

	return ok && e.state == StateStale
}

// Keys lists the populated cache keys in lexicographic order.
func (s *ListStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for key := range s.entries {
		out = append(out, key)
	}
	sort.Strings(out)

	return out
}

// BeginFetch marks key as loading when it has no data yet and returns the
// generation token the fetch must present to Replace or AppendPage. A fetch
// that completes after Invalidate carries a stale token and is discarded.
func (s *ListStore) BeginFetch(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = &listEntry{state: StateLoading}
		s.notify()
	}

	return s.gens[key]
}

// Replace installs pages as the complete snapshot for key and marks it
// loaded. The write is dropped when gen no longer matches.
func (s *ListStore) Replace(key string, gen uint64, pages []Page) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gens[key] {
		return false
	}
	e, ok := s.entries[key]
	if !ok {
		e = &listEntry{}
		s.entries[key] = e
	}
	e.snapshot = Snapshot{Pages: append([]Page(nil), pages...)}
	e.state = StateLoaded
	e.fetchedAt = time.Now()
	s.notify()

	return true
}

// AppendPage adds one more fetched page to an existing snapshot.
func (s *ListStore) AppendPage(key string, gen uint64, page Page) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gens[key] {
		return false
	}
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	pages := append([]Page(nil), e.snapshot.Pages...)
	e.snapshot = Snapshot{Pages: append(pages, page)}
	if e.state == StateLoading {
		e.state = StateLoaded
	}
	e.fetchedAt = time.Now()
	s.notify()

	return true
}

// FailFetch records that the fetch holding gen gave up. Existing data stays
// in place and is marked stale; a key that never loaded goes back to absent.
func (s *ListStore) FailFetch(key string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gens[key] {
		return
	}
	e, ok := s.entries[key]
	if !ok {
		return
	}
	if e.state == StateLoading && e.snapshot.Len() == 0 {
		delete(s.entries, key)
		s.notify()
		return
	}
	if e.state == StateLoaded {
		e.state = StateStale
		s.notify()
	}
}

// Restore seeds key with a warm-start snapshot. The data is assumed old and
// the entry starts stale so the next refresh replaces it.
func (s *ListStore) Restore(key string, convos []*ConvoSummary) {
	if len(convos) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &listEntry{
		snapshot: Snapshot{Pages: []Page{{Convos: convos}}},
		state:    StateStale,
	}
	s.notify()
}

// MarkStale flags key for refetch without touching its data. Absent keys are
// left alone.
func (s *ListStore) MarkStale(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.state != StateLoaded {
		return
	}
	e.state = StateStale
	s.notify()
}

// Invalidate drops the snapshot for key and retires its fetch generation, so
// in-flight fetch results for the old identity cannot resurrect the data.
func (s *ListStore) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[key]++
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	s.notify()
}

// Update replaces the conversation convoID under key using transform, which
// must not mutate its argument. It reports whether anything changed; absent
// keys and unmatched ids are silent no-ops.
func (s *ListStore) Update(key, convoID string, transform func(*ConvoSummary) *ConvoSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateLocked(key, convoID, transform)
}

func (s *ListStore) updateLocked(key, convoID string, transform func(*ConvoSummary) *ConvoSummary) bool {
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	next, changed := e.snapshot.UpdateConvo(convoID, transform)
	if !changed {
		return false
	}
	e.snapshot = next
	s.notify()

	return true
}

// HandleNewMessage records msg as the conversation's latest message and
// bumps its unread count. The server may have reordered the list, so the
// snapshot is marked stale whether or not the conversation was found.
func (s *ListStore) HandleNewMessage(key, convoID string, msg *LastMessage) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return
	}
	s.updateLocked(key, convoID, func(c *ConvoSummary) *ConvoSummary {
		next := *c
		next.LastMessage = msg
		next.UnreadCount = c.UnreadCount + 1
		return &next
	})
	if e.state == StateLoaded {
		e.state = StateStale
	}
	s.notify()
}

// HandleMessageDeleted replaces the conversation's last message with a
// tombstone, but only when messageID still is the last message. Unread
// counts are left alone.
func (s *ListStore) HandleMessageDeleted(key, convoID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateLocked(key, convoID, func(c *ConvoSummary) *ConvoSummary {
		if c.LastMessage == nil || c.LastMessage.ID != messageID {
			return c
		}
		next := *c
		next.LastMessage = Tombstone(messageID)
		return &next
	})
}

// HandleRead clears the conversation's unread count. Repeat calls are no-ops.
func (s *ListStore) HandleRead(key, convoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateLocked(key, convoID, func(c *ConvoSummary) *ConvoSummary {
		if c.UnreadCount == 0 {
			return c
		}
		next := *c
		next.UnreadCount = 0
		return &next
	})
}

// HandleConvoCreated marks the list stale so the next refresh picks up the
// new conversation. The snapshot itself cannot be patched because the convo
// is not in it yet.
func (s *ListStore) HandleConvoCreated(key string) {
	s.MarkStale(key)
}

// Changes coalesces change notifications. Receivers get at least one signal
// after any mutation; bursts may collapse into a single signal.
func (s *ListStore) Changes() <-chan struct{} {
	return s.changes
}

func (s *ListStore) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
