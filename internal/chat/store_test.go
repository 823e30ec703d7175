package chat

import (
	"testing"
	"time"
)

func testConvo(id string, unread int, members ...Profile) *ConvoSummary {
	return &ConvoSummary{
		ID:          id,
		Rev:         "rev-" + id,
		Members:     members,
		UnreadCount: unread,
	}
}

func member(did, handle string) Profile {
	return Profile{DID: did, Handle: handle}
}

func drainChanges(s *ListStore) {
	select {
	case <-s.Changes():
	default:
	}
}

func changed(s *ListStore) bool {
	select {
	case <-s.Changes():
		return true
	default:
		return false
	}
}

func TestListStore_Replace_InstallsLoadedSnapshot(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")

	gen := store.BeginFetch(key)
	if _, state, ok := store.Get(key); !ok || state != StateLoading {
		t.Fatalf("expected loading entry after BeginFetch, got ok=%v state=%v", ok, state)
	}

	ok := store.Replace(key, gen, []Page{{
		Cursor: "page2",
		Convos: []*ConvoSummary{testConvo("c1", 2, member("did:plc:alice", "alice.test"), member("did:plc:bob", "bob.test"))},
	}})
	if !ok {
		t.Fatalf("expected Replace to install snapshot")
	}

	snap, state, ok := store.Get(key)
	if !ok || state != StateLoaded {
		t.Fatalf("expected loaded snapshot, got ok=%v state=%v", ok, state)
	}
	if snap.Len() != 1 || snap.Pages[0].Cursor != "page2" {
		t.Fatalf("unexpected snapshot contents: %+v", snap)
	}
}

func TestListStore_AppendPage_ExtendsSnapshotInOrder(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")

	gen := store.BeginFetch(key)
	store.Replace(key, gen, []Page{{Cursor: "p2", Convos: []*ConvoSummary{testConvo("c1", 0)}}})
	if !store.AppendPage(key, gen, Page{Convos: []*ConvoSummary{testConvo("c2", 1)}}) {
		t.Fatalf("expected AppendPage to succeed")
	}

	snap, _, _ := store.Get(key)
	convos := snap.Convos()
	if len(convos) != 2 || convos[0].ID != "c1" || convos[1].ID != "c2" {
		t.Fatalf("unexpected flattened order: %+v", convos)
	}
}

func TestListStore_HandleRead_ClearsUnreadOnceAndPreservesOthers(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")
	gen := store.BeginFetch(key)
	store.Replace(key, gen, []Page{{Convos: []*ConvoSummary{
		testConvo("c1", 3),
		testConvo("c2", 7),
	}}})
	before, _, _ := store.Get(key)
	untouched := before.Pages[0].Convos[1]
	drainChanges(store)

	store.HandleRead(key, "c1")

	after, _, _ := store.Get(key)
	got, _ := after.Find("c1")
	if got.UnreadCount != 0 {
		t.Fatalf("expected unread cleared, got %d", got.UnreadCount)
	}
	if !changed(store) {
		t.Fatalf("expected a change signal after clearing unread")
	}
	if other, _ := after.Find("c2"); other != untouched {
		t.Fatalf("expected untouched conversation to keep its identity")
	}

	store.HandleRead(key, "c1")
	if changed(store) {
		t.Fatalf("expected repeated read to be a silent no-op")
	}
	again, _, _ := store.Get(key)
	if got2, _ := again.Find("c1"); got2.UnreadCount != 0 {
		t.Fatalf("expected unread to stay cleared, got %d", got2.UnreadCount)
	}
}

func TestListStore_HandleNewMessage_RecordsMessageAndMarksStale(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")
	gen := store.BeginFetch(key)
	store.Replace(key, gen, []Page{{Convos: []*ConvoSummary{testConvo("c1", 1)}}})

	msg := &LastMessage{ID: "m9", Text: "hello", SenderDID: "did:plc:bob", SentAt: time.Now()}
	store.HandleNewMessage(key, "c1", msg)

	snap, state, _ := store.Get(key)
	got, _ := snap.Find("c1")
	if got.LastMessage != msg {
		t.Fatalf("expected last message to be recorded")
	}
	if got.UnreadCount != 2 {
		t.Fatalf("expected unread bumped to 2, got %d", got.UnreadCount)
	}
	if state != StateStale {
		t.Fatalf("expected snapshot marked stale, got %v", state)
	}
}

func TestListStore_HandleNewMessage_UnknownConvoOnlyMarksStale(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")
	gen := store.BeginFetch(key)
	store.Replace(key, gen, []Page{{Convos: []*ConvoSummary{testConvo("c1", 1)}}})
	before, _, _ := store.Get(key)
	kept := before.Pages[0].Convos[0]

	store.HandleNewMessage(key, "c-brand-new", &LastMessage{ID: "m1"})

	after, state, _ := store.Get(key)
	if got, _ := after.Find("c1"); got != kept {
		t.Fatalf("expected existing conversation untouched")
	}
	if after.Len() != 1 {
		t.Fatalf("expected no conversation to appear, got %d", after.Len())
	}
	if state != StateStale {
		t.Fatalf("expected stale state for missing convo, got %v", state)
	}
}

func TestListStore_HandleMessageDeleted_TombstonesOnlyCurrentLastMessage(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")
	convo := testConvo("c1", 4)
	convo.LastMessage = &LastMessage{ID: "m1", Text: "secret", SenderDID: "did:plc:bob"}
	gen := store.BeginFetch(key)
	store.Replace(key, gen, []Page{{Convos: []*ConvoSummary{convo}}})
	drainChanges(store)

	store.HandleMessageDeleted(key, "c1", "m-older")
	if changed(store) {
		t.Fatalf("expected deleting a non-latest message to change nothing")
	}
	snap, _, _ := store.Get(key)
	if got, _ := snap.Find("c1"); got.LastMessage.Text != "secret" {
		t.Fatalf("expected last message preserved, got %+v", got.LastMessage)
	}

	store.HandleMessageDeleted(key, "c1", "m1")
	snap, _, _ = store.Get(key)
	got, _ := snap.Find("c1")
	if !got.LastMessage.Deleted || got.LastMessage.ID != "m1" {
		t.Fatalf("expected tombstone for m1, got %+v", got.LastMessage)
	}
	if got.LastMessage.Text != "" {
		t.Fatalf("expected tombstone to carry no content, got %q", got.LastMessage.Text)
	}
	if got.UnreadCount != 4 {
		t.Fatalf("expected unread count untouched by delete, got %d", got.UnreadCount)
	}
}

func TestListStore_UpdatesOnAbsentKey_AreNoOps(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")

	store.HandleNewMessage(key, "c1", &LastMessage{ID: "m1"})
	store.HandleMessageDeleted(key, "c1", "m1")
	store.HandleRead(key, "c1")
	store.HandleConvoCreated(key)

	if changed(store) {
		t.Fatalf("expected no change signals for an absent key")
	}
	if _, _, ok := store.Get(key); ok {
		t.Fatalf("expected key to stay absent")
	}
}

func TestListStore_Invalidate_DiscardsLateFetchResults(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")

	gen := store.BeginFetch(key)
	store.Invalidate(key)

	if store.Replace(key, gen, []Page{{Convos: []*ConvoSummary{testConvo("c1", 0)}}}) {
		t.Fatalf("expected stale-generation Replace to be discarded")
	}
	if _, _, ok := store.Get(key); ok {
		t.Fatalf("expected cache to stay absent after invalidation")
	}

	fresh := store.BeginFetch(key)
	if fresh == gen {
		t.Fatalf("expected a new generation after invalidation")
	}
	if !store.Replace(key, fresh, []Page{{Convos: []*ConvoSummary{testConvo("c1", 0)}}}) {
		t.Fatalf("expected current-generation Replace to install")
	}
}

func TestListStore_FailFetch_KeepsLastGoodSnapshot(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")
	gen := store.BeginFetch(key)
	store.Replace(key, gen, []Page{{Convos: []*ConvoSummary{testConvo("c1", 5)}}})

	gen = store.BeginFetch(key)
	store.FailFetch(key, gen)

	snap, state, ok := store.Get(key)
	if !ok || snap.Len() != 1 {
		t.Fatalf("expected last good snapshot preserved, got ok=%v len=%d", ok, snap.Len())
	}
	if got, _ := snap.Find("c1"); got.UnreadCount != 5 {
		t.Fatalf("expected cached data intact, got %+v", got)
	}
	if state != StateStale {
		t.Fatalf("expected stale state after failed refresh, got %v", state)
	}
}

func TestListStore_FailFetch_RemovesEntryThatNeverLoaded(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")

	gen := store.BeginFetch(key)
	store.FailFetch(key, gen)

	if _, _, ok := store.Get(key); ok {
		t.Fatalf("expected key back to absent after first fetch failed")
	}
}

func TestListStore_Restore_SeedsStaleSnapshot(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")

	store.Restore(key, []*ConvoSummary{testConvo("c1", 2)})

	snap, state, ok := store.Get(key)
	if !ok || state != StateStale {
		t.Fatalf("expected stale warm-start snapshot, got ok=%v state=%v", ok, state)
	}
	if snap.Len() != 1 {
		t.Fatalf("expected restored convo, got %d", snap.Len())
	}

	store.Restore(ListKey("did:plc:bob"), nil)
	if _, _, ok := store.Get(ListKey("did:plc:bob")); ok {
		t.Fatalf("expected empty restore to be skipped")
	}
}

func TestListStore_HandleConvoCreated_MarksLoadedSnapshotStale(t *testing.T) {
	store := NewListStore()
	key := ListKey("did:plc:alice")
	gen := store.BeginFetch(key)
	store.Replace(key, gen, []Page{{Convos: []*ConvoSummary{testConvo("c1", 0)}}})

	store.HandleConvoCreated(key)

	if !store.Stale(key) {
		t.Fatalf("expected snapshot marked stale after convo creation")
	}
	snap, _, _ := store.Get(key)
	if snap.Len() != 1 {
		t.Fatalf("expected snapshot data untouched, got %d convos", snap.Len())
	}
}

func TestListStore_Keys_SortedAndScopedToPopulatedEntries(t *testing.T) {
	store := NewListStore()
	genB := store.BeginFetch(ListKey("did:plc:bob"))
	store.Replace(ListKey("did:plc:bob"), genB, []Page{{Convos: []*ConvoSummary{testConvo("c2", 0)}}})
	genA := store.BeginFetch(ListKey("did:plc:alice"))
	store.Replace(ListKey("did:plc:alice"), genA, []Page{{Convos: []*ConvoSummary{testConvo("c1", 0)}}})

	keys := store.Keys()
	if len(keys) != 2 || keys[0] != ListKey("did:plc:alice") || keys[1] != ListKey("did:plc:bob") {
		t.Fatalf("unexpected key order: %v", keys)
	}
}
