package chat

import "testing"

func scanStore(t *testing.T) *ListStore {
	t.Helper()
	store := NewListStore()

	keyA := ListKey("did:plc:alice")
	genA := store.BeginFetch(keyA)
	store.Replace(keyA, genA, []Page{
		{Convos: []*ConvoSummary{
			testConvo("a1", 0, member("did:plc:alice", "alice.test"), member("did:plc:bob", "bob.one")),
		}},
		{Convos: []*ConvoSummary{
			testConvo("a2", 0, member("did:plc:alice", "alice.test"), member("did:plc:bob", "bob.two")),
		}},
	})

	keyB := ListKey("did:plc:zoe")
	genB := store.BeginFetch(keyB)
	store.Replace(keyB, genB, []Page{{Convos: []*ConvoSummary{
		testConvo("z1", 0, member("did:plc:zoe", "zoe.test"), member("did:plc:bob", "bob.three")),
	}}})

	return store
}

func TestListStore_MembersByDID_YieldsMatchesInCacheOrder(t *testing.T) {
	store := scanStore(t)

	var handles []string
	for p := range store.MembersByDID("did:plc:bob") {
		handles = append(handles, p.Handle)
	}

	want := []string{"bob.one", "bob.two", "bob.three"}
	if len(handles) != len(want) {
		t.Fatalf("expected %d matches, got %v", len(want), handles)
	}
	for i := range want {
		if handles[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, handles)
		}
	}
}

func TestListStore_MembersByDID_StopsOnEarlyBreak(t *testing.T) {
	store := scanStore(t)

	var first Profile
	seen := 0
	for p := range store.MembersByDID("did:plc:bob") {
		first = p
		seen++
		break
	}

	if seen != 1 || first.Handle != "bob.one" {
		t.Fatalf("expected a single yielded match, got seen=%d first=%+v", seen, first)
	}
}

func TestListStore_MembersByDID_RestartsFromScratch(t *testing.T) {
	store := scanStore(t)
	seq := store.MembersByDID("did:plc:bob")

	for range seq {
		break
	}

	count := 0
	for range seq {
		count++
	}
	if count != 3 {
		t.Fatalf("expected a fresh pass to see all matches, got %d", count)
	}
}

func TestListStore_MembersByDID_NoMatches(t *testing.T) {
	store := scanStore(t)

	for p := range store.MembersByDID("did:plc:stranger") {
		t.Fatalf("expected no matches, got %+v", p)
	}
}

func TestListStore_MembersByDID_EmptyStore(t *testing.T) {
	store := NewListStore()

	for p := range store.MembersByDID("did:plc:bob") {
		t.Fatalf("expected empty sequence over an empty store, got %+v", p)
	}
}
