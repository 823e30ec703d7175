package shadow

import (
	"testing"

	"github.com/hipstersmoothie/social-app/internal/chat"
)

func TestStore_Overlay_AppliesPendingPatches(t *testing.T) {
	store := NewStore()
	store.SetBlocking("did:plc:bob", true)
	store.SetMuted("did:plc:carol", true)

	base := []chat.Profile{
		{DID: "did:plc:bob", Handle: "bob.test"},
		{DID: "did:plc:carol", Handle: "carol.test"},
		{DID: "did:plc:dan", Handle: "dan.test"},
	}
	resolve := store.Overlay(base)

	if p := resolve("did:plc:bob"); !p.Viewer.Blocking {
		t.Fatalf("expected pending block applied, got %+v", p)
	}
	if p := resolve("did:plc:carol"); !p.Viewer.Muted {
		t.Fatalf("expected pending mute applied, got %+v", p)
	}
	if p := resolve("did:plc:dan"); p.Viewer.Blocking || p.Viewer.Muted {
		t.Fatalf("expected untouched profile, got %+v", p)
	}
}

func TestStore_Overlay_SnapshotIsolatedFromLaterEdits(t *testing.T) {
	store := NewStore()
	base := []chat.Profile{{DID: "did:plc:bob", Handle: "bob.test"}}
	resolve := store.Overlay(base)

	store.SetBlocking("did:plc:bob", true)

	if p := resolve("did:plc:bob"); p.Viewer.Blocking {
		t.Fatalf("expected overlay snapshot to ignore later edits, got %+v", p)
	}
}

func TestStore_Clear_RemovesPatch(t *testing.T) {
	store := NewStore()
	store.SetBlocking("did:plc:bob", true)
	store.Clear("did:plc:bob")

	resolve := store.Overlay([]chat.Profile{{DID: "did:plc:bob", Handle: "bob.test"}})
	if p := resolve("did:plc:bob"); p.Viewer.Blocking {
		t.Fatalf("expected cleared patch to stop applying, got %+v", p)
	}
}

func TestStore_Overlay_PatchFieldsCompose(t *testing.T) {
	store := NewStore()
	store.SetBlocking("did:plc:bob", true)
	store.SetMuted("did:plc:bob", true)
	store.SetBlocking("did:plc:bob", false)

	resolve := store.Overlay([]chat.Profile{{DID: "did:plc:bob", Handle: "bob.test"}})
	p := resolve("did:plc:bob")
	if p.Viewer.Blocking {
		t.Fatalf("expected latest blocking value to win, got %+v", p)
	}
	if !p.Viewer.Muted {
		t.Fatalf("expected mute patch preserved, got %+v", p)
	}
}
