package chat

import "time"

// MissingAccountHandle is the placeholder handle the chat service reports for
// members whose account no longer resolves.
const MissingAccountHandle = "missing.invalid"

type Viewer struct {
	Muted     bool `json:"muted,omitempty"`
	Blocking  bool `json:"blocking,omitempty"`
	BlockedBy bool `json:"blockedBy,omitempty"`
}

type Profile struct {
	DID         string   `json:"did"`
	Handle      string   `json:"handle"`
	DisplayName string   `json:"displayName,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Viewer      Viewer   `json:"viewer"`
}

// Known reports whether the profile belongs to a resolvable account. Members
// with no DID or the missing-account placeholder handle fail this.
func (p Profile) Known() bool {
	return p.DID != "" && p.Handle != MissingAccountHandle
}

// LastMessage is the newest message of a conversation. The inbox keeps no
// history beyond it. Deleted marks a tombstone: the message existed and was
// removed, identified by ID only.
type LastMessage struct {
	ID        string    `json:"id"`
	Rev       string    `json:"rev,omitempty"`
	Text      string    `json:"text,omitempty"`
	SenderDID string    `json:"senderDid,omitempty"`
	SentAt    time.Time `json:"sentAt,omitzero"`
	Deleted   bool      `json:"deleted,omitempty"`
}

func Tombstone(messageID string) *LastMessage {
	return &LastMessage{ID: messageID, Deleted: true}
}

// ConvoSummary is one conversation in the inbox list. Summaries published
// through a Snapshot are shared between readers and must not be mutated;
// updates install a replacement record instead.
type ConvoSummary struct {
	ID          string       `json:"id"`
	Rev         string       `json:"rev"`
	Members     []Profile    `json:"members"`
	UnreadCount int          `json:"unreadCount"`
	Muted       bool         `json:"muted,omitempty"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
}

// Page is one fetched slice of the conversation list. Cursor addresses the
// page after it; empty means the list is complete.
type Page struct {
	Cursor string
	Convos []*ConvoSummary
}

// Snapshot is the ordered page set cached under one list key. Conversation
// ids are unique across all pages.
type Snapshot struct {
	Pages []Page
}
