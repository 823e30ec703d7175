package chatapi

import (
	"time"

	"github.com/hipstersmoothie/social-app/internal/chat"
)

// Lexicon type discriminators used in service responses.
const (
	typeMessageView        = "chat.bsky.convo.defs#messageView"
	typeDeletedMessageView = "chat.bsky.convo.defs#deletedMessageView"
	typeLogBeginConvo      = "chat.bsky.convo.defs#logBeginConvo"
	typeLogCreateMessage   = "chat.bsky.convo.defs#logCreateMessage"
	typeLogDeleteMessage   = "chat.bsky.convo.defs#logDeleteMessage"
	typeLogReadMessage     = "chat.bsky.convo.defs#logReadMessage"
)

type LogKind int

const (
	LogKindUnknown LogKind = iota
	LogKindMessageCreated
	LogKindMessageDeleted
	LogKindConvoRead
	LogKindConvoCreated
)

// LogEvent is one decoded conversation log entry. Message is set for the
// message kinds and nil otherwise.
type LogEvent struct {
	Kind    LogKind
	Rev     string
	ConvoID string
	Message *chat.LastMessage
}

type wireViewer struct {
	Muted     bool   `json:"muted"`
	Blocking  string `json:"blocking"`
	BlockedBy bool   `json:"blockedBy"`
}

type wireLabel struct {
	Val string `json:"val"`
	Neg bool   `json:"neg"`
}

type wireProfile struct {
	DID         string      `json:"did"`
	Handle      string      `json:"handle"`
	DisplayName string      `json:"displayName"`
	Viewer      wireViewer  `json:"viewer"`
	Labels      []wireLabel `json:"labels"`
}

type wireSender struct {
	DID string `json:"did"`
}

type wireMessage struct {
	Type   string     `json:"$type"`
	ID     string     `json:"id"`
	Rev    string     `json:"rev"`
	Text   string     `json:"text"`
	Sender wireSender `json:"sender"`
	SentAt time.Time  `json:"sentAt"`
}

type wireConvo struct {
	ID          string        `json:"id"`
	Rev         string        `json:"rev"`
	Members     []wireProfile `json:"members"`
	LastMessage *wireMessage  `json:"lastMessage"`
	Muted       bool          `json:"muted"`
	UnreadCount int           `json:"unreadCount"`
}

type listConvosResponse struct {
	Cursor string      `json:"cursor"`
	Convos []wireConvo `json:"convos"`
}

type wireLogEntry struct {
	Type    string       `json:"$type"`
	Rev     string       `json:"rev"`
	ConvoID string       `json:"convoId"`
	Message *wireMessage `json:"message"`
}

type getLogResponse struct {
	Cursor string         `json:"cursor"`
	Logs   []wireLogEntry `json:"logs"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (w wireProfile) toProfile() chat.Profile {
	p := chat.Profile{
		DID:         w.DID,
		Handle:      w.Handle,
		DisplayName: w.DisplayName,
		Viewer: chat.Viewer{
			Muted:     w.Viewer.Muted,
			Blocking:  w.Viewer.Blocking != "",
			BlockedBy: w.Viewer.BlockedBy,
		},
	}
	for _, label := range w.Labels {
		if label.Neg || label.Val == "" {
			continue
		}
		p.Labels = append(p.Labels, label.Val)
	}

	return p
}

func (w *wireMessage) toLastMessage() *chat.LastMessage {
	if w == nil {
		return nil
	}

	return &chat.LastMessage{
		ID:        w.ID,
		Rev:       w.Rev,
		Text:      w.Text,
		SenderDID: w.Sender.DID,
		SentAt:    w.SentAt,
		Deleted:   w.Type == typeDeletedMessageView,
	}
}

func (w wireConvo) toSummary() *chat.ConvoSummary {
	members := make([]chat.Profile, 0, len(w.Members))
	for _, m := range w.Members {
		members = append(members, m.toProfile())
	}

	return &chat.ConvoSummary{
		ID:          w.ID,
		Rev:         w.Rev,
		Members:     members,
		UnreadCount: w.UnreadCount,
		Muted:       w.Muted,
		LastMessage: w.LastMessage.toLastMessage(),
	}
}

func (w wireLogEntry) toEvent() LogEvent {
	ev := LogEvent{Rev: w.Rev, ConvoID: w.ConvoID}
	switch w.Type {
	case typeLogCreateMessage:
		ev.Kind = LogKindMessageCreated
		ev.Message = w.Message.toLastMessage()
	case typeLogDeleteMessage:
		ev.Kind = LogKindMessageDeleted
		ev.Message = w.Message.toLastMessage()
	case typeLogReadMessage:
		ev.Kind = LogKindConvoRead
	case typeLogBeginConvo:
		ev.Kind = LogKindConvoCreated
	default:
		ev.Kind = LogKindUnknown
	}

	return ev
}
