package chat

// Bus payloads produced by the conversation log tail. AccountDID names the
// account whose inbox the event belongs to, not the actor inside it.

type MessageCreated struct {
	AccountDID string
	ConvoID    string
	Message    *LastMessage
}

type MessageDeleted struct {
	AccountDID string
	ConvoID    string
	MessageID  string
}

type ConvoRead struct {
	AccountDID string
	ConvoID    string
}

type ConvoCreated struct {
	AccountDID string
	ConvoID    string
}
