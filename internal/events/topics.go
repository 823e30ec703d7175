package events

const (
	TopicMessageCreated   = "convo.message.created"
	TopicMessageDeleted   = "convo.message.deleted"
	TopicConvoRead        = "convo.read"
	TopicConvoCreated     = "convo.created"
	TopicConvoListChanged = "convo.list.changed"
	TopicSyncStatus       = "sync.status"
	TopicBadgeUpdated     = "badge.updated"
)
