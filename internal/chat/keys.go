package chat

import "strings"

const listKeyPrefix = "convo-list/"

// ListKey is the cache key for an account's conversation list.
func ListKey(accountDID string) string {
	return listKeyPrefix + accountDID
}

func IsListKey(key string) bool {
	return strings.HasPrefix(key, listKeyPrefix)
}

func AccountFromListKey(key string) string {
	if !IsListKey(key) {
		return ""
	}

	return strings.TrimPrefix(key, listKeyPrefix)
}
