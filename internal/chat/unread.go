package chat

import "strconv"

// maxBadgeCount caps the badge text; anything above renders as "30+".
const maxBadgeCount = 30

type Badge struct {
	Count   int
	Display string
}

// Decision is a moderation verdict for a single profile.
type Decision struct {
	Blocked bool
	Muted   bool
}

// Decider resolves the account's moderation verdict for a profile. ok is
// false while moderation preferences are not available yet; callers must
// treat that conversation as excluded rather than guess.
type Decider interface {
	Decide(p Profile) (Decision, bool)
}

// ProfileOverlay patches server profiles with locally pending edits. Overlay
// is primed with every profile that may be queried and returns a getter; the
// getter's result for unprimed DIDs is unspecified.
type ProfileOverlay interface {
	Overlay(base []Profile) func(did string) Profile
}

// CountUnread counts the conversations with unread messages, excluding the
// currently open conversation, conversations without an identifiable other
// member, muted conversations and members the account cannot see. The count
// is conversations, not messages.
func CountUnread(convos []*ConvoSummary, currentConvoID, accountDID string, decider Decider, overlay ProfileOverlay) Badge {
	var resolve func(did string) Profile
	if overlay != nil {
		resolve = overlay.Overlay(ExtractOtherMembers(convos, accountDID))
	}

	count := 0
	for _, convo := range convos {
		if convo.ID == currentConvoID {
			continue
		}
		other, ok := otherMember(convo, accountDID)
		if !ok {
			continue
		}
		if resolve != nil {
			other = resolve(other.DID)
		}
		if decider == nil {
			continue
		}
		decision, ok := decider.Decide(other)
		if !ok {
			continue
		}
		if convo.Muted || decision.Blocked {
			continue
		}
		if convo.UnreadCount > 0 {
			count++
		}
	}

	return Badge{Count: count, Display: FormatBadgeCount(count)}
}

// FormatBadgeCount renders a badge count: "" for none, the number up to 30,
// "30+" beyond.
func FormatBadgeCount(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > maxBadgeCount:
		return strconv.Itoa(maxBadgeCount) + "+"
	default:
		return strconv.Itoa(count)
	}
}
