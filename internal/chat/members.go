package chat

// ExtractOtherMembers collects, for each conversation, the first member that
// is not the account holder. Members that fail Known are skipped, so the
// result is exactly the profile set unread counting will consult.
func ExtractOtherMembers(convos []*ConvoSummary, accountDID string) []Profile {
	out := make([]Profile, 0, len(convos))
	for _, convo := range convos {
		if other, ok := otherMember(convo, accountDID); ok {
			out = append(out, other)
		}
	}

	return out
}

// otherMember picks the first member whose DID differs from accountDID. ok is
// false when there is no such member or the member's account is gone.
func otherMember(convo *ConvoSummary, accountDID string) (Profile, bool) {
	for _, member := range convo.Members {
		if member.DID == accountDID {
			continue
		}
		if !member.Known() {
			return Profile{}, false
		}
		return member, true
	}

	return Profile{}, false
}
