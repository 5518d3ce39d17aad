// Package moderation decides whether an operator may perform a state
// transition on forum content. The predicate is pure: callers load the
// subject fully hydrated (owner and channel moderator set included) so no
// database access happens here.
package moderation

type SubjectKind string

const (
	KindDiscussion SubjectKind = "discussion"
	KindPost       SubjectKind = "post"
	KindChannel    SubjectKind = "channel"
)

type Operation string

const (
	OpUpdate Operation = "update"
	OpClose  Operation = "close"
	OpDelete Operation = "delete"
	OpSticky Operation = "sticky"
)

// Subject is the fully-resolved authorization input. For a Post the owner
// is the post's author and the moderators come from the owning
// discussion's channel; for a Discussion they come from its own channel.
// Channels have no owner.
type Subject struct {
	Kind         SubjectKind
	OwnerID      int
	ModeratorIDs []int
}

type Operator struct {
	ID      int
	IsAdmin bool
}

// CanOperate implements the moderation decision table. Admins may do
// anything. Sticky is moderator-only even for the content owner. Channel
// update is moderator-only; channels carry no owner-based permission.
func CanOperate(subject Subject, operator Operator, op Operation) bool {
	if operator.IsAdmin {
		return true
	}

	isModerator := false
	for _, id := range subject.ModeratorIDs {
		if id == operator.ID {
			isModerator = true
			break
		}
	}

	switch subject.Kind {
	case KindDiscussion, KindPost:
		isOwner := subject.OwnerID == operator.ID
		switch op {
		case OpSticky:
			return isModerator
		case OpClose, OpDelete, OpUpdate:
			return isModerator || isOwner
		}
	case KindChannel:
		if op == OpUpdate {
			return isModerator
		}
	}

	return false
}
