package models

import "time"

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusRejected FriendshipStatus = "rejected"
	FriendshipStatusRemoved  FriendshipStatus = "removed"
)

// Terminal reports whether no further transition is allowed.
func (s FriendshipStatus) Terminal() bool {
	return s == FriendshipStatusAccepted || s == FriendshipStatusRejected || s == FriendshipStatusRemoved
}

// CanTransition enforces pending -> terminal, plus accepted -> removed.
func (s FriendshipStatus) CanTransition(to FriendshipStatus) bool {
	switch s {
	case FriendshipStatusPending:
		return to.Terminal()
	case FriendshipStatusAccepted:
		return to == FriendshipStatusRemoved
	default:
		return false
	}
}

type Friendship struct {
	ID          string           `firestore:"id" json:"id"`
	Users       []string         `firestore:"users" json:"users"`
	Status      FriendshipStatus `firestore:"status" json:"status"`
	RequestedBy string           `firestore:"requestedBy" json:"requestedBy"`
	AcceptedBy  string           `firestore:"acceptedBy,omitempty" json:"acceptedBy,omitempty"`
	CreatedAt   time.Time        `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time        `firestore:"updatedAt" json:"updatedAt"`
}

// Counterparty returns the id in the pair that is not uid, or "" when uid is
// not a member or the pair is malformed.
func (f Friendship) Counterparty(uid string) string {
	if len(f.Users) != 2 {
		return ""
	}
	switch uid {
	case f.Users[0]:
		return f.Users[1]
	case f.Users[1]:
		return f.Users[0]
	default:
		return ""
	}
}

// Involves reports whether uid is one side of the pair.
func (f Friendship) Involves(uid string) bool {
	return f.Counterparty(uid) != ""
}

// FriendshipID returns the deterministic document id for a pair, independent
// of who sent the request.
func FriendshipID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// FriendshipPatch carries a status transition.
type FriendshipPatch struct {
	Status     *FriendshipStatus `json:"status,omitempty"`
	AcceptedBy *string           `json:"acceptedBy,omitempty"`
	UpdatedAt  *time.Time        `json:"updatedAt,omitempty"`
}

func (p FriendshipPatch) Apply(f Friendship) Friendship {
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.AcceptedBy != nil {
		f.AcceptedBy = *p.AcceptedBy
	}
	if p.UpdatedAt != nil {
		f.UpdatedAt = *p.UpdatedAt
	}
	return f
}
