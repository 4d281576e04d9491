package domain

import (
	"slices"
	"time"
)

// Board groups tasks under an owner and a member set. The owner is always
// implicitly a member.
type Board struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Owner       string    `json:"owner"`
	Members     []string  `json:"members"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate checks the field constraints for a board about to be persisted.
func (b *Board) Validate() error {
	if b.Title == "" {
		return ValidationError{Field: "title", Message: "required"}
	}
	if len(b.Title) > 100 {
		return ValidationError{Field: "title", Message: "must be at most 100 characters"}
	}
	if len(b.Description) > 500 {
		return ValidationError{Field: "description", Message: "must be at most 500 characters"}
	}
	if b.Owner == "" {
		return ValidationError{Field: "owner", Message: "required"}
	}
	return nil
}

// CanAccess reports whether actor may read or mutate tasks on the board.
func (b *Board) CanAccess(actor string) bool {
	if b == nil {
		return false
	}
	return b.Owner == actor || b.IsPublic || slices.Contains(b.Members, actor)
}

// IsOwner reports whether actor owns the board. Member management and board
// deletion require ownership, not mere membership.
func (b *Board) IsOwner(actor string) bool {
	return b != nil && b.Owner == actor
}
