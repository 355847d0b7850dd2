package domain

import (
	"fmt"
	"strings"
	"time"
)

// Group is a named word collection owned by one user and shared with its members.
type Group struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewGroup creates a group with a trimmed name.
func NewGroup(ownerID int64, name string) (*Group, error) {
	g := &Group{
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks if the Group has valid data.
func (g *Group) Validate() error {
	if g.OwnerID <= 0 {
		return fmt.Errorf("%w: group owner", ErrInvalidID)
	}
	if g.Name == "" {
		return fmt.Errorf("%w: group name cannot be empty", ErrValidation)
	}
	return nil
}
