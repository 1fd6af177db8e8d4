package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

const (
	MaxNameLength  = 64
	MaxImageLength = 2048
)

type GroupStatus string

const (
	GroupStatusActive   GroupStatus = "active"
	GroupStatusInactive GroupStatus = "inactive"
)

// Group is the aggregate that owns memberships.
//
// Invariants:
//   - Name is 1..64 characters after trimming
//   - OwnerID matches the single accepted membership with RoleOwner
//   - A deleted group is inactive, has DeletedAt set and is never returned by active queries
type Group struct {
	ID        id.GroupID
	Name      string
	Image     string
	OwnerID   id.UserID
	Status    GroupStatus
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewGroup(groupID id.GroupID, name, image string, owner id.UserID, now time.Time) (*Group, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(image) > MaxImageLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "group image must be 2048 characters or less")
	}
	return &Group{
		ID:        groupID,
		Name:      name,
		Image:     image,
		OwnerID:   owner,
		Status:    GroupStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "group name cannot be empty")
	}
	if n > MaxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "group name must be 64 characters or less")
	}
	return nil
}

func (g *Group) IsActive() bool {
	return g.Status == GroupStatusActive && g.DeletedAt == nil
}

func (g *Group) IsOwnedBy(userID id.UserID) bool {
	return g.OwnerID == userID
}

// CanManage checks that actor owns the group.
func (g *Group) CanManage(actor id.UserID) error {
	if !g.IsOwnedBy(actor) {
		return dErrors.New(dErrors.CodeForbidden, "only the group owner can do that")
	}
	return nil
}

// ApplyUpdate sets the provided fields. Nothing changes if any field is invalid.
func (g *Group) ApplyUpdate(name, image *string, now time.Time) error {
	next := *g
	if name != nil {
		next.Name = strings.TrimSpace(*name)
		if err := validateName(next.Name); err != nil {
			return err
		}
	}
	if image != nil {
		if utf8.RuneCountInString(*image) > MaxImageLength {
			return dErrors.New(dErrors.CodeInvariantViolation, "group image must be 2048 characters or less")
		}
		next.Image = *image
	}
	next.UpdatedAt = now
	*g = next
	return nil
}

// ApplyDelete soft-deletes the group.
func (g *Group) ApplyDelete(now time.Time) {
	g.Status = GroupStatusInactive
	g.DeletedAt = &now
	g.UpdatedAt = now
}

func (g *Group) ApplyOwner(owner id.UserID, now time.Time) {
	g.OwnerID = owner
	g.UpdatedAt = now
}
