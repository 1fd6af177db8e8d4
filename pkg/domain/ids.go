// Package domain holds typed identifiers shared across bounded contexts.
//
// Every aggregate gets its own UUID-backed ID type so a GroupID can never be passed
// where a UserID is expected. Parse functions are the trust boundary for IDs arriving
// over HTTP and reject empty, malformed, and nil UUIDs.
package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"

	dErrors "spendwise/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	GroupID        uuid.UUID
	MembershipID   uuid.UUID
	FriendshipID   uuid.UUID
	ExpenseID      uuid.UUID
	NotificationID uuid.UUID
)

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

func ParseGroupID(s string) (GroupID, error) {
	u, err := parseUUID(s, "group")
	return GroupID(u), err
}

func ParseMembershipID(s string) (MembershipID, error) {
	u, err := parseUUID(s, "membership")
	return MembershipID(u), err
}

func ParseFriendshipID(s string) (FriendshipID, error) {
	u, err := parseUUID(s, "friendship")
	return FriendshipID(u), err
}

func ParseExpenseID(s string) (ExpenseID, error) {
	u, err := parseUUID(s, "expense")
	return ExpenseID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification")
	return NotificationID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return u, nil
}

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id GroupID) String() string        { return uuid.UUID(id).String() }
func (id MembershipID) String() string   { return uuid.UUID(id).String() }
func (id FriendshipID) String() string   { return uuid.UUID(id).String() }
func (id ExpenseID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id GroupID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id MembershipID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id FriendshipID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ExpenseID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// JSON encodes IDs as their canonical string form.

func (id UserID) MarshalText() ([]byte, error)         { return marshalText(uuid.UUID(id)) }
func (id GroupID) MarshalText() ([]byte, error)        { return marshalText(uuid.UUID(id)) }
func (id MembershipID) MarshalText() ([]byte, error)   { return marshalText(uuid.UUID(id)) }
func (id FriendshipID) MarshalText() ([]byte, error)   { return marshalText(uuid.UUID(id)) }
func (id ExpenseID) MarshalText() ([]byte, error)      { return marshalText(uuid.UUID(id)) }
func (id NotificationID) MarshalText() ([]byte, error) { return marshalText(uuid.UUID(id)) }

func (id *UserID) UnmarshalText(b []byte) error         { return unmarshalText((*uuid.UUID)(id), b) }
func (id *GroupID) UnmarshalText(b []byte) error        { return unmarshalText((*uuid.UUID)(id), b) }
func (id *MembershipID) UnmarshalText(b []byte) error   { return unmarshalText((*uuid.UUID)(id), b) }
func (id *FriendshipID) UnmarshalText(b []byte) error   { return unmarshalText((*uuid.UUID)(id), b) }
func (id *ExpenseID) UnmarshalText(b []byte) error      { return unmarshalText((*uuid.UUID)(id), b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return unmarshalText((*uuid.UUID)(id), b) }

// database/sql support so stores can pass and scan typed IDs directly.

func (id UserID) Value() (driver.Value, error)         { return uuid.UUID(id).String(), nil }
func (id GroupID) Value() (driver.Value, error)        { return uuid.UUID(id).String(), nil }
func (id MembershipID) Value() (driver.Value, error)   { return uuid.UUID(id).String(), nil }
func (id FriendshipID) Value() (driver.Value, error)   { return uuid.UUID(id).String(), nil }
func (id ExpenseID) Value() (driver.Value, error)      { return uuid.UUID(id).String(), nil }
func (id NotificationID) Value() (driver.Value, error) { return uuid.UUID(id).String(), nil }

func (id *UserID) Scan(src any) error         { return scanUUID((*uuid.UUID)(id), src) }
func (id *GroupID) Scan(src any) error        { return scanUUID((*uuid.UUID)(id), src) }
func (id *MembershipID) Scan(src any) error   { return scanUUID((*uuid.UUID)(id), src) }
func (id *FriendshipID) Scan(src any) error   { return scanUUID((*uuid.UUID)(id), src) }
func (id *ExpenseID) Scan(src any) error      { return scanUUID((*uuid.UUID)(id), src) }
func (id *NotificationID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

func marshalText(u uuid.UUID) ([]byte, error) {
	return []byte(u.String()), nil
}

func unmarshalText(dst *uuid.UUID, b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return fmt.Errorf("parse id: %w", err)
	}
	*dst = u
	return nil
}

func scanUUID(dst *uuid.UUID, src any) error {
	if src == nil {
		*dst = uuid.Nil
		return nil
	}
	return dst.Scan(src)
}
