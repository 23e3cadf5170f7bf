// Package domain holds the typed identifiers shared across the portal.
//
// IDs are distinct uuid-backed types so a verification request ID can never
// be passed where a user ID is expected. Parse functions enforce the trust
// boundary invariant: IDs must be valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "legitid/pkg/domain-errors"
)

type (
	// UserID identifies an account holder.
	UserID uuid.UUID
	// IdentityID identifies a digital identity record.
	IdentityID uuid.UUID
	// RequestID identifies a verification request.
	RequestID uuid.UUID
	// SessionID identifies an authenticated session.
	SessionID uuid.UUID
)

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	if len(raw) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is too long")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil uuid")
	}
	return parsed, nil
}

// ParseUserID validates and converts a raw string into a UserID.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseIdentityID validates and converts a raw string into an IdentityID.
func ParseIdentityID(raw string) (IdentityID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return IdentityID{}, err
	}
	return IdentityID(parsed), nil
}

// ParseRequestID validates and converts a raw string into a RequestID.
func ParseRequestID(raw string) (RequestID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return RequestID{}, err
	}
	return RequestID(parsed), nil
}

// ParseSessionID validates and converts a raw string into a SessionID.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(parsed), nil
}

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id IdentityID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string  { return uuid.UUID(id).String() }
func (id SessionID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id IdentityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// The ID types implement encoding.TextMarshaler so JSON carries them as
// canonical uuid strings, and TextUnmarshaler so decoding enforces the same
// parse invariants as the Parse functions.

func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id IdentityID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *IdentityID) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentityID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RequestID) UnmarshalText(text []byte) error {
	parsed, err := ParseRequestID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SessionID) UnmarshalText(text []byte) error {
	parsed, err := ParseSessionID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewUserID mints a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewIdentityID mints a fresh random IdentityID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

// NewRequestID mints a fresh random RequestID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewSessionID mints a fresh random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }
