package users

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the account kind that decides which dashboard a user lands on.
// Values read from provider metadata are kept verbatim, so a RoleType may hold
// an unrecognised role.
type RoleType string

const (
	RoleStudent RoleType = "student"
	RoleTeacher RoleType = "teacher"
	RoleParent  RoleType = "parent"
	RoleAdmin   RoleType = "admin"
)

// MetadataRoleKey is the metadata entry carrying the role chosen at sign-up.
const MetadataRoleKey = "role"

// MinPasswordLength is the shortest password the provider accepts.
const MinPasswordLength = 6

var knownRoles = map[RoleType]struct{}{
	RoleStudent: {},
	RoleTeacher: {},
	RoleParent:  {},
	RoleAdmin:   {},
}

// Known reports whether r is one of the four account kinds.
func (r RoleType) Known() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r RoleType) String() string {
	return string(r)
}

// NormaliseRole trims r and defaults an empty role to student. Anything else is
// returned unchanged.
func NormaliseRole(r RoleType) RoleType {
	r = RoleType(strings.TrimSpace(string(r)))
	if r == "" {
		return RoleStudent
	}
	return r
}

// RoleFromMetadata reads the role out of user metadata.
func RoleFromMetadata(metadata map[string]any) RoleType {
	raw, _ := metadata[MetadataRoleKey].(string)
	return NormaliseRole(RoleType(raw))
}

type User struct {
	ID            string         `json:"id,omitempty"`
	Email         string         `json:"email,omitempty"`
	PasswordHash  string         `json:"-"`
	FullName      string         `json:"full_name,omitempty"`
	Role          RoleType       `json:"role,omitempty"`
	EmailVerified bool           `json:"email_verified"`
	Metadata      map[string]any `json:"user_metadata,omitempty"` // Role-specific sign-up attributes
	DateJoined    time.Time      `json:"date_joined,omitempty"`
	LastLogin     time.Time      `json:"last_login,omitempty"`
}

// RoleName returns the normalised role as an optional string, the shape the
// dashboard resolver expects.
func (u *User) RoleName() *string {
	if u == nil {
		return nil
	}
	role := NormaliseRole(u.Role).String()
	return &role
}

// Clone returns a copy that shares nothing mutable with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Metadata != nil {
		c.Metadata = make(map[string]any, len(u.Metadata))
		for k, v := range u.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
