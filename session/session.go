// Package session derives the caller's session from the credential the
// identity provider presents: signed out, signed in but unverified, or
// signed in and verified with a resolved role.
package session

import (
	"context"
	"errors"
	"fmt"

	"gramaalert-be/models"

	"go.uber.org/zap"
)

type State int

const (
	SignedOut State = iota
	SignedInUnverified
	SignedInVerified
)

func (s State) String() string {
	switch s {
	case SignedInUnverified:
		return "signed-in-unverified"
	case SignedInVerified:
		return "signed-in-verified"
	}
	return "signed-out"
}

// Credential is the identity provider's view of the current caller.
type Credential struct {
	UID      string
	Email    string
	Verified bool
	Token    string
}

type Session struct {
	State State       `json:"-"`
	UID   string      `json:"uid,omitempty"`
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role,omitempty"`
}

func (s Session) SignedIn() bool { return s.State != SignedOut }
func (s Session) Verified() bool { return s.State == SignedInVerified }
func (s Session) IsAdmin() bool  { return s.Verified() && s.Role == models.RoleAdmin }

// ProfileLookup finds a user profile by identity reference.
type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// RoleCache keeps resolved roles between requests.
type RoleCache interface {
	Get(ctx context.Context, uid string) (models.Role, bool, error)
	Set(ctx context.Context, uid string, role models.Role) error
	Delete(ctx context.Context, uid string) error
}

var ErrProfileNotFound = errors.New("user profile not found")

type Manager struct {
	profiles ProfileLookup
	roles    RoleCache
	log      *zap.Logger
}

func NewManager(profiles ProfileLookup, roles RoleCache, log *zap.Logger) *Manager {
	return &Manager{profiles: profiles, roles: roles, log: log}
}

// Resolve recomputes the session for a credential. Unverified sessions carry
// no role; verified ones get the role from the profile, cached per uid.
func (m *Manager) Resolve(ctx context.Context, cred *Credential) (Session, error) {
	if cred == nil || cred.UID == "" {
		return Session{State: SignedOut}, nil
	}
	s := Session{State: SignedInUnverified, UID: cred.UID, Email: cred.Email}
	if !cred.Verified {
		return s, nil
	}
	s.State = SignedInVerified

	role, ok, err := m.roles.Get(ctx, cred.UID)
	if err != nil {
		m.log.Warn("role cache read failed", zap.String("uid", cred.UID), zap.Error(err))
	}
	if ok {
		s.Role = role
		return s, nil
	}

	u, err := m.profiles.GetByID(ctx, cred.UID)
	if err != nil {
		return s, fmt.Errorf("resolve role: %w", err)
	}
	if u == nil {
		return s, ErrProfileNotFound
	}
	s.Role = u.Role
	if err := m.roles.Set(ctx, cred.UID, u.Role); err != nil {
		m.log.Warn("role cache write failed", zap.String("uid", cred.UID), zap.Error(err))
	}
	return s, nil
}

// Forget discards everything cached for uid; used on logout.
func (m *Manager) Forget(ctx context.Context, uid string) error {
	if uid == "" {
		return nil
	}
	return m.roles.Delete(ctx, uid)
}
