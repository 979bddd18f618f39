package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleAdmin
}

// User is the stored profile of a registered resident or official.
// Role is read for navigation gating only.
type User struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	Email             string    `bson:"email" json:"email"`
	Password          string    `bson:"password,omitempty" json:"-"`
	Role              Role      `bson:"role" json:"role"`
	Verified          bool      `bson:"verified" json:"verified"`
	VerificationToken string    `bson:"verificationToken,omitempty" json:"-"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}
