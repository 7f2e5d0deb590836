package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

type User struct {
	ID                     string
	Name                   string
	Email                  string
	PasswordHash           string // argon2id PHC string, or bcrypt for imported records
	Role                   string
	ForcePasswordChange    bool
	PasswordResetRequested bool
	ResetTokenHash         *string // fingerprint of the opaque reset token
	ResetTokenExpires      *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// HasValidResetToken reports whether a reset token is set and unexpired at now.
func (u *User) HasValidResetToken(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpires != nil && now.Before(*u.ResetTokenExpires)
}

// PublicUser is the user as returned over the API: no hash, no token fields.
type PublicUser struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	Role                   string    `json:"role"`
	ForcePasswordChange    bool      `json:"forcePasswordChange"`
	PasswordResetRequested bool      `json:"passwordResetRequested"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		Role:                   u.Role,
		ForcePasswordChange:    u.ForcePasswordChange,
		PasswordResetRequested: u.PasswordResetRequested,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

// UserRef is the populated form of a user reference on tasks and comments.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}
