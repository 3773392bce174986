package domain

import "time"

// UserRole separates client-organization members from platform staff.
type UserRole string

const (
	RoleMember UserRole = "member"
	RoleStaff  UserRole = "staff"
	RoleAdmin  UserRole = "admin"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is anyone who can sign in: an organization member submitting
// tickets, or platform staff working across all organizations.
type User struct {
	ID             string
	OrganizationID *string
	FirstName      string
	LastName       string
	Email          string
	PasswordHash   string
	Role           UserRole
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName returns the display name used in notifications and summaries.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsPlatformStaff reports whether the user may manage tickets across
// organizations.
func (u *User) IsPlatformStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}

// Actor identifies who performs a lifecycle operation. Handlers resolve
// it from the authenticated principal and pass it explicitly; services
// never read ambient session state.
type Actor struct {
	ID   string
	Role UserRole
}

// IsStaff reports whether the actor holds platform staff privilege.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}
