package auth

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleCashier:
		return RoleCashier, nil
	}
	return "", ErrInvalidRole
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("user with this email already exists")
	ErrInvalidRole      = errors.New("role must be admin, manager or cashier")
	ErrFieldsRequired   = errors.New("email, username and password are required")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrWrongCredentials = errors.New("email or password is incorrect")
	ErrSelfDelete       = errors.New("a user may not delete their own account")
	ErrSessionNotFound  = errors.New("session not found or expired")
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Session identifies one logged-in user. It is resolved once per request
// from the bearer token and passed explicitly to anything that needs the
// caller's identity or role.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type NewUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in NewUserInput) Validate() error {
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Password) == "" {
		return ErrFieldsRequired
	}
	if len(in.Password) < 6 {
		return ErrPasswordTooShort
	}
	return nil
}
