package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool       *pgxpool.Pool
	sessionTTL time.Duration
}

func NewStore(pool *pgxpool.Pool, sessionTTL time.Duration) *Store {
	return &Store{pool: pool, sessionTTL: sessionTTL}
}

// CreateUser registers a user with the given role (new users created from
// the admin page default to cashier at the handler level). The password is
// hashed before it ever reaches the database.
func (s *Store) CreateUser(ctx context.Context, in NewUserInput, role Role) (User, error) {
	if err := in.Validate(); err != nil {
		return User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	u := User{ID: uuid.NewString(), Username: strings.TrimSpace(in.Username), Email: strings.TrimSpace(in.Email), Role: role}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users(id, username, email, password_hash, role) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		u.ID, u.Username, u.Email, hash, string(u.Role),
	).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, username, email, role, created_at FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetRole is the only mutation an admin can make to an existing user.
func (s *Store) SetRole(ctx context.Context, userID string, role Role) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET role=$2 WHERE id=$1 RETURNING id, username, email, role, created_at`,
		userID, string(role),
	).Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// DeleteUser removes a user and their sessions. Callers must have already
// rejected self-deletion.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	_, _ = s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id=$1`, userID)
	return nil
}

// Login verifies the credentials and opens a session. A missing user and a
// wrong password are indistinguishable to the caller.
func (s *Store) Login(ctx context.Context, email, password string) (Session, User, error) {
	var (
		u    User
		hash string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, created_at FROM users WHERE email=$1`, strings.TrimSpace(email),
	).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, User{}, ErrWrongCredentials
	}
	if err != nil {
		return Session{}, User{}, err
	}
	ok, err := VerifyPassword(password, hash)
	if err != nil {
		return Session{}, User{}, err
	}
	if !ok {
		return Session{}, User{}, ErrWrongCredentials
	}

	sess := Session{Token: uuid.NewString(), UserID: u.ID, Username: u.Username, Role: u.Role}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions(token, user_id, expires_at) VALUES ($1, $2, $3)`,
		sess.Token, u.ID, time.Now().Add(s.sessionTTL),
	)
	if err != nil {
		return Session{}, User{}, err
	}
	return sess, u, nil
}

func (s *Store) Logout(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token=$1`, token)
	return err
}

// Resolve turns a bearer token into the session it identifies, joined with
// the user's current role so a role change applies immediately.
func (s *Store) Resolve(ctx context.Context, token string) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx,
		`SELECT s.token, u.id, u.username, u.role FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.token=$1 AND s.expires_at > now()`, token,
	).Scan(&sess.Token, &sess.UserID, &sess.Username, &sess.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return sess, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate") || strings.Contains(strings.ToLower(err.Error()), "unique")
}
