package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore is the file-backed adapter. Timestamps are stored as RFC 3339
// UTC strings so that range comparisons work lexicographically.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: d, path: path}
	if err := s.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			verified INTEGER NOT NULL DEFAULT 0,
			verification_token TEXT,
			reset_token TEXT,
			reset_token_expires_at TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT 'medium',
			status TEXT NOT NULL DEFAULT 'pending',
			due_date TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

const sqliteUserCols = `id,username,email,password,role,verified,verification_token,reset_token,reset_token_expires_at,created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteUser(row rowScanner) (*User, error) {
	var u User
	var verified int
	var verifyTok, resetTok, resetExp sql.NullString
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Role, &verified, &verifyTok, &resetTok, &resetExp, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	u.Verified = verified != 0
	u.VerificationToken = verifyTok.String
	u.ResetToken = resetTok.String
	if resetExp.Valid && resetExp.String != "" {
		t := parseTime(resetExp.String)
		u.ResetTokenExpires = &t
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(`+sqliteUserCols+`) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Username, u.Email, u.Password, u.Role, boolToInt(u.Verified),
		nullString(u.VerificationToken), nullString(u.ResetToken), nullTime(u.ResetTokenExpires), fmtTime(u.CreatedAt))
	return err
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg interface{}) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserCols+` FROM users WHERE `+where, arg)
	return scanSQLiteUser(row)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, `username = ?`, username)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `email = ?`, email)
}

func (s *SQLiteStore) GetUserByVerificationToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	return s.getUser(ctx, `verification_token = ?`, token)
}

func (s *SQLiteStore) GetUserByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	return s.getUser(ctx, `reset_token = ?`, token)
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email=?, password=?, role=?, verified=?, verification_token=?, reset_token=?, reset_token_expires_at=? WHERE id=?`,
		u.Email, u.Password, u.Role, boolToInt(u.Verified),
		nullString(u.VerificationToken), nullString(u.ResetToken), nullTime(u.ResetTokenExpires), u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteUserCols+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ?`, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const sqliteTaskCols = `id,user_id,title,description,priority,status,due_date,created_at,updated_at`

func scanSQLiteTask(row rowScanner) (*Task, error) {
	var t Task
	var due, created, updated string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status, &due, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t.DueDate = parseTime(due)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return &t, nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, t *Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(`+sqliteTaskCols+`) VALUES(?,?,?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status,
		fmtTime(t.DueDate), fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	return err
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteTaskCols+` FROM tasks WHERE id = ?`, id)
	return scanSQLiteTask(row)
}

func (s *SQLiteStore) ListTasks(ctx context.Context, userID string, f TaskFilter) ([]*Task, error) {
	where := []string{`user_id = ?`}
	args := []interface{}{userID}
	if f.Search != "" {
		where = append(where, `(title LIKE ? OR description LIKE ?)`)
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.Priority != "" {
		where = append(where, `priority = ?`)
		args = append(args, f.Priority)
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, f.Status)
	}
	if f.DueDate != "" {
		day, err := time.Parse("2006-01-02", f.DueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid dueDate filter: %w", err)
		}
		where = append(where, `due_date >= ? AND due_date < ?`)
		args = append(args, fmtTime(day), fmtTime(day.Add(24*time.Hour)))
	}
	order := `ASC`
	if f.SortOrder == "desc" {
		order = `DESC`
	}
	q := `SELECT ` + sqliteTaskCols + ` FROM tasks WHERE ` + strings.Join(where, ` AND `) + ` ORDER BY due_date ` + order
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []*Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t *Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title=?, description=?, priority=?, status=?, due_date=?, updated_at=? WHERE id=?`,
		t.Title, t.Description, t.Priority, t.Status, fmtTime(t.DueDate), fmtTime(t.UpdatedAt), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) CountTasksByStatus(ctx context.Context, userID, status string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = ? AND status = ?`, userID, status).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func (s *SQLiteStore) close() error { return s.db.Close() }
func (s *SQLiteStore) ping() bool   { return s.db.Ping() == nil }
