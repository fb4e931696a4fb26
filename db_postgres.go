package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type PostgresStore struct {
	db  *sql.DB
	dsn string
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresStore{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresStore) Init() error {
	// rely on migrations to create tables; just verify connectivity
	return p.db.Ping()
}

const pgUserCols = `id,username,email,password,role,verified,verification_token,reset_token,reset_token_expires_at,created_at`

func scanPGUser(row rowScanner) (*User, error) {
	var u User
	var verifyTok, resetTok sql.NullString
	var resetExp sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Role, &u.Verified, &verifyTok, &resetTok, &resetExp, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	u.VerificationToken = verifyTok.String
	u.ResetToken = resetTok.String
	if resetExp.Valid {
		t := resetExp.Time
		u.ResetTokenExpires = &t
	}
	return &u, nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users(`+pgUserCols+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Username, u.Email, u.Password, u.Role, u.Verified,
		nullString(u.VerificationToken), nullString(u.ResetToken), pgNullTime(u.ResetTokenExpires), u.CreatedAt)
	return err
}

func (p *PostgresStore) getUser(ctx context.Context, where string, arg interface{}) (*User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+pgUserCols+` FROM users WHERE `+where, arg)
	return scanPGUser(row)
}

func (p *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return p.getUser(ctx, `username = $1`, username)
}

func (p *PostgresStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return p.getUser(ctx, `id = $1`, id)
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return p.getUser(ctx, `email = $1`, email)
}

func (p *PostgresStore) GetUserByVerificationToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	return p.getUser(ctx, `verification_token = $1`, token)
}

func (p *PostgresStore) GetUserByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	return p.getUser(ctx, `reset_token = $1`, token)
}

func (p *PostgresStore) UpdateUser(ctx context.Context, u *User) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET email=$1, password=$2, role=$3, verified=$4, verification_token=$5, reset_token=$6, reset_token_expires_at=$7 WHERE id=$8`,
		u.Email, u.Password, u.Role, u.Verified,
		nullString(u.VerificationToken), nullString(u.ResetToken), pgNullTime(u.ResetTokenExpires), u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (p *PostgresStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+pgUserCols+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := scanPGUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (p *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const pgTaskCols = `id,user_id,title,description,priority,status,due_date,created_at,updated_at`

func scanPGTask(row rowScanner) (*Task, error) {
	var t Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (p *PostgresStore) CreateTask(ctx context.Context, t *Task) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO tasks(`+pgTaskCols+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.CreatedAt, t.UpdatedAt)
	return err
}

func (p *PostgresStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+pgTaskCols+` FROM tasks WHERE id = $1`, id)
	return scanPGTask(row)
}

func (p *PostgresStore) ListTasks(ctx context.Context, userID string, f TaskFilter) ([]*Task, error) {
	where := []string{`user_id = $1`}
	args := []interface{}{userID}
	n := 1
	next := func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}
	if f.Search != "" {
		where = append(where, `(title ILIKE `+next()+` OR description ILIKE `+next()+`)`)
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.Priority != "" {
		where = append(where, `priority = `+next())
		args = append(args, f.Priority)
	}
	if f.Status != "" {
		where = append(where, `status = `+next())
		args = append(args, f.Status)
	}
	if f.DueDate != "" {
		day, err := time.Parse("2006-01-02", f.DueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid dueDate filter: %w", err)
		}
		where = append(where, `due_date >= `+next()+` AND due_date < `+next())
		args = append(args, day, day.Add(24*time.Hour))
	}
	order := `ASC`
	if f.SortOrder == "desc" {
		order = `DESC`
	}
	q := `SELECT ` + pgTaskCols + ` FROM tasks WHERE ` + strings.Join(where, ` AND `) + ` ORDER BY due_date ` + order
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []*Task
	for rows.Next() {
		t, err := scanPGTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (p *PostgresStore) UpdateTask(ctx context.Context, t *Task) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE tasks SET title=$1, description=$2, priority=$3, status=$4, due_date=$5, updated_at=$6 WHERE id=$7`,
		t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (p *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (p *PostgresStore) CountTasksByStatus(ctx context.Context, userID, status string) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND status = $2`, userID, status).Scan(&n)
	return n, err
}

func pgNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (p *PostgresStore) close() error { return p.db.Close() }
func (p *PostgresStore) ping() bool   { return p.db.Ping() == nil }
