package main

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the persistence boundary. Lookups return (nil, nil) when no row
// matches; callers treat that as a normal outcome.
type Store interface {
	Init() error
	// User operations
	CreateUser(ctx context.Context, u *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*User, error)
	GetUserByResetToken(ctx context.Context, token string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context) ([]*User, error)
	DeleteUser(ctx context.Context, id string) error
	// Task operations
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, userID string, f TaskFilter) ([]*Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id string) error
	CountTasksByStatus(ctx context.Context, userID, status string) (int, error)
}

// MemStore keeps everything in maps. Used by tests and DB_ADAPTER=memory.
type MemStore struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by id
	tasks map[string]*Task // keyed by id
}

func NewMemStore() *MemStore {
	return &MemStore{users: map[string]*User{}, tasks: map[string]*Task{}}
}

func (m *MemStore) Init() error { return nil }

func copyUser(u *User) *User {
	c := *u
	if u.ResetTokenExpires != nil {
		t := *u.ResetTokenExpires
		c.ResetTokenExpires = &t
	}
	return &c
}

func (m *MemStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return errors.New("username taken")
		}
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

func (m *MemStore) findUser(match func(*User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (m *MemStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	return m.findUser(func(u *User) bool { return u.Username == username })
}

func (m *MemStore) GetUserByID(_ context.Context, id string) (*User, error) {
	return m.findUser(func(u *User) bool { return u.ID == id })
}

func (m *MemStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	return m.findUser(func(u *User) bool { return u.Email == email })
}

func (m *MemStore) GetUserByVerificationToken(_ context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	return m.findUser(func(u *User) bool { return u.VerificationToken == token })
}

func (m *MemStore) GetUserByResetToken(_ context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	return m.findUser(func(u *User) bool { return u.ResetToken == token })
}

func (m *MemStore) UpdateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return errors.New("user not found")
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

func (m *MemStore) ListUsers(_ context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *MemStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return errors.New("user not found")
	}
	delete(m.users, id)
	for tid, t := range m.tasks {
		if t.UserID == id {
			delete(m.tasks, tid)
		}
	}
	return nil
}

func (m *MemStore) CreateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	m.tasks[t.ID] = &c
	return nil
}

func (m *MemStore) GetTask(_ context.Context, id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tasks[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (m *MemStore) ListTasks(_ context.Context, userID string, f TaskFilter) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tasks []*Task
	for _, t := range m.tasks {
		if t.UserID != userID || !matchesFilter(t, f) {
			continue
		}
		c := *t
		tasks = append(tasks, &c)
	}
	desc := f.SortOrder == "desc"
	sort.Slice(tasks, func(i, j int) bool {
		if desc {
			return tasks[i].DueDate.After(tasks[j].DueDate)
		}
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
	return tasks, nil
}

func matchesFilter(t *Task, f TaskFilter) bool {
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), s) &&
			!strings.Contains(strings.ToLower(t.Description), s) {
			return false
		}
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.DueDate != "" {
		day, err := time.Parse("2006-01-02", f.DueDate)
		if err != nil || !sameDay(t.DueDate, day) {
			return false
		}
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (m *MemStore) UpdateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return errors.New("task not found")
	}
	c := *t
	m.tasks[t.ID] = &c
	return nil
}

func (m *MemStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return errors.New("task not found")
	}
	delete(m.tasks, id)
	return nil
}

func (m *MemStore) CountTasksByStatus(_ context.Context, userID, status string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.tasks {
		if t.UserID == userID && t.Status == status {
			n++
		}
	}
	return n, nil
}

// lifecycle helpers
func (m *MemStore) close() error { return nil }
func (m *MemStore) ping() bool   { return true }
