package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tasknest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.close() })
	return s
}

func seedUser(t *testing.T, s Store, username string) *User {
	t.Helper()
	u := &User{
		ID:                uuid.NewString(),
		Username:          username,
		Email:             username + "@example.com",
		Password:          "hashed",
		Role:              RoleUser,
		VerificationToken: "verify-" + username,
		CreatedAt:         time.Now(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestSQLiteUserLifecycle(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice01")

	got, err := s.GetUserByUsername(ctx, "alice01")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, u.ID, got.ID)
	require.False(t, got.Verified)

	got, err = s.GetUserByVerificationToken(ctx, "verify-alice01")
	require.NoError(t, err)
	require.NotNil(t, got)

	got.Verified = true
	got.VerificationToken = ""
	require.NoError(t, s.UpdateUser(ctx, got))

	got, err = s.GetUserByVerificationToken(ctx, "verify-alice01")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.Verified)

	missing, err := s.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestSQLiteResetTokenExpiry(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "bob")
	exp := time.Now().Add(time.Hour)
	u.ResetToken = "reset-abc"
	u.ResetTokenExpires = &exp
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err := s.GetUserByResetToken(ctx, "reset-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.ResetTokenExpires)
	require.WithinDuration(t, exp, *got.ResetTokenExpires, time.Second)

	got.ResetToken = ""
	got.ResetTokenExpires = nil
	require.NoError(t, s.UpdateUser(ctx, got))

	got, err = s.GetUserByResetToken(ctx, "reset-abc")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSQLiteTaskFilters(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "carol")
	day := func(offset int) time.Time {
		return time.Date(2026, 9, 1+offset, 12, 0, 0, 0, time.UTC)
	}
	mk := func(title, priority, status string, due time.Time) {
		now := time.Now()
		require.NoError(t, s.CreateTask(ctx, &Task{
			ID: uuid.NewString(), UserID: u.ID, Title: title,
			Priority: priority, Status: status, DueDate: due,
			CreatedAt: now, UpdatedAt: now,
		}))
	}
	mk("Buy groceries", "high", StatusPending, day(0))
	mk("Write report", "medium", StatusCompleted, day(1))
	mk("Call dentist", "low", StatusPending, day(2))

	all, err := s.ListTasks(ctx, u.ID, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "Buy groceries", all[0].Title) // ascending by due date

	desc, err := s.ListTasks(ctx, u.ID, TaskFilter{SortOrder: "desc"})
	require.NoError(t, err)
	require.Equal(t, "Call dentist", desc[0].Title)

	found, err := s.ListTasks(ctx, u.ID, TaskFilter{Search: "report"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	pending, err := s.ListTasks(ctx, u.ID, TaskFilter{Status: StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 2)

	high, err := s.ListTasks(ctx, u.ID, TaskFilter{Priority: "high"})
	require.NoError(t, err)
	require.Len(t, high, 1)

	onDay, err := s.ListTasks(ctx, u.ID, TaskFilter{DueDate: "2026-09-02"})
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	require.Equal(t, "Write report", onDay[0].Title)

	_, err = s.ListTasks(ctx, u.ID, TaskFilter{DueDate: "not-a-date"})
	require.Error(t, err)
}

func TestSQLiteCountAndCascade(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "dave")
	now := time.Now()
	for i := 0; i < 3; i++ {
		status := StatusPending
		if i == 0 {
			status = StatusCompleted
		}
		require.NoError(t, s.CreateTask(ctx, &Task{
			ID: uuid.NewString(), UserID: u.ID, Title: "t",
			Priority: "medium", Status: status, DueDate: now,
			CreatedAt: now, UpdatedAt: now,
		}))
	}

	done, err := s.CountTasksByStatus(ctx, u.ID, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, 1, done)
	open, err := s.CountTasksByStatus(ctx, u.ID, StatusPending)
	require.NoError(t, err)
	require.Equal(t, 2, open)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	left, err := s.ListTasks(ctx, u.ID, TaskFilter{})
	require.NoError(t, err)
	require.Empty(t, left)
}
