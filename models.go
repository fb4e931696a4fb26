package main

import "time"

// Roles recognized by the authorization middleware.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Task status values.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// User is an account record. Password holds the bcrypt digest, never the
// plaintext. VerificationToken is present only while the account is
// unverified; it is cleared exactly once when verification succeeds and is
// never reissued. JSON keys keep the original API's "_id" shape.
type User struct {
	ID                string     `json:"_id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	Password          string     `json:"-"`
	Role              string     `json:"role"`
	Verified          bool       `json:"verified"`
	VerificationToken string     `json:"-"`
	ResetToken        string     `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// Task belongs to exactly one user and is removed with it.
type Task struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	DueDate     time.Time `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserSummary is the admin listing shape: the account plus per-status task counts.
type UserSummary struct {
	User
	CompletedTask int `json:"completedTask"`
	PendingTask   int `json:"pendingTask"`
}

// TaskFilter narrows and orders task listings. Zero values mean "no filter".
type TaskFilter struct {
	Search    string // substring match on title or description
	Priority  string
	Status    string
	DueDate   string // calendar day, YYYY-MM-DD
	SortOrder string // "asc" (default) or "desc", by due date
}
