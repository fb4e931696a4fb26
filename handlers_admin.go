package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// HandleListUsers returns every account together with its per-status task
// counts. GET /admin/list-user
func (a *App) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := a.Store.ListUsers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	summaries := make([]*UserSummary, 0, len(users))
	for _, u := range users {
		completed, err := a.Store.CountTasksByStatus(ctx, u.ID, StatusCompleted)
		if err != nil {
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		pending, err := a.Store.CountTasksByStatus(ctx, u.ID, StatusPending)
		if err != nil {
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		summaries = append(summaries, &UserSummary{User: *u, CompletedTask: completed, PendingTask: pending})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Users retrieved successfully",
		"data":    summaries,
	})
}

// HandleAdminCreateUser provisions an account without a usable password: the
// user verifies their email and sets a password through the reset flow.
// POST /admin/create-user
func (a *App) HandleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.Username == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Username and email are required")
		return
	}
	role := req.Role
	if role == "" {
		role = RoleUser
	}
	if role != RoleUser && role != RoleAdmin {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	ctx := r.Context()
	existing, err := a.Store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, errUserExists)
		return
	}

	// Random placeholder password; unguessable, replaced via the reset flow.
	placeholder, err := genToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	hashed, err := hashPassword(placeholder, a.Config.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	verificationToken, err := genToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	user := &User{
		ID:                uuid.New().String(),
		Username:          req.Username,
		Email:             req.Email,
		Password:          hashed,
		Role:              role,
		VerificationToken: verificationToken,
		CreatedAt:         time.Now().UTC(),
	}
	if err := a.Store.CreateUser(ctx, user); err != nil {
		writeError(w, http.StatusBadRequest, errUserExists)
		return
	}

	if err := a.Mailer.SendVerificationEmail(ctx, user.Email, verificationToken); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"username": user.Username,
			"email":    user.Email,
		}).Error("verification email dispatch failed")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User created successfully",
		"data":    user,
	})
}

// HandleAdminUpdateUser updates an account's email. Usernames are immutable;
// an attempted rename is rejected rather than ignored.
// PUT /admin/update-user/{id}
func (a *App) HandleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	ctx := r.Context()
	user, err := a.Store.GetUserByID(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, errUserNotFound)
		return
	}
	if req.Username != "" && req.Username != user.Username {
		writeError(w, http.StatusBadRequest, errUsernameImmut)
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	user.Email = req.Email
	if err := a.Store.UpdateUser(ctx, user); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User updated successfully",
		"data":    user,
	})
}

// HandleAdminDeleteUser removes an account and its tasks.
// DELETE /admin/delete-user/{id}
func (a *App) HandleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := a.Store.GetUserByID(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, errUserNotFound)
		return
	}
	if err := a.Store.DeleteUser(ctx, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
