package main

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Client-visible failure messages. The wording is part of the API contract;
// the frontend matches on these strings.
const (
	errUserExists      = "User already exists"
	errInvalidVerify   = "Invalid verification token."
	errUserNotExist    = "User does not exist"
	errNotVerified     = "Email not verified. Please verify your email first."
	errWrongPassword   = "Password is incorrect"
	errNoRefreshToken  = "Refresh token not provided"
	errBlacklisted     = "Refresh token is blacklisted"
	errInvalidRefresh  = "Invalid refresh token"
	errUserNotFound    = "User not found"
	errInvalidBody     = "Invalid request body"
	errInvalidReset    = "Invalid or expired reset token"
	errTaskNotFound    = "Task not found"
	errAuthRequired    = "Authentication required"
	errInvalidToken    = "Invalid or expired token"
	errForbidden       = "Insufficient permissions"
	errUsernameImmut   = "Username cannot be changed"
	errInternal        = "Internal server error"
	errTooManyRequests = "Too many requests"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("write json response")
	}
}

// writeError writes the failure shape the API promises: {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
