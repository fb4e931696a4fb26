package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const resetTokenTTL = time.Hour

// HandleRegister creates an unverified account and emails a verification
// link. POST /auth/register
func (a *App) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
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

	verificationToken, err := genToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	hashed, err := hashPassword(req.Password, a.Config.BcryptCost)
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
		Verified:          false,
		VerificationToken: verificationToken,
		CreatedAt:         time.Now().UTC(),
	}
	if err := a.Store.CreateUser(ctx, user); err != nil {
		writeError(w, http.StatusBadRequest, errUserExists)
		return
	}

	// Registration succeeds even when mail delivery fails; the failure is
	// logged so operators can resend. Never silent.
	if err := a.Mailer.SendVerificationEmail(ctx, user.Email, verificationToken); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"username": user.Username,
			"email":    user.Email,
		}).Error("verification email dispatch failed")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User successfully registered",
		"data":    user,
	})
}

// HandleVerifyEmail flips the account to verified and clears the one-time
// token, so a replayed link fails. GET /auth/verify-email/{token}
func (a *App) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	ctx := r.Context()

	user, err := a.Store.GetUserByVerificationToken(ctx, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if user == nil {
		writeError(w, http.StatusBadRequest, errInvalidVerify)
		return
	}

	user.Verified = true
	user.VerificationToken = ""
	if err := a.Store.UpdateUser(ctx, user); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully!"})
}

// HandleLogin checks the precondition chain (exists, verified, password) in
// order, each failure with its own reason, and issues both tokens on
// success. POST /auth/login
func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	ctx := r.Context()
	user, err := a.Store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if user == nil {
		writeError(w, http.StatusBadRequest, errUserNotExist)
		return
	}
	if !user.Verified {
		writeError(w, http.StatusBadRequest, errNotVerified)
		return
	}
	if !comparePassword(user.Password, req.Password) {
		writeError(w, http.StatusBadRequest, errWrongPassword)
		return
	}

	accessToken, err := a.issueAccessToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	refreshToken, err := a.issueRefreshToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Login successful",
		"userId":          user.ID,
		"accessToken":     accessToken,
		"refreshToken":    refreshToken,
		"accessTokenExp":  a.Config.AccessTokenTTL.String(),
		"refreshTokenExp": a.Config.RefreshTokenTTL.String(),
		"role":            user.Role,
	})
}

// HandleRefreshToken exchanges a valid refresh token for a fresh access
// token, delivered both in the body and as an HTTP-only cookie. The refresh
// token itself is not rotated. POST /auth/refresh-token
func (a *App) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusForbidden, errNoRefreshToken)
		return
	}

	ctx := r.Context()
	blocked, err := a.Blacklist.Contains(ctx, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if blocked {
		writeError(w, http.StatusForbidden, errBlacklisted)
		return
	}

	claims, err := a.parseRefreshToken(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusForbidden, errInvalidRefresh)
		return
	}

	user, err := a.Store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, errUserNotFound)
		return
	}

	accessToken, err := a.issueAccessToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	// Cookie lifetime tracks the token's own expiry so the two never
	// disagree.
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(a.Config.AccessTokenTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken":    accessToken,
		"accessTokenExp": a.Config.AccessTokenTTL.String(),
	})
}

// HandleLogout blacklists the refresh token for its remaining lifetime; a
// revoked-but-unexpired token must stay blocked until it would have expired
// anyway. POST /auth/logout
func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusForbidden, errNoRefreshToken)
		return
	}

	ttl := a.Config.RefreshTokenTTL
	if claims, err := a.parseRefreshToken(req.RefreshToken); err == nil && claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if err := a.Blacklist.Add(r.Context(), req.RefreshToken, ttl); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// HandleRequestPasswordReset issues a reset token and emails it. The
// response never reveals whether the email is registered.
// POST /auth/request-password-reset
func (a *App) HandleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	ctx := r.Context()
	user, err := a.Store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if user != nil {
		token, err := genToken(32)
		if err != nil {
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		expires := time.Now().UTC().Add(resetTokenTTL)
		user.ResetToken = token
		user.ResetTokenExpires = &expires
		if err := a.Store.UpdateUser(ctx, user); err != nil {
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		if err := a.Mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
			logrus.WithError(err).WithField("email", user.Email).Error("password reset email dispatch failed")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If that email is registered, a reset link has been sent",
	})
}

// HandleResetPassword consumes a pending reset token and stores the new
// password hash. POST /auth/reset-password/{token}
func (a *App) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	user, err := a.Store.GetUserByResetToken(ctx, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if user == nil || user.ResetTokenExpires == nil || time.Now().After(*user.ResetTokenExpires) {
		writeError(w, http.StatusBadRequest, errInvalidReset)
		return
	}

	hashed, err := hashPassword(req.NewPassword, a.Config.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	user.Password = hashed
	user.ResetToken = ""
	user.ResetTokenExpires = nil
	if err := a.Store.UpdateUser(ctx, user); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully"})
}
