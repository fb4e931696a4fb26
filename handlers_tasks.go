package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func validPriority(p string) bool {
	return p == "low" || p == "medium" || p == "high"
}

func validStatus(s string) bool {
	return s == StatusPending || s == StatusCompleted
}

// HandleListTasks returns the caller's tasks, filtered and ordered by the
// query string. GET /user/tasks
func (a *App) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	q := r.URL.Query()
	filter := TaskFilter{
		Search:    q.Get("search"),
		Priority:  q.Get("priority"),
		Status:    q.Get("status"),
		DueDate:   q.Get("dueDate"),
		SortOrder: q.Get("sortOrder"),
	}

	tasks, err := a.Store.ListTasks(r.Context(), claims.UserID, filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task filters")
		return
	}
	if tasks == nil {
		tasks = []*Task{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Tasks retrieved successfully",
		"tasks":   tasks,
		"count":   len(tasks),
	})
}

type taskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	DueDate     time.Time `json:"dueDate"`
}

// HandleCreateTask creates a task owned by the caller. POST /user/tasks
func (a *App) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	if !validPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "Invalid priority")
		return
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	if !validStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New().String(),
		UserID:      claims.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.Store.CreateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task created successfully",
		"task":    task,
	})
}

// ownedTask loads a task and checks ownership. Another user's task reads as
// absent, never as forbidden.
func (a *App) ownedTask(w http.ResponseWriter, r *http.Request) *Task {
	claims := claimsFromContext(r.Context())
	task, err := a.Store.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return nil
	}
	if task == nil || task.UserID != claims.UserID {
		writeError(w, http.StatusNotFound, errTaskNotFound)
		return nil
	}
	return task
}

// HandleGetTask returns a single task. GET /user/tasks/{id}
func (a *App) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	task := a.ownedTask(w, r)
	if task == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task retrieved successfully",
		"task":    task,
	})
}

// HandleUpdateTask replaces the mutable fields of a task. PUT /user/tasks/{id}
func (a *App) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	task := a.ownedTask(w, r)
	if task == nil {
		return
	}
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.Priority != "" && !validPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "Invalid priority")
		return
	}
	if req.Status != "" && !validStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.Status != "" {
		task.Status = req.Status
	}
	if !req.DueDate.IsZero() {
		task.DueDate = req.DueDate
	}
	task.UpdatedAt = time.Now().UTC()

	if err := a.Store.UpdateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// HandleCompleteTask marks a task completed. PATCH /user/tasks/{id}/complete
func (a *App) HandleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task := a.ownedTask(w, r)
	if task == nil {
		return
	}

	task.Status = StatusCompleted
	task.UpdatedAt = time.Now().UTC()
	if err := a.Store.UpdateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task marked as completed",
		"task":    task,
	})
}

// HandleDeleteTask removes a task. DELETE /user/tasks/{id}
func (a *App) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task := a.ownedTask(w, r)
	if task == nil {
		return
	}
	if err := a.Store.DeleteTask(r.Context(), task.ID); err != nil {
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}
