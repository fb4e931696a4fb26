package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func createTask(t *testing.T, h http.Handler, token string, fields map[string]interface{}) map[string]interface{} {
	t.Helper()
	rec, body := doJSON(t, h, http.MethodPost, "/user/tasks", fields, token)
	require.Equal(t, http.StatusOK, rec.Code)
	task, ok := body["task"].(map[string]interface{})
	require.True(t, ok)
	return task
}

func TestTasksRequireAuth(t *testing.T) {
	app, _, _ := newTestApp(t)
	h := app.routes()

	rec, body := doJSON(t, h, http.MethodGet, "/user/tasks", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Authentication required", body["error"])

	rec, body = doJSON(t, h, http.MethodGet, "/user/tasks", nil, "garbage-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid or expired token", body["error"])
}

func TestTasksRejectAdminRole(t *testing.T) {
	app, _, mailer := newTestApp(t)
	h := app.routes()
	login := registerVerified(t, h, mailer, "boss", "boss@example.com", "pw12345678", "admin")

	rec, body := doJSON(t, h, http.MethodGet, "/user/tasks", nil, login["accessToken"].(string))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "Insufficient permissions", body["error"])
}

func TestTaskCreateAndGet(t *testing.T) {
	app, _, mailer := newTestApp(t)
	h := app.routes()
	login := registerVerified(t, h, mailer, "alice01", "alice@example.com", "pw12345678", "user")
	token := login["accessToken"].(string)

	task := createTask(t, h, token, map[string]interface{}{
		"title":       "Write report",
		"description": "Quarterly numbers",
		"priority":    "high",
		"dueDate":     "2026-09-15T12:00:00Z",
	})
	require.Equal(t, "Write report", task["title"])
	require.Equal(t, "pending", task["status"])
	require.Equal(t, "high", task["priority"])
	require.NotEmpty(t, task["_id"])

	rec, body := doJSON(t, h, http.MethodGet, "/user/tasks/"+task["_id"].(string), nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	got := body["task"].(map[string]interface{})
	require.Equal(t, task["_id"], got["_id"])
}

func TestTaskCreateRequiresTitle(t *testing.T) {
	app, _, mailer := newTestApp(t)
	h := app.routes()
	login := registerVerified(t, h, mailer, "alice01", "alice@example.com", "pw12345678", "user")

	rec, body := doJSON(t, h, http.MethodPost, "/user/tasks", map[string]interface{}{
		"description": "no title",
	}, login["accessToken"].(string))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Title is required", body["error"])
}

func TestTaskListFilters(t *testing.T) {
	app, _, mailer := newTestApp(t)
	h := app.routes()
	login := registerVerified(t, h, mailer, "alice01", "alice@example.com", "pw12345678", "user")
	token := login["accessToken"].(string)

	createTask(t, h, token, map[string]interface{}{
		"title": "Buy groceries", "priority": "low", "dueDate": "2026-09-01T09:00:00Z",
	})
	createTask(t, h, token, map[string]interface{}{
		"title": "Ship release", "priority": "high", "dueDate": "2026-09-03T09:00:00Z",
	})
	completed := createTask(t, h, token, map[string]interface{}{
		"title": "Groceries list cleanup", "priority": "low", "dueDate": "2026-09-02T09:00:00Z",
	})
	rec, _ := doJSON(t, h, http.MethodPatch, "/user/tasks/"+completed["_id"].(string)+"/complete", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// no filters: everything, due date ascending
	rec, body := doJSON(t, h, http.MethodGet, "/user/tasks", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 3, body["count"])
	tasks := body["tasks"].([]interface{})
	require.Equal(t, "Buy groceries", tasks[0].(map[string]interface{})["title"])
	require.Equal(t, "Ship release", tasks[2].(map[string]interface{})["title"])

	// descending
	rec, body = doJSON(t, h, http.MethodGet, "/user/tasks?sortOrder=desc", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks = body["tasks"].([]interface{})
	require.Equal(t, "Ship release", tasks[0].(map[string]interface{})["title"])

	// search matches title or description, case-insensitive
	rec, body = doJSON(t, h, http.MethodGet, "/user/tasks?search=groceries", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 2, body["count"])

	// priority filter
	rec, body = doJSON(t, h, http.MethodGet, "/user/tasks?priority=high", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["count"])

	// status filter
	rec, body = doJSON(t, h, http.MethodGet, "/user/tasks?status=completed", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["count"])

	// due date day filter
	rec, body = doJSON(t, h, http.MethodGet, "/user/tasks?dueDate=2026-09-03", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["count"])
	tasks = body["tasks"].([]interface{})
	require.Equal(t, "Ship release", tasks[0].(map[string]interface{})["title"])
}

func TestTaskUpdate(t *testing.T) {
	app, _, mailer := newTestApp(t)
	h := app.routes()
	login := registerVerified(t, h, mailer, "alice01", "alice@example.com", "pw12345678", "user")
	token := login["accessToken"].(string)

	task := createTask(t, h, token, map[string]interface{}{
		"title": "Draft", "priority": "medium", "dueDate": "2026-09-10T09:00:00Z",
	})

	rec, body := doJSON(t, h, http.MethodPut, "/user/tasks/"+task["_id"].(string), map[string]interface{}{
		"title":       "Draft v2",
		"description": "second pass",
		"priority":    "high",
		"status":      "completed",
		"dueDate":     "2026-09-11T09:00:00Z",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := body["task"].(map[string]interface{})
	require.Equal(t, "Draft v2", updated["title"])
	require.Equal(t, "high", updated["priority"])
	require.Equal(t, "completed", updated["status"])

	due, err := time.Parse(time.RFC3339, updated["dueDate"].(string))
	require.NoError(t, err)
	require.Equal(t, 11, due.Day())
}

func TestTaskComplete(t *testing.T) {
	app, _, mailer := newTestApp(t)
	h := app.routes()
	login := registerVerified(t, h, mailer, "alice01", "alice@example.com", "pw12345678", "user")
	token := login["accessToken"].(string)

	task := createTask(t, h, token, map[string]interface{}{
		"title": "Finish me", "dueDate": "2026-09-10T09:00:00Z",
	})

	rec, body := doJSON(t, h, http.MethodPatch, "/user/tasks/"+task["_id"].(string)+"/complete", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "completed", body["task"].(map[string]interface{})["status"])
}

func TestTaskDelete(t *testing.T) {
	app, _, mailer := newTestApp(t)
	h := app.routes()
	login := registerVerified(t, h, mailer, "alice01", "alice@example.com", "pw12345678", "user")
	token := login["accessToken"].(string)

	task := createTask(t, h, token, map[string]interface{}{
		"title": "Ephemeral", "dueDate": "2026-09-10T09:00:00Z",
	})
	id := task["_id"].(string)

	rec, body := doJSON(t, h, http.MethodDelete, "/user/tasks/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Task deleted successfully", body["message"])

	rec, body = doJSON(t, h, http.MethodGet, "/user/tasks/"+id, nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Task not found", body["error"])
}

func TestTaskOwnershipIsolation(t *testing.T) {
	app, _, mailer := newTestApp(t)
	h := app.routes()
	alice := registerVerified(t, h, mailer, "alice01", "alice@example.com", "pw12345678", "user")
	bob := registerVerified(t, h, mailer, "bob02", "bob@example.com", "pw12345678", "user")

	task := createTask(t, h, alice["accessToken"].(string), map[string]interface{}{
		"title": "Alice only", "dueDate": "2026-09-10T09:00:00Z",
	})

	// another user's task reads as absent, not forbidden
	rec, body := doJSON(t, h, http.MethodGet, "/user/tasks/"+task["_id"].(string), nil, bob["accessToken"].(string))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Task not found", body["error"])

	rec, body = doJSON(t, h, http.MethodGet, "/user/tasks", nil, bob["accessToken"].(string))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 0, body["count"])
}
