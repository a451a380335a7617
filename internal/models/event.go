package models

const (
	EventTaskAdded  = "task_added"
	EventTaskUpdate = "task_update"
	EventTaskDelete = "task_delete"
)

// TaskEvent is a transient mutation notification delivered to live
// listeners only. It is never persisted. Task carries the single
// affected task for updates and deletes, and the acting user's full
// post-filter task list for creations so that listeners can
// resynchronize their displayed set.
type TaskEvent struct {
	Type string `json:"type"`
	Task any    `json:"task"`
}
