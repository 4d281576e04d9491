package domain

// Event kinds delivered on a board's real-time channel.
const (
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskDeleted = "task-deleted"
)

// Event is one board mutation as seen by channel subscribers. Exactly one of
// Task or Deletion is set, matching the kind.
type Event struct {
	Kind     string    `json:"type"`
	Board    string    `json:"boardId"`
	Task     *Task     `json:"task,omitempty"`
	Deletion *Deletion `json:"deletion,omitempty"`
}

// Deletion is the payload for task-deleted events: enough for a viewer to
// drop the task without a refetch.
type Deletion struct {
	TaskID  string `json:"taskId"`
	BoardID string `json:"boardId"`
}

// NewTaskEvent builds a task-created or task-updated event carrying the full
// post-mutation task state.
func NewTaskEvent(kind string, t Task) Event {
	return Event{Kind: kind, Board: t.Board, Task: &t}
}

// NewDeletionEvent builds a task-deleted event.
func NewDeletionEvent(boardID, taskID string) Event {
	return Event{Kind: TaskDeleted, Board: boardID, Deletion: &Deletion{TaskID: taskID, BoardID: boardID}}
}
