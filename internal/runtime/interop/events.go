package interop

import (
	"time"

	"github.com/google/uuid"
)

// Entity event payloads published by the CRUD layer onto the local bus and
// mirrored to the broker by the bridge. They are summaries, not storage rows;
// the persistence layer is out of scope here.

type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Task struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorID    uuid.UUID `json:"author_id"`
	AssigneeID  uuid.UUID `json:"assignee_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskStatePayload reports a task moving between workflow states.
type TaskStatePayload struct {
	TaskID uuid.UUID `json:"task_id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	ByID   uuid.UUID `json:"by_id"`
}

type Project struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Flow struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Graph is the edge set of a workflow; published whenever a flow's graph
// changes.
type Graph struct {
	FlowID uuid.UUID  `json:"flow_id"`
	Edges  []FlowEdge `json:"edges"`
}

type FlowEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}
