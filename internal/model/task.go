package model

import "time"

// Task is a single entry in one user's task list.
//
// The `json:"..."` struct tags control how a Task is serialized when the
// task store persists its sequence — the stored representation is plain
// JSON, so these tags ARE the on-disk format. Renaming a tag is a breaking
// change for existing data.
//
// IDs are unique within one user's namespace, not globally. Two users can
// never see each other's tasks, so there is nothing for a collision across
// namespaces to break.
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
