package domain

// Operation kinds reported on the task change stream.
const (
	OperationInsert = "insert"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// ChangeEvent describes one committed mutation of the task collection.
// Events are ephemeral: they are pushed to live subscribers as they are
// observed and never stored or replayed.
type ChangeEvent struct {
	Operation     string         `json:"operationType"`
	TaskID        string         `json:"taskId"`
	UpdatedFields map[string]any `json:"updatedFields,omitempty"`
	Task          *Task          `json:"fullDocument,omitempty"`
}
