package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is one stored task document. The identifier is assigned by the
// store on insert and the timestamp is set server-side, never mutated.
type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
}

// TaskMove is one entry of a bulk reorder request: a task id paired with
// the category it should move to.
type TaskMove struct {
	ID       string `json:"_id"`
	Category string `json:"category"`
}
