package api

import (
	"context"

	"taskly-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	FetchTasks(ctx context.Context) ([]domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTaskCategory(ctx context.Context, id, category string) error
	DeleteTask(ctx context.Context, id string) (int64, error)
	FindUserByEmail(ctx context.Context, email string) (map[string]any, error)
	InsertUser(ctx context.Context, user map[string]any) (string, error)
}
