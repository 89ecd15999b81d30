package storage

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskly-api/domain"
)

type fakeBackend struct {
	tasks      []domain.Task
	fetchCalls int
}

func (f *fakeBackend) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	f.fetchCalls++
	return f.tasks, nil
}

func (f *fakeBackend) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = primitive.NewObjectID()
	t.Timestamp = time.Now().UTC()
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeBackend) UpdateTaskCategory(ctx context.Context, id, category string) error {
	return nil
}

func (f *fakeBackend) DeleteTask(ctx context.Context, id string) (int64, error) {
	return 1, nil
}

func (f *fakeBackend) FindUserByEmail(ctx context.Context, email string) (map[string]any, error) {
	return nil, nil
}

func (f *fakeBackend) InsertUser(ctx context.Context, user map[string]any) (string, error) {
	return primitive.NewObjectID().Hex(), nil
}

func setupCache(t *testing.T, base backend) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		rc.Close()
		m.Close()
	})
	return NewCache(base, rc, time.Minute), m
}

func TestFetchTasksCachesResult(t *testing.T) {
	base := &fakeBackend{tasks: []domain.Task{
		{ID: primitive.NewObjectID(), Title: "t", Description: "d", Category: "todo"},
	}}
	cache, _ := setupCache(t, base)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tasks, err := cache.FetchTasks(ctx)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(tasks) != 1 || tasks[0].Title != "t" {
			t.Fatalf("unexpected tasks %+v", tasks)
		}
	}
	if base.fetchCalls != 1 {
		t.Fatalf("expected one backend fetch, got %d", base.fetchCalls)
	}
}

func TestMutationEvictsCachedTasks(t *testing.T) {
	base := &fakeBackend{}
	cache, m := setupCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchTasks(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !m.Exists(tasksCacheKey) {
		t.Fatal("expected task list to be cached")
	}

	if _, err := cache.InsertTask(ctx, domain.Task{Title: "n", Description: "d", Category: "todo"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if m.Exists(tasksCacheKey) {
		t.Fatal("expected cache eviction after insert")
	}

	if _, err := cache.FetchTasks(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if base.fetchCalls != 2 {
		t.Fatalf("expected backend refetch after eviction, got %d calls", base.fetchCalls)
	}
}

func TestInvalidateDropsCachedTasks(t *testing.T) {
	base := &fakeBackend{}
	cache, m := setupCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchTasks(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	cache.Invalidate(ctx)
	if m.Exists(tasksCacheKey) {
		t.Fatal("expected cache to be empty after Invalidate")
	}
}

func TestNilRedisFallsThrough(t *testing.T) {
	base := &fakeBackend{tasks: []domain.Task{{Title: "t"}}}
	cache := NewCache(base, nil, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.FetchTasks(ctx); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if base.fetchCalls != 2 {
		t.Fatalf("expected passthrough on nil redis, got %d calls", base.fetchCalls)
	}
	cache.Invalidate(ctx)
}

func TestCorruptCacheEntryFallsBack(t *testing.T) {
	base := &fakeBackend{tasks: []domain.Task{{Title: "t"}}}
	cache, m := setupCache(t, base)
	ctx := context.Background()

	if err := m.Set(tasksCacheKey, "not json"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	tasks, err := cache.FetchTasks(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(tasks) != 1 || base.fetchCalls != 1 {
		t.Fatalf("expected backend fallback, tasks=%+v calls=%d", tasks, base.fetchCalls)
	}
}
