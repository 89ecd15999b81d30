package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskly-api/domain"
)

const (
	databaseName    = "taskManager"
	tasksCollection = "task"
	usersCollection = "user"
)

// ErrTaskNotFound is returned by mutations that matched no task document.
var ErrTaskNotFound = errors.New("task not found")

// Storage provides access to the task and user collections.
type Storage struct {
	client *mongo.Client
	tasks  *mongo.Collection
	users  *mongo.Collection
}

// URI builds the cluster connection string from database credentials.
func URI(user, pass string) string {
	return fmt.Sprintf(
		"mongodb+srv://%s:%s@cluster0.joj1d.mongodb.net/?retryWrites=true&w=majority&appName=Cluster0",
		url.QueryEscape(user), url.QueryEscape(pass),
	)
}

// New connects to the document store and binds the task and user
// collection handles.
func New(ctx context.Context, uri string) (*Storage, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := client.Database(databaseName)
	return &Storage{
		client: client,
		tasks:  db.Collection(tasksCollection),
		users:  db.Collection(usersCollection),
	}, nil
}

// Close disconnects the underlying client.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FetchTasks retrieves every task document.
func (s *Storage) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	cursor, err := s.tasks.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	tasks := []domain.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// InsertTask persists a new task with a server-assigned creation
// timestamp and returns the stored record including its generated id.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = primitive.NilObjectID
	t.Timestamp = time.Now().UTC()
	res, err := s.tasks.InsertOne(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	t.ID = res.InsertedID.(primitive.ObjectID)
	return t, nil
}

// UpdateTaskCategory sets the category of one task. Only the category
// field is touched. Returns ErrTaskNotFound when no document matched.
func (s *Storage) UpdateTaskCategory(ctx context.Context, id, category string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("task id %q: %w", id, err)
	}
	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"category": category}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task by id and returns the raw deleted count,
// zero or one.
func (s *Storage) DeleteTask(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, fmt.Errorf("task id %q: %w", id, err)
	}
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindUserByEmail returns the stored user document for the given email,
// or nil when none exists.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (map[string]any, error) {
	var user bson.M
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// InsertUser stores the user document verbatim and returns the hex form
// of the generated id.
func (s *Storage) InsertUser(ctx context.Context, user map[string]any) (string, error) {
	res, err := s.users.InsertOne(ctx, bson.M(user))
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", res.InsertedID), nil
	}
	return oid.Hex(), nil
}

// WatchTasks opens a change stream over the task collection. The stream
// yields one document per committed mutation, in commit order.
func (s *Storage) WatchTasks(ctx context.Context) (*mongo.ChangeStream, error) {
	return s.tasks.Watch(ctx, mongo.Pipeline{})
}
