package subscription

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskly-api/domain"
)

// Stream is the change-stream handle yielded by the storage gateway.
// *mongo.ChangeStream satisfies it.
type Stream interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// WatchFunc opens a change stream over the task collection.
type WatchFunc func(ctx context.Context) (Stream, error)

// Broadcaster receives one event per committed mutation, in commit order.
type Broadcaster interface {
	Broadcast(ev domain.ChangeEvent)
}

// changeDocument is the raw change-stream document shape.
type changeDocument struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument      *domain.Task `bson:"fullDocument"`
	UpdateDescription struct {
		UpdatedFields map[string]any `bson:"updatedFields"`
	} `bson:"updateDescription"`
}

func (d changeDocument) event() domain.ChangeEvent {
	return domain.ChangeEvent{
		Operation:     d.OperationType,
		TaskID:        d.DocumentKey.ID.Hex(),
		UpdatedFields: d.UpdateDescription.UpdatedFields,
		Task:          d.FullDocument,
	}
}

// WatchChanges subscribes to the task change stream and forwards every
// committed mutation to the broadcaster. It is started once, after the
// storage connection is established. If the subscription cannot be
// opened the failure is logged and the process keeps serving requests
// without live updates; there is no reconnect.
func WatchChanges(ctx context.Context, logger *log.Logger, watch WatchFunc, hub Broadcaster, invalidate func(context.Context)) {
	stream, err := watch(ctx)
	if err != nil {
		logger.Errorf("task change stream unavailable, live updates disabled: %v", err)
		return
	}
	defer stream.Close(context.Background())
	logger.Info("watching task collection for changes")

	for stream.Next(ctx) {
		var doc changeDocument
		if err := stream.Decode(&doc); err != nil {
			logger.Errorf("decode change: %v", err)
			continue
		}
		ev := doc.event()
		logger.WithFields(log.Fields{
			"operation": ev.Operation,
			"taskId":    ev.TaskID,
		}).Debug("change detected")
		if invalidate != nil {
			invalidate(ctx)
		}
		hub.Broadcast(ev)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		logger.Errorf("task change stream closed: %v", err)
	}
}
