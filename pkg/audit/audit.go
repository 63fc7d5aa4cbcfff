// Package audit records order and restaurant changes. Writes go through a
// single actor so that they leave request goroutines immediately and reach
// the store in the order they were made.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/foodcart/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const serviceName = "foodcart"

type Recorder interface {
	Record(action, entityType string, entityID uint, data map[string]interface{})
}

// Sink is where audit entries end up. *repository.MongoRepository is one.
type Sink interface {
	CreateAuditLog(ctx context.Context, entry *repository.AuditLog) error
}

// History reads back what was recorded for one entity.
// *repository.MongoRepository is one.
type History interface {
	GetAuditLogs(ctx context.Context, entityType string, entityID uint, limit int64) ([]*repository.AuditLog, error)
}

// Messages
type writeEntry struct {
	entry *repository.AuditLog
}

type flushRequest struct{}

type flushResponse struct {
	Written int
	Failed  int
}

type auditActor struct {
	sink         Sink
	writeTimeout time.Duration
	written      int
	failed       int
	logger       *zap.Logger
}

func (a *auditActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *writeEntry:
		wctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
		err := a.sink.CreateAuditLog(wctx, msg.entry)
		cancel()
		if err != nil {
			a.failed++
			a.logger.Warn("Failed to write audit log",
				zap.String("action", msg.entry.Action),
				zap.Uint("entity_id", msg.entry.EntityID),
				zap.Error(err))
			return
		}
		a.written++

	case *flushRequest:
		ctx.Respond(&flushResponse{Written: a.written, Failed: a.failed})

	case *actor.Started:
		a.logger.Info("Audit actor started")

	case *actor.Stopped:
		a.logger.Info("Audit actor stopped",
			zap.Int("written", a.written),
			zap.Int("failed", a.failed))
	}
}

type Trail struct {
	system *actor.ActorSystem
	pid    *actor.PID
	now    func() time.Time
	logger *zap.Logger
}

func NewTrail(sink Sink, logger *zap.Logger) *Trail {
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &auditActor{
			sink:         sink,
			writeTimeout: 5 * time.Second,
			logger:       logger.Named("audit-actor"),
		}
	})

	return &Trail{
		system: system,
		pid:    system.Root.Spawn(props),
		now:    time.Now,
		logger: logger,
	}
}

// Record queues an entry and returns without waiting for the write.
func (t *Trail) Record(action, entityType string, entityID uint, data map[string]interface{}) {
	t.system.Root.Send(t.pid, &writeEntry{entry: &repository.AuditLog{
		Service:    serviceName,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Data:       bson.M(data),
		CreatedAt:  t.now(),
	}})
}

// Flush waits until every entry queued before the call has been handled and
// reports the running totals.
func (t *Trail) Flush(timeout time.Duration) (written, failed int, err error) {
	res, err := t.system.Root.RequestFuture(t.pid, &flushRequest{}, timeout).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to flush audit trail: %w", err)
	}
	resp, ok := res.(*flushResponse)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected flush response %T", res)
	}
	return resp.Written, resp.Failed, nil
}

// Close drains the mailbox and stops the actor.
func (t *Trail) Close(timeout time.Duration) {
	if _, _, err := t.Flush(timeout); err != nil {
		t.logger.Warn("Audit trail not drained", zap.Error(err))
	}
	if err := t.system.Root.StopFuture(t.pid).Wait(); err != nil {
		t.logger.Warn("Audit actor did not stop cleanly", zap.Error(err))
	}
}

type Nop struct{}

func (Nop) Record(string, string, uint, map[string]interface{}) {}
