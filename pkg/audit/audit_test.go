package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/foodcart/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySink struct {
	mu      sync.Mutex
	entries []*repository.AuditLog
	failOn  string
}

func (s *memorySink) CreateAuditLog(_ context.Context, entry *repository.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Action == s.failOn {
		return errors.New("mongo unavailable")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memorySink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

func TestTrail_WritesInOrder(t *testing.T) {
	sink := &memorySink{}
	trail := NewTrail(sink, zap.NewNop())
	defer trail.Close(time.Second)

	trail.Record("create_order", "order", 1, map[string]interface{}{"total_price": "100"})
	trail.Record("update_status", "order", 1, map[string]interface{}{"status": "processing"})
	trail.Record("update_address", "restaurant", 4, nil)

	written, failed, err := trail.Flush(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, written)
	assert.Zero(t, failed)
	assert.Equal(t, []string{"create_order", "update_status", "update_address"}, sink.actions())

	sink.mu.Lock()
	first := sink.entries[0]
	sink.mu.Unlock()
	assert.Equal(t, "foodcart", first.Service)
	assert.Equal(t, "order", first.EntityType)
	assert.Equal(t, uint(1), first.EntityID)
	assert.Equal(t, "100", first.Data["total_price"])
	assert.False(t, first.CreatedAt.IsZero())
}

func TestTrail_SurvivesSinkErrors(t *testing.T) {
	sink := &memorySink{failOn: "broken"}
	trail := NewTrail(sink, zap.NewNop())
	defer trail.Close(time.Second)

	trail.Record("broken", "order", 1, nil)
	trail.Record("create_order", "order", 2, nil)

	written, failed, err := trail.Flush(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"create_order"}, sink.actions())
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.Record("anything", "order", 1, nil)
}
