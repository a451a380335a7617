package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aididalam/tasktrack/internal/models"
)

// stubClient records publishes or fails every one of them.
type stubClient struct {
	err      error
	channel  string
	payloads [][]byte
}

func (c *stubClient) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if c.err != nil {
		cmd.SetErr(c.err)
		return cmd
	}

	c.channel = channel
	c.payloads = append(c.payloads, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestPublishDeliversJSONPayload(t *testing.T) {
	client := &stubClient{}
	b := New(zerolog.Nop(), client, "tasks.events")

	task := &models.Task{ID: "7", UserID: "u1", Name: "Buy milk", Status: models.StatusToDo}
	b.Publish(context.Background(), models.TaskEvent{Type: models.EventTaskUpdate, Task: task})

	if client.channel != "tasks.events" {
		t.Fatalf("published to channel %q", client.channel)
	}
	if len(client.payloads) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(client.payloads))
	}

	var decoded struct {
		Type string      `json:"type"`
		Task models.Task `json:"task"`
	}
	if err := json.Unmarshal(client.payloads[0], &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Type != models.EventTaskUpdate {
		t.Fatalf("expected type %q, got %q", models.EventTaskUpdate, decoded.Type)
	}
	if decoded.Task.ID != "7" || decoded.Task.Name != "Buy milk" {
		t.Fatalf("unexpected task payload: %+v", decoded.Task)
	}
}

func TestPublishAbsorbsClientFailure(t *testing.T) {
	client := &stubClient{err: errors.New("connection refused")}
	b := New(zerolog.Nop(), client, "tasks.events")

	// Must not panic and must not surface the error anywhere.
	b.Publish(context.Background(), models.TaskEvent{
		Type: models.EventTaskDelete,
		Task: &models.Task{ID: "7"},
	})
}

func TestPublishWithoutClientIsANoOp(t *testing.T) {
	b := New(zerolog.Nop(), nil, "tasks.events")

	b.Publish(context.Background(), models.TaskEvent{
		Type: models.EventTaskAdded,
		Task: []*models.Task{},
	})
}
