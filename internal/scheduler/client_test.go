package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type clientTestConfig struct {
	redisURL string
}

func (c clientTestConfig) GetRedisURL() string                  { return c.redisURL }
func (c clientTestConfig) GetRedisTLSInsecure() bool            { return false }
func (c clientTestConfig) GetQueueName() string                 { return "campaigns" }
func (c clientTestConfig) GetConcurrency() int                  { return 1 }
func (c clientTestConfig) GetDispatchMaxRetry() int             { return 3 }
func (c clientTestConfig) GetDispatchRetryDelay() time.Duration { return 5 * time.Minute }

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@example.com:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt() error = %v", err)
	}
	if opt.Addr != "example.com:6380" {
		t.Fatalf("addr = %s", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Fatalf("password not carried over")
	}
	if opt.DB != 2 {
		t.Fatalf("db = %d, want 2", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Fatalf("unexpected TLS config for redis:// url")
	}
}

func TestRedisClientOptTLSInsecure(t *testing.T) {
	opt, err := redisClientOpt("redis://example.com:6379", true)
	if err != nil {
		t.Fatalf("redisClientOpt() error = %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatalf("insecure TLS flag not applied")
	}
}

func TestRedisClientOptRejectsBadURL(t *testing.T) {
	if _, err := redisClientOpt("not a url", false); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnqueueRunAgainstRedis(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(clientTestConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if err := client.EnqueueRun(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("EnqueueRun() error = %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("campaigns")
	if err != nil {
		t.Fatalf("ListPendingTasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskCampaignRun {
		t.Fatalf("task type = %s, want %s", tasks[0].Type, TaskCampaignRun)
	}
	if tasks[0].MaxRetry != 3 {
		t.Fatalf("max retry = %d, want 3", tasks[0].MaxRetry)
	}

	payload, err := ParseCampaignRunPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("payload did not round-trip: %v", err)
	}
	if _, err := uuid.Parse(payload.CampaignID); err != nil {
		t.Fatalf("campaign id not a uuid: %q", payload.CampaignID)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(clientTestConfig{redisURL: ""}); err == nil {
		t.Fatalf("expected error for missing redis url")
	}
}
