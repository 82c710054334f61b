package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"leadintake_backend/internal/notification"
	"leadintake_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// notifyMaxRetry bounds redelivery of an assignment notification.
const notifyMaxRetry = 5

type Client struct {
	client  *asynq.Client
	queue   string
	syncTTL time.Duration
}

func NewClient(cfg config.SchedulerConfig, syncInterval time.Duration) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	if syncInterval <= 0 {
		syncInterval = 5 * time.Minute
	}

	return &Client{
		client:  asynq.NewClient(opt),
		queue:   queue,
		syncTTL: syncInterval,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueLeadAssigned queues delivery of an assignment notification.
func (c *Client) EnqueueLeadAssigned(ctx context.Context, a notification.Assignment) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadAssignedTask(a)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(notifyMaxRetry))
	return err
}

// EnqueueIntegrationSync queues an on-demand sync. A sync already queued for
// the same integration absorbs the request.
func (c *Client) EnqueueIntegrationSync(ctx context.Context, integrationID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewIntegrationSyncTask(IntegrationSyncPayload{IntegrationID: integrationID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(0), asynq.Unique(c.syncTTL))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

var _ notification.Enqueuer = (*Client)(nil)
