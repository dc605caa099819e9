package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/guildpay/economy/internal/directory"
)

const grantQueueKey = "grant_reconcile_queue"

type GrantAction string

const (
	ActionGrant  GrantAction = "GRANT"
	ActionRevoke GrantAction = "REVOKE"
)

// GrantTask is a directory call that must eventually succeed: a grant that
// was paid for but not delivered, or a granted role whose purchase failed to
// commit.
type GrantTask struct {
	UserID   string      `json:"userId"`
	RoleID   string      `json:"roleId"`
	Action   GrantAction `json:"action"`
	Attempts int         `json:"attempts"`
}

// GrantReconciler drains queued directory calls. Retries are idempotent on
// the directory side (granting a held role and revoking an absent one are
// both no-ops), so re-delivery is safe.
type GrantReconciler struct {
	redis     *redis.Client
	directory directory.Directory
}

func NewGrantReconciler(redisClient *redis.Client, dir directory.Directory) *GrantReconciler {
	return &GrantReconciler{
		redis:     redisClient,
		directory: dir,
	}
}

// Enqueue pushes a task for later retry. Without Redis the task is only
// logged; the audit trail still records the inconsistency.
func (r *GrantReconciler) Enqueue(ctx context.Context, task GrantTask) {
	data, err := json.Marshal(task)
	if err != nil {
		log.Printf("[RECONCILE] Failed to marshal task: %v", err)
		return
	}

	if r.redis == nil {
		log.Printf("[RECONCILE] Redis unavailable, dropping task: %s", string(data))
		return
	}

	if err := r.redis.RPush(ctx, grantQueueKey, data).Err(); err != nil {
		log.Printf("[RECONCILE] Failed to enqueue task: %v", err)
	}
}

// Run drains the queue on a fixed interval until the context is done.
func (r *GrantReconciler) Run(ctx context.Context, interval time.Duration) {
	if r.redis == nil {
		log.Println("[RECONCILE] Redis unavailable, reconciler disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *GrantReconciler) drain(ctx context.Context) {
	for {
		data, err := r.redis.LPop(ctx, grantQueueKey).Result()
		if err == redis.Nil {
			return
		}
		if err != nil {
			log.Printf("[RECONCILE] Queue read failed: %v", err)
			return
		}

		var task GrantTask
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			log.Printf("[RECONCILE] Dropping malformed task: %v", err)
			continue
		}

		if err := r.process(ctx, task); err != nil {
			task.Attempts++
			log.Printf("[RECONCILE] Retry %d failed for user=%s role=%s action=%s: %v",
				task.Attempts, task.UserID, task.RoleID, task.Action, err)
			r.Enqueue(ctx, task)
			return
		}

		log.Printf("[RECONCILE] Resolved: user=%s role=%s action=%s", task.UserID, task.RoleID, task.Action)
	}
}

func (r *GrantReconciler) process(ctx context.Context, task GrantTask) error {
	switch task.Action {
	case ActionRevoke:
		return r.directory.Revoke(ctx, task.UserID, task.RoleID)
	default:
		return r.directory.Grant(ctx, task.UserID, task.RoleID)
	}
}
