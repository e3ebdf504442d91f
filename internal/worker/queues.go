package worker

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-interview/internal/config"
)

// QueueDepths reports the backlog of every persistence queue.
func QueueDepths(ctx context.Context, rdb *redis.Client) (map[string]int64, error) {
	queues := []string{
		config.WorkerKey.PersistAnswersQueue,
		config.WorkerKey.PersistViolationsQueue,
	}

	pipe := rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(queues))
	for i, q := range queues {
		cmds[i] = pipe.LLen(ctx, q)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	depths := make(map[string]int64, len(queues))
	for i, q := range queues {
		depths[q] = cmds[i].Val()
	}
	return depths, nil
}
