package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-interview/internal/config"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/worker"
)

// Bus is the Redis-backed plumbing around live sessions.
type Bus interface {
	ClaimCandidate(ctx context.Context, candidateRef string, sessionID uuid.UUID) (bool, error)
	ReleaseCandidate(ctx context.Context, candidateRef string, sessionID uuid.UUID) error
	ClaimedSession(ctx context.Context, candidateRef string) (uuid.UUID, bool, error)
	EnqueueAnswer(ctx context.Context, sessionID uuid.UUID, a model.Answer) error
	EnqueueViolation(ctx context.Context, ev model.ViolationEvent) error
	PublishMonitor(ctx context.Context, msg model.MonitorMessage) error
	CacheReport(ctx context.Context, rep *model.Report) error
	CachedReport(ctx context.Context, id uuid.UUID) (*model.Report, error)
}

const monitorFeedBuffer = 16

// candidateClaimTTL bounds how long an abandoned session blocks its candidate.
const candidateClaimTTL = 6 * time.Hour

// releaseScript deletes the claim only if it still points at the session.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBus implements Bus on go-redis.
type RedisBus struct {
	rdb       *redis.Client
	reportTTL time.Duration
}

func NewRedisBus(rdb *redis.Client, reportTTL time.Duration) *RedisBus {
	return &RedisBus{rdb: rdb, reportTTL: reportTTL}
}

func (b *RedisBus) ClaimCandidate(ctx context.Context, candidateRef string, sessionID uuid.UUID) (bool, error) {
	key := config.CacheKey.CandidateActiveSessionKey(candidateRef)
	return b.rdb.SetNX(ctx, key, sessionID.String(), candidateClaimTTL).Result()
}

func (b *RedisBus) ReleaseCandidate(ctx context.Context, candidateRef string, sessionID uuid.UUID) error {
	key := config.CacheKey.CandidateActiveSessionKey(candidateRef)
	return releaseScript.Run(ctx, b.rdb, []string{key}, sessionID.String()).Err()
}

// ClaimedSession returns the session currently holding the candidate's claim.
func (b *RedisBus) ClaimedSession(ctx context.Context, candidateRef string) (uuid.UUID, bool, error) {
	key := config.CacheKey.CandidateActiveSessionKey(candidateRef)
	val, err := b.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (b *RedisBus) EnqueueAnswer(ctx context.Context, sessionID uuid.UUID, a model.Answer) error {
	return worker.EnqueueAnswer(ctx, b.rdb, sessionID, a)
}

func (b *RedisBus) EnqueueViolation(ctx context.Context, ev model.ViolationEvent) error {
	return worker.EnqueueViolation(ctx, b.rdb, ev)
}

func (b *RedisBus) PublishMonitor(ctx context.Context, msg model.MonitorMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, config.CacheKey.SessionMonitorChannel(msg.SessionID.String()), data).Err()
}

// SubscribeMonitor streams a session's monitor messages until ctx is done.
// The subscription is confirmed before it returns, so no message published
// afterwards is missed.
func (b *RedisBus) SubscribeMonitor(ctx context.Context, sessionID uuid.UUID) (<-chan model.MonitorMessage, error) {
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.SessionMonitorChannel(sessionID.String()))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan model.MonitorMessage, monitorFeedBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var m model.MonitorMessage
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					continue
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *RedisBus) CacheReport(ctx context.Context, rep *model.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return b.rdb.Set(ctx, config.CacheKey.ReportKey(rep.ID.String()), data, b.reportTTL).Err()
}

// CachedReport returns nil, nil on a cache miss.
func (b *RedisBus) CachedReport(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	data, err := b.rdb.Get(ctx, config.CacheKey.ReportKey(id.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rep model.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}
