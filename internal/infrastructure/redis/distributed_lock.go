package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/metrics"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除・延長をアトミックに行う Lua スクリプト
const (
	releaseScript = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	extendScript = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		else
			return 0
		end
	`
)

// DistributedLock は Redis を使用した分散ロック
type DistributedLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// LockManager は分散ロックを管理する
type LockManager struct {
	client     *redis.Client
	metrics    *metrics.Metrics
	newToken   func() string
	maxRetries int
	retryDelay time.Duration
}

// NewLockManager は LockManager を作成する。m は nil でもよい
func NewLockManager(client *redis.Client, m *metrics.Metrics) *LockManager {
	return &LockManager{
		client:     client,
		metrics:    m,
		newToken:   uuid.NewString,
		maxRetries: 50,
		retryDelay: 200 * time.Millisecond,
	}
}

// AcquireLock はロックを取得する
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, error) {
	started := time.Now()
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := m.newToken()

	// SetNX を使用してロックを取得（キーが存在しない場合のみ設定）
	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	m.metrics.ObserveLock("acquire", err == nil && ok, started)
	if err != nil {
		return nil, errors.Wrap(err, "ロック取得に失敗")
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &DistributedLock{
		client: m.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// AcquireLockWithRetry はリトライ付きでロックを取得する
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*DistributedLock, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lock, err := m.AcquireLock(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		lastErr = err
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lastErr
}

// WithLock はロックが取れるまで待ってから fn を実行し、終了後に解放する
func (m *LockManager) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lock, err := m.AcquireLockWithRetry(ctx, key, ttl, m.maxRetries, m.retryDelay)
	if err != nil {
		return err
	}
	return m.run(ctx, lock, fn)
}

// TryWithLock はロックが取れた場合のみ fn を実行する。取れなければ ErrLockNotAcquired
func (m *LockManager) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lock, err := m.AcquireLock(ctx, key, ttl)
	if err != nil {
		return err
	}
	return m.run(ctx, lock, fn)
}

func (m *LockManager) run(ctx context.Context, lock *DistributedLock, fn func(ctx context.Context) error) error {
	defer func() {
		// fn の ctx がキャンセルされていても解放は試みる
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("ロック解放に失敗", zap.String("key", lock.key), zap.Error(err))
		}
	}()
	return fn(ctx)
}

// Release はロックを解放する（Lua スクリプトで安全に解放）
func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.value).Int()
	if err != nil {
		return errors.Wrap(err, "ロック解放に失敗")
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend はロックの有効期限を延長する
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := l.client.Eval(ctx, extendScript, []string{l.key}, l.value, ttl.Milliseconds()).Int()
	if err != nil {
		return errors.Wrap(err, "ロック延長に失敗")
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	l.ttl = ttl
	return nil
}
