package worker

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	redisinfra "github.com/sanosuguru/go-show-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/metrics"
)

// AuditLockKey は複数インスタンスで同時に監査しないためのロックキー
const AuditLockKey = "inventory:audit"

// InventorySource は在庫スナップショットを返すインターフェース
type InventorySource interface {
	AuditInventory(ctx context.Context) ([]show.Inventory, error)
}

// Locker は取得できた場合のみ fn を実行する排他区間
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// InventoryAuditor は定期的に「空席数＋確定座席数＝定員」を検査するワーカー
type InventoryAuditor struct {
	source   InventorySource
	locker   Locker
	metrics  *metrics.Metrics
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewInventoryAuditor は新しい監査ワーカーを作成する。locker と m は nil でもよい
func NewInventoryAuditor(source InventorySource, locker Locker, m *metrics.Metrics, interval time.Duration) *InventoryAuditor {
	return &InventoryAuditor{
		source:   source,
		locker:   locker,
		metrics:  m,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start は監査を開始する。ctx のキャンセルか Stop まで戻らない
func (a *InventoryAuditor) Start(ctx context.Context) {
	logger.Info("在庫監査ワーカー開始", zap.Duration("interval", a.interval))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	defer close(a.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("在庫監査ワーカー停止（コンテキストキャンセル）")
			return
		case <-a.stopCh:
			logger.Info("在庫監査ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			a.runOnce(ctx)
		}
	}
}

// Stop は監査を停止する
func (a *InventoryAuditor) Stop() {
	close(a.stopCh)
	<-a.doneCh
}

func (a *InventoryAuditor) runOnce(ctx context.Context) {
	if a.locker == nil {
		_ = a.audit(ctx)
		return
	}
	err := a.locker.TryWithLock(ctx, AuditLockKey, a.interval, a.audit)
	if errors.Is(err, redisinfra.ErrLockNotAcquired) {
		logger.Debug("他のインスタンスが監査中のためスキップ")
		return
	}
	if err != nil {
		logger.Warn("在庫監査のロック取得に失敗", zap.Error(err))
	}
}

// audit はずれのある公演を警告し、公演ごとのずれをメトリクスに記録する。
// 監査の失敗はログに残すだけでロック区間の呼び出し元には返さない
func (a *InventoryAuditor) audit(ctx context.Context) error {
	log := logger.Get()
	log.Debug("在庫監査開始")

	inv, err := a.source.AuditInventory(ctx)
	if err != nil {
		log.Error("在庫監査に失敗", zap.Error(err))
		return nil
	}

	drifted := 0
	for _, i := range inv {
		a.metrics.SetInventoryDrift(i.ShowID, i.Drift())
		if i.Consistent() {
			continue
		}
		drifted++
		log.Warn("在庫のずれを検出",
			zap.Int64("show_id", i.ShowID),
			zap.Int("capacity", i.Capacity),
			zap.Int("seats_available", i.SeatsAvailable),
			zap.Int("confirmed_seats", i.ConfirmedSeats),
			zap.Int("drift", i.Drift()),
		)
	}

	if drifted > 0 {
		log.Warn("在庫監査完了（ずれあり）", zap.Int("shows", len(inv)), zap.Int("drifted", drifted))
	} else {
		log.Debug("在庫監査完了", zap.Int("shows", len(inv)))
	}
	return nil
}
