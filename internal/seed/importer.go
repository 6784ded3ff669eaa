package seed

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-reservation/internal/pkg/logger"
)

// LockKey は複数インスタンスが同時に投入しないための分散ロックキー
const LockKey = "seed:import"

// Store は初期データの投入先
type Store interface {
	// HasUsers は利用者が1件でも存在するかを返す
	HasUsers(ctx context.Context) (bool, error)
	// Import は Dataset をひとつのトランザクションで投入する。IDは指定値を使う
	Import(ctx context.Context, ds *Dataset) error
}

// Locker は排他区間を提供する（Redis 分散ロックなど）
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// Summary は投入結果
type Summary struct {
	Skipped  bool
	Users    int
	Theatres int
	Shows    int
	Bookings int
}

// Importer は初期データの投入を行う
type Importer struct {
	store  Store
	locker Locker
}

// NewImporter は Importer を作成する。locker は nil でもよい
func NewImporter(store Store, locker Locker) *Importer {
	return &Importer{store: store, locker: locker}
}

// ImportFile は path の db.json を投入する。既にデータがあれば何もしない
func (i *Importer) ImportFile(ctx context.Context, path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, errors.Wrapf(err, "初期データファイルの読み込みに失敗: %s", path)
	}
	ds, err := Parse(data)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	run := func(ctx context.Context) error {
		s, err := i.importDataset(ctx, ds)
		summary = s
		return err
	}
	if i.locker != nil {
		err = i.locker.WithLock(ctx, LockKey, time.Minute, run)
	} else {
		err = run(ctx)
	}
	return summary, err
}

func (i *Importer) importDataset(ctx context.Context, ds *Dataset) (Summary, error) {
	exists, err := i.store.HasUsers(ctx)
	if err != nil {
		return Summary{}, errors.Wrap(err, "既存データの確認に失敗")
	}
	if exists {
		logger.Info("データが既に存在するため初期データ投入をスキップ")
		return Summary{Skipped: true}, nil
	}

	if err := i.store.Import(ctx, ds); err != nil {
		return Summary{}, errors.Wrap(err, "初期データの投入に失敗")
	}

	summary := Summary{
		Users:    len(ds.Users),
		Theatres: len(ds.Theatres),
		Shows:    len(ds.Shows),
		Bookings: len(ds.Bookings),
	}
	logger.Info("初期データを投入",
		zap.Int("users", summary.Users),
		zap.Int("theatres", summary.Theatres),
		zap.Int("shows", summary.Shows),
		zap.Int("bookings", summary.Bookings),
	)
	return summary, nil
}
