package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-show-reservation/internal/seed"
)

// SeedStore は初期データをひとつのトランザクションで投入する
type SeedStore struct{ db *sqlx.DB }

func NewSeedStore(db *sqlx.DB) *SeedStore { return &SeedStore{db: db} }

func (s *SeedStore) HasUsers(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users)`)
	return exists, err
}

// Import はファイルのIDをそのまま使って投入し、最後に各シーケンスを最大IDの次へ進める
func (s *SeedStore) Import(ctx context.Context, ds *seed.Dataset) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "トランザクション開始に失敗")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(ds.Users) > 0 {
		rows := make([]userRow, len(ds.Users))
		for i, u := range ds.Users {
			rows[i] = userRow{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, CreatedAt: u.CreatedAt}
		}
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO users (id, name, email, phone, created_at) VALUES (:id, :name, :email, :phone, :created_at)`, rows); err != nil {
			return errors.Wrap(err, "利用者の投入に失敗")
		}
	}
	if len(ds.Theatres) > 0 {
		rows := make([]theatreRow, len(ds.Theatres))
		for i, t := range ds.Theatres {
			rows[i] = theatreRow{ID: t.ID, Name: t.Name, City: t.City, Address: t.Address, TotalSeats: t.TotalSeats, CreatedAt: t.CreatedAt}
		}
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO theatres (id, name, city, address, total_seats, created_at) VALUES (:id, :name, :city, :address, :total_seats, :created_at)`, rows); err != nil {
			return errors.Wrap(err, "劇場の投入に失敗")
		}
	}
	if len(ds.Shows) > 0 {
		rows := make([]showRow, len(ds.Shows))
		for i, sh := range ds.Shows {
			rows[i] = newShowRow(sh)
		}
		if _, err = tx.NamedExecContext(ctx, `
			INSERT INTO shows (id, theatre_id, movie_title, starts_at, price, capacity, seats_available, language, screen, created_at, updated_at, version)
			VALUES (:id, :theatre_id, :movie_title, :starts_at, :price, :capacity, :seats_available, :language, :screen, :created_at, :updated_at, :version)`, rows); err != nil {
			return errors.Wrap(err, "公演の投入に失敗")
		}
	}
	if len(ds.Bookings) > 0 {
		rows := make([]bookingRow, len(ds.Bookings))
		for i, b := range ds.Bookings {
			rows[i] = newBookingRow(b)
		}
		if _, err = tx.NamedExecContext(ctx, `
			INSERT INTO bookings (id, user_id, show_id, seats, total_price, status, booked_at, updated_at, version)
			VALUES (:id, :user_id, :show_id, :seats, :total_price, :status, :booked_at, :updated_at, :version)`, rows); err != nil {
			return errors.Wrap(err, "予約の投入に失敗")
		}
	}

	for _, table := range []string{"users", "theatres", "shows", "bookings"} {
		query := `SELECT setval(pg_get_serial_sequence('` + table + `', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM ` + table
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return errors.Wrapf(err, "シーケンス更新に失敗: %s", table)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "初期データのコミットに失敗")
	}
	return nil
}

var _ seed.Store = (*SeedStore)(nil)
