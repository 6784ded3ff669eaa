package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
)

const bookingColumns = `id, user_id, show_id, seats, total_price, status, booked_at, updated_at, version`

type bookingRow struct {
	ID         int64           `db:"id"`
	UserID     int64           `db:"user_id"`
	ShowID     int64           `db:"show_id"`
	Seats      int             `db:"seats"`
	TotalPrice decimal.Decimal `db:"total_price"`
	Status     string          `db:"status"`
	BookedAt   time.Time       `db:"booked_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
	Version    int             `db:"version"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, UserID: r.UserID, ShowID: r.ShowID, Seats: r.Seats,
		TotalPrice: r.TotalPrice, Status: booking.Status(r.Status),
		BookedAt: r.BookedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

func newBookingRow(b *booking.Booking) bookingRow {
	return bookingRow{
		ID: b.ID, UserID: b.UserID, ShowID: b.ShowID, Seats: b.Seats,
		TotalPrice: b.TotalPrice, Status: string(b.Status),
		BookedAt: b.BookedAt, UpdatedAt: b.UpdatedAt, Version: b.Version,
	}
}

// BookingRepository は予約リポジトリのPostgreSQL実装
type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository { return &BookingRepository{db: db} }

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO bookings (user_id, show_id, seats, total_price, status, booked_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		RETURNING id, version
	`
	err = sqlxTx.QueryRowContext(ctx, query,
		b.UserID, b.ShowID, b.Seats, b.TotalPrice, string(b.Status), b.BookedAt, b.UpdatedAt,
	).Scan(&b.ID, &b.Version)
	if err != nil {
		return classify(err, "予約作成に失敗")
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, classify(err, "予約取得に失敗")
	}
	return row.toEntity(), nil
}

// Update は楽観的ロック（version）で予約を更新する
func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `
		UPDATE bookings
		SET show_id = $1, seats = $2, total_price = $3, status = $4, updated_at = NOW(), version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at
	`
	err = sqlxTx.QueryRowContext(ctx, query,
		b.ShowID, b.Seats, b.TotalPrice, string(b.Status), b.ID, b.Version,
	).Scan(&b.Version, &b.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return classify(err, "予約更新に失敗")
	}

	var exists bool
	if err := sqlxTx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, b.ID); err != nil {
		return classify(err, "予約更新に失敗")
	}
	if !exists {
		return booking.ErrBookingNotFound
	}
	return booking.ErrBookingConflict
}

func (r *BookingRepository) List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.ShowID != 0 {
		args = append(args, filter.ShowID)
		conds = append(conds, fmt.Sprintf("show_id = $%d", len(args)))
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(err, "予約一覧取得に失敗")
	}
	bookings := make([]*booking.Booking, len(rows))
	for i := range rows {
		bookings[i] = rows[i].toEntity()
	}
	return bookings, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
