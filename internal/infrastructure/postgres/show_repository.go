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

	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
)

const showColumns = `id, theatre_id, movie_title, starts_at, price, capacity, seats_available, language, screen, created_at, updated_at, version`

type showRow struct {
	ID             int64           `db:"id"`
	TheatreID      int64           `db:"theatre_id"`
	MovieTitle     string          `db:"movie_title"`
	StartsAt       time.Time       `db:"starts_at"`
	Price          decimal.Decimal `db:"price"`
	Capacity       int             `db:"capacity"`
	SeatsAvailable int             `db:"seats_available"`
	Language       string          `db:"language"`
	Screen         string          `db:"screen"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	Version        int             `db:"version"`
}

func (r *showRow) toEntity() *show.Show {
	return &show.Show{
		ID: r.ID, TheatreID: r.TheatreID, MovieTitle: r.MovieTitle, StartsAt: r.StartsAt,
		Price: r.Price, Capacity: r.Capacity, SeatsAvailable: r.SeatsAvailable,
		Language: r.Language, Screen: r.Screen,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

func newShowRow(s *show.Show) showRow {
	return showRow{
		ID: s.ID, TheatreID: s.TheatreID, MovieTitle: s.MovieTitle, StartsAt: s.StartsAt,
		Price: s.Price, Capacity: s.Capacity, SeatsAvailable: s.SeatsAvailable,
		Language: s.Language, Screen: s.Screen,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, Version: s.Version,
	}
}

// ShowRepository は公演リポジトリのPostgreSQL実装
type ShowRepository struct{ db *sqlx.DB }

func NewShowRepository(db *sqlx.DB) *ShowRepository { return &ShowRepository{db: db} }

func (r *ShowRepository) Create(ctx context.Context, s *show.Show) error {
	query := `
		INSERT INTO shows (theatre_id, movie_title, starts_at, price, capacity, seats_available, language, screen, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		RETURNING id, version
	`
	err := r.db.QueryRowContext(ctx, query,
		s.TheatreID, s.MovieTitle, s.StartsAt, s.Price, s.Capacity, s.SeatsAvailable, s.Language, s.Screen, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID, &s.Version)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return theatre.ErrTheatreNotFound
		}
		return classify(err, "公演作成に失敗")
	}
	return nil
}

func (r *ShowRepository) GetByID(ctx context.Context, id int64) (*show.Show, error) {
	query := `SELECT ` + showColumns + ` FROM shows WHERE id = $1`
	var row showRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, show.ErrShowNotFound
		}
		return nil, classify(err, "公演取得に失敗")
	}
	return row.toEntity(), nil
}

func (r *ShowRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM shows WHERE id = $1)`, id)
	return exists, err
}

func (r *ShowRepository) List(ctx context.Context, filter show.Filter) ([]*show.Show, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.TheatreID != 0 {
		args = append(args, filter.TheatreID)
		conds = append(conds, fmt.Sprintf("theatre_id = $%d", len(args)))
	}
	if filter.MovieTitle != "" {
		args = append(args, filter.MovieTitle)
		conds = append(conds, fmt.Sprintf("movie_title ILIKE '%%' || $%d || '%%'", len(args)))
	}
	query := `SELECT ` + showColumns + ` FROM shows`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY starts_at, id`

	var rows []showRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(err, "公演一覧取得に失敗")
	}
	shows := make([]*show.Show, len(rows))
	for i := range rows {
		shows[i] = rows[i].toEntity()
	}
	return shows, nil
}

// GetForUpdate は行ロック（SELECT ... FOR UPDATE）付きで公演を取得する
func (r *ShowRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*show.Show, error) {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + showColumns + ` FROM shows WHERE id = $1 FOR UPDATE`
	var row showRow
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, show.ErrShowNotFound
		}
		return nil, classify(err, "公演ロックに失敗")
	}
	return row.toEntity(), nil
}

func (r *ShowRepository) CompareAndSetSeats(ctx context.Context, tx transaction.Tx, id int64, expected, next int) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `
		UPDATE shows SET seats_available = $1, updated_at = NOW(), version = version + 1
		WHERE id = $2 AND seats_available = $3
	`
	result, err := sqlxTx.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		if pqCode(err) == codeCheckViolation {
			return show.ErrInvalidSeatsAvailable
		}
		return classify(err, "空席数更新に失敗")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "空席数更新に失敗")
	}
	if rows == 0 {
		return show.ErrSeatCountConflict
	}
	return nil
}

func (r *ShowRepository) Update(ctx context.Context, tx transaction.Tx, s *show.Show) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `
		UPDATE shows
		SET theatre_id = $1, movie_title = $2, starts_at = $3, price = $4, capacity = $5, seats_available = $6,
			language = $7, screen = $8, updated_at = NOW(), version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version, updated_at
	`
	err = sqlxTx.QueryRowContext(ctx, query,
		s.TheatreID, s.MovieTitle, s.StartsAt, s.Price, s.Capacity, s.SeatsAvailable, s.Language, s.Screen, s.ID, s.Version,
	).Scan(&s.Version, &s.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return show.ErrShowConflict
	case pqCode(err) == codeCheckViolation:
		return show.ErrInvalidSeatsAvailable
	case pqCode(err) == codeForeignKeyViolation:
		return theatre.ErrTheatreNotFound
	}
	return classify(err, "公演更新に失敗")
}

// Delete は公演を削除する。予約は外部キーの ON DELETE CASCADE で削除される
func (r *ShowRepository) Delete(ctx context.Context, tx transaction.Tx, id int64) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlxTx.ExecContext(ctx, `DELETE FROM shows WHERE id = $1`, id)
	if err != nil {
		return classify(err, "公演削除に失敗")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return show.ErrShowNotFound
	}
	return nil
}

// ListInventory は公演ごとの確定座席数を1文で集計する
func (r *ShowRepository) ListInventory(ctx context.Context) ([]show.Inventory, error) {
	query := `
		SELECT s.id AS show_id, s.capacity, s.seats_available,
			COALESCE(SUM(b.seats) FILTER (WHERE b.status = 'CONFIRMED'), 0) AS confirmed_seats
		FROM shows s
		LEFT JOIN bookings b ON b.show_id = s.id
		GROUP BY s.id
		ORDER BY s.id
	`
	var rows []struct {
		ShowID         int64 `db:"show_id"`
		Capacity       int   `db:"capacity"`
		SeatsAvailable int   `db:"seats_available"`
		ConfirmedSeats int   `db:"confirmed_seats"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, classify(err, "在庫集計に失敗")
	}
	inv := make([]show.Inventory, len(rows))
	for i, row := range rows {
		inv[i] = show.Inventory(row)
	}
	return inv, nil
}

var _ show.Repository = (*ShowRepository)(nil)
