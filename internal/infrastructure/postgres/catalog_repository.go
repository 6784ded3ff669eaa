package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

type userRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *userRow) toEntity() *user.User {
	return &user.User{ID: r.ID, Name: r.Name, Email: r.Email, Phone: r.Phone, CreatedAt: r.CreatedAt}
}

// UserRepository は利用者リポジトリのPostgreSQL実装
type UserRepository struct{ db *sqlx.DB }

func NewUserRepository(db *sqlx.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (name, email, phone, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, u.Name, u.Email, u.Phone, u.CreatedAt).Scan(&u.ID); err != nil {
		if pqCode(err) == codeUniqueViolation {
			return user.ErrEmailAlreadyExists
		}
		return classify(err, "利用者作成に失敗")
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, name, email, phone, created_at FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, classify(err, "利用者取得に失敗")
	}
	return row.toEntity(), nil
}

func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
	return exists, err
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, email, phone, created_at FROM users ORDER BY id`); err != nil {
		return nil, classify(err, "利用者一覧取得に失敗")
	}
	users := make([]*user.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toEntity()
	}
	return users, nil
}

type theatreRow struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	City       string    `db:"city"`
	Address    string    `db:"address"`
	TotalSeats int       `db:"total_seats"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *theatreRow) toEntity() *theatre.Theatre {
	return &theatre.Theatre{ID: r.ID, Name: r.Name, City: r.City, Address: r.Address, TotalSeats: r.TotalSeats, CreatedAt: r.CreatedAt}
}

// TheatreRepository は劇場リポジトリのPostgreSQL実装
type TheatreRepository struct{ db *sqlx.DB }

func NewTheatreRepository(db *sqlx.DB) *TheatreRepository { return &TheatreRepository{db: db} }

func (r *TheatreRepository) Create(ctx context.Context, t *theatre.Theatre) error {
	query := `INSERT INTO theatres (name, city, address, total_seats, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, t.Name, t.City, t.Address, t.TotalSeats, t.CreatedAt).Scan(&t.ID); err != nil {
		return classify(err, "劇場作成に失敗")
	}
	return nil
}

func (r *TheatreRepository) GetByID(ctx context.Context, id int64) (*theatre.Theatre, error) {
	var row theatreRow
	query := `SELECT id, name, city, address, total_seats, created_at FROM theatres WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, theatre.ErrTheatreNotFound
		}
		return nil, classify(err, "劇場取得に失敗")
	}
	return row.toEntity(), nil
}

func (r *TheatreRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM theatres WHERE id = $1)`, id)
	return exists, err
}

func (r *TheatreRepository) List(ctx context.Context, city string) ([]*theatre.Theatre, error) {
	query := `SELECT id, name, city, address, total_seats, created_at FROM theatres WHERE ($1 = '' OR LOWER(city) = LOWER($1)) ORDER BY id`
	var rows []theatreRow
	if err := r.db.SelectContext(ctx, &rows, query, city); err != nil {
		return nil, classify(err, "劇場一覧取得に失敗")
	}
	theatres := make([]*theatre.Theatre, len(rows))
	for i := range rows {
		theatres[i] = rows[i].toEntity()
	}
	return theatres, nil
}

var (
	_ user.Repository    = (*UserRepository)(nil)
	_ theatre.Repository = (*TheatreRepository)(nil)
)
