// Package seed は db.json 形式の初期データを読み込み、ストアに一括投入する
package seed

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/logger"
)

// Dataset は検証済みの投入データ。IDはファイルの値を保持する
type Dataset struct {
	Users    []*user.User
	Theatres []*theatre.Theatre
	Shows    []*show.Show
	Bookings []*booking.Booking
}

// flexID は数値と数値文字列の両方を受け付ける。解釈できなければ 0
type flexID int64

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		*id = 0
		return nil
	}
	*id = flexID(n)
	return nil
}

type rawFile struct {
	Users    []rawUser    `json:"users"`
	Theatres []rawTheatre `json:"theatres"`
	Shows    []rawShow    `json:"shows"`
	Bookings []rawBooking `json:"bookings"`
}

type rawUser struct {
	ID    flexID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type rawTheatre struct {
	ID         flexID `json:"id"`
	Name       string `json:"name"`
	City       string `json:"city"`
	Address    string `json:"address"`
	TotalSeats int    `json:"totalSeats"`
}

type rawShow struct {
	ID             flexID          `json:"id"`
	TheatreID      flexID          `json:"theatreId"`
	MovieTitle     string          `json:"movieTitle"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Price          decimal.Decimal `json:"price"`
	SeatsAvailable int             `json:"seatsAvailable"`
	Language       string          `json:"language"`
	Screen         string          `json:"screen"`
}

type rawBooking struct {
	ID         flexID           `json:"id"`
	UserID     flexID           `json:"userId"`
	ShowID     flexID           `json:"showId"`
	Seats      int              `json:"seats"`
	TotalPrice *decimal.Decimal `json:"totalPrice"`
	Status     string           `json:"status"`
}

// keepLast はIDの重複を最後の出現で上書きし、初出順を保った一覧を返す
func keepLast[T any](kind string, items []T, idOf func(T) int64) []T {
	index := make(map[int64]int, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		id := idOf(it)
		if id <= 0 {
			logger.Warn("IDが不正なレコードをスキップ", zap.String("kind", kind))
			continue
		}
		if i, dup := index[id]; dup {
			logger.Warn("ID重複、最後の出現を採用", zap.String("kind", kind), zap.Int64("id", id))
			out[i] = it
			continue
		}
		index[id] = len(out)
		out = append(out, it)
	}
	return out
}

// Parse は db.json を読み取り、参照整合性を満たす Dataset を組み立てる。
// 公演の定員は「ファイルの空席数＋確定予約の座席数」とする
func Parse(data []byte) (*Dataset, error) {
	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "初期データの解析に失敗")
	}

	now := time.Now()
	ds := &Dataset{}

	emails := make(map[string]int64)
	for _, ru := range keepLast("user", raw.Users, func(u rawUser) int64 { return int64(u.ID) }) {
		u := &user.User{ID: int64(ru.ID), Name: ru.Name, Email: ru.Email, Phone: ru.Phone, CreatedAt: now}
		if err := u.Validate(); err != nil {
			logger.Warn("利用者をスキップ", zap.Int64("id", u.ID), zap.Error(err))
			continue
		}
		key := strings.ToLower(u.Email)
		if other, dup := emails[key]; dup {
			logger.Warn("メールアドレス重複の利用者をスキップ", zap.Int64("id", u.ID), zap.Int64("existing_id", other))
			continue
		}
		emails[key] = u.ID
		ds.Users = append(ds.Users, u)
	}

	theatres := make(map[int64]bool)
	for _, rt := range keepLast("theatre", raw.Theatres, func(t rawTheatre) int64 { return int64(t.ID) }) {
		th := &theatre.Theatre{ID: int64(rt.ID), Name: rt.Name, City: rt.City, Address: rt.Address, TotalSeats: rt.TotalSeats, CreatedAt: now}
		if err := th.Validate(); err != nil {
			logger.Warn("劇場をスキップ", zap.Int64("id", th.ID), zap.Error(err))
			continue
		}
		theatres[th.ID] = true
		ds.Theatres = append(ds.Theatres, th)
	}

	shows := make(map[int64]*show.Show)
	for _, rs := range keepLast("show", raw.Shows, func(s rawShow) int64 { return int64(s.ID) }) {
		id := int64(rs.ID)
		if !theatres[int64(rs.TheatreID)] {
			logger.Warn("存在しない劇場を参照する公演をスキップ", zap.Int64("id", id), zap.Int64("theatre_id", int64(rs.TheatreID)))
			continue
		}
		startsAt, err := time.Parse("2006-01-02 15:04", rs.Date+" "+rs.Time)
		if err != nil {
			logger.Warn("開始日時が不正な公演をスキップ", zap.Int64("id", id), zap.Error(err))
			continue
		}
		sh := &show.Show{
			ID: id, TheatreID: int64(rs.TheatreID), MovieTitle: rs.MovieTitle, StartsAt: startsAt,
			Price: rs.Price, Capacity: rs.SeatsAvailable, SeatsAvailable: rs.SeatsAvailable,
			Language: rs.Language, Screen: rs.Screen, CreatedAt: now, UpdatedAt: now, Version: 1,
		}
		if sh.MovieTitle == "" || sh.SeatsAvailable < 0 || sh.Price.IsNegative() {
			logger.Warn("不正な公演をスキップ", zap.Int64("id", id))
			continue
		}
		shows[id] = sh
		ds.Shows = append(ds.Shows, sh)
	}

	users := make(map[int64]bool, len(ds.Users))
	for _, u := range ds.Users {
		users[u.ID] = true
	}
	for _, rb := range keepLast("booking", raw.Bookings, func(b rawBooking) int64 { return int64(b.ID) }) {
		id := int64(rb.ID)
		sh, ok := shows[int64(rb.ShowID)]
		if !ok {
			logger.Warn("存在しない公演を参照する予約をスキップ", zap.Int64("id", id), zap.Int64("show_id", int64(rb.ShowID)))
			continue
		}
		if !users[int64(rb.UserID)] {
			logger.Warn("存在しない利用者を参照する予約をスキップ", zap.Int64("id", id), zap.Int64("user_id", int64(rb.UserID)))
			continue
		}
		status := booking.Status(strings.ToUpper(strings.TrimSpace(rb.Status)))
		if status == "" {
			status = booking.StatusConfirmed
		}
		if status != booking.StatusConfirmed && status != booking.StatusCancelled {
			logger.Warn("状態が不正な予約をスキップ", zap.Int64("id", id), zap.String("status", rb.Status))
			continue
		}
		if rb.Seats <= 0 {
			logger.Warn("座席数が不正な予約をスキップ", zap.Int64("id", id), zap.Int("seats", rb.Seats))
			continue
		}
		total := booking.PriceFor(sh.Price, rb.Seats)
		if rb.TotalPrice != nil {
			total = *rb.TotalPrice
		}
		b := &booking.Booking{
			ID: id, UserID: int64(rb.UserID), ShowID: sh.ID, Seats: rb.Seats, TotalPrice: total,
			Status: status, BookedAt: now, UpdatedAt: now, Version: 1,
		}
		if status == booking.StatusConfirmed {
			sh.Capacity += b.Seats
		}
		ds.Bookings = append(ds.Bookings, b)
	}
	return ds, nil
}
