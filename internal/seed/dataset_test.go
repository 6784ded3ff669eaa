package seed

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
)

func TestParse(t *testing.T) {
	data, err := os.ReadFile("testdata/db.json")
	require.NoError(t, err)

	ds, err := Parse(data)
	require.NoError(t, err)

	assert.Len(t, ds.Users, 2)
	assert.Equal(t, int64(2), ds.Users[1].ID, "文字列のIDも数値として扱う")
	require.Len(t, ds.Theatres, 1)
	require.Len(t, ds.Shows, 2)
	require.Len(t, ds.Bookings, 2)

	t.Run("定員は空席数と確定座席数の和", func(t *testing.T) {
		assert.Equal(t, 100, ds.Shows[0].Capacity)
		assert.Equal(t, 98, ds.Shows[0].SeatsAvailable)
		assert.Equal(t, 50, ds.Shows[1].Capacity, "キャンセル済みの予約は定員に含めない")
	})

	t.Run("開始日時と価格", func(t *testing.T) {
		assert.Equal(t, time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC), ds.Shows[0].StartsAt)
		assert.True(t, decimal.RequireFromString("180.50").Equal(ds.Shows[1].Price))
	})

	t.Run("合計金額は省略時に単価から計算", func(t *testing.T) {
		assert.True(t, decimal.NewFromInt(500).Equal(ds.Bookings[0].TotalPrice))
		assert.True(t, decimal.RequireFromString("541.50").Equal(ds.Bookings[1].TotalPrice))
		assert.Equal(t, booking.StatusCancelled, ds.Bookings[1].Status)
	})
}

func TestParse_Duplicates(t *testing.T) {
	data := []byte(`{
		"users": [
			{"id": 1, "name": "旧", "email": "old@example.com"},
			{"id": 1, "name": "新", "email": "new@example.com"},
			{"id": 2, "name": "重複メール", "email": "NEW@example.com"}
		],
		"theatres": [{"id": 1, "name": "劇場", "city": "東京"}],
		"shows": [
			{"id": 1, "theatreId": 1, "movieTitle": "A", "date": "2025-01-01", "time": "10:00", "price": 1, "seatsAvailable": 5},
			{"id": 1, "theatreId": 1, "movieTitle": "B", "date": "2025-01-01", "time": "12:00", "price": 1, "seatsAvailable": 8}
		]
	}`)

	ds, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, ds.Users, 1)
	assert.Equal(t, "新", ds.Users[0].Name, "同じIDは最後の出現を採用")
	require.Len(t, ds.Shows, 1)
	assert.Equal(t, "B", ds.Shows[0].MovieTitle)
	assert.Equal(t, 8, ds.Shows[0].Capacity)
}

func TestParse_SkipsBrokenReferences(t *testing.T) {
	data := []byte(`{
		"users": [{"id": 1, "name": "利用者", "email": "u@example.com"}],
		"theatres": [{"id": 1, "name": "劇場", "city": "東京"}],
		"shows": [
			{"id": 1, "theatreId": 1, "movieTitle": "A", "date": "2025-01-01", "time": "10:00", "price": 1, "seatsAvailable": 5},
			{"id": 2, "theatreId": 9, "movieTitle": "孤立", "date": "2025-01-01", "time": "10:00", "price": 1, "seatsAvailable": 5},
			{"id": 3, "theatreId": 1, "movieTitle": "日付不正", "date": "2025/01/01", "time": "10:00", "price": 1, "seatsAvailable": 5}
		],
		"bookings": [
			{"id": 1, "userId": 1, "showId": 2, "seats": 1},
			{"id": 2, "userId": 7, "showId": 1, "seats": 1},
			{"id": 3, "userId": 1, "showId": 1, "seats": 0},
			{"id": 4, "userId": 1, "showId": 1, "seats": 1, "status": "PENDING"},
			{"id": "abc", "userId": 1, "showId": 1, "seats": 1},
			{"id": 5, "userId": 1, "showId": 1, "seats": 2}
		]
	}`)

	ds, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, ds.Shows, 1)
	assert.Equal(t, int64(1), ds.Shows[0].ID)
	require.Len(t, ds.Bookings, 1)
	assert.Equal(t, int64(5), ds.Bookings[0].ID)
	assert.Equal(t, booking.StatusConfirmed, ds.Bookings[0].Status, "状態の省略は確定扱い")
	assert.Equal(t, 7, ds.Shows[0].Capacity)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"users": [`))
	assert.Error(t, err)
}
