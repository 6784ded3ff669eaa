package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

func TestTheatreService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.theatre.CreateTheatre(ctx, CreateTheatreInput{Name: "なんば劇場", City: "大阪", TotalSeats: 200})
	require.NoError(t, err)

	t.Run("都市で絞り込み", func(t *testing.T) {
		list, err := env.theatre.ListTheatres(ctx, "大阪")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "なんば劇場", list[0].Name)

		all, err := env.theatre.ListTheatres(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("入力検証", func(t *testing.T) {
		_, err := env.theatre.CreateTheatre(ctx, CreateTheatreInput{City: "東京"})
		assert.ErrorIs(t, err, theatre.ErrTheatreNameRequired)
	})

	t.Run("存在しない劇場", func(t *testing.T) {
		_, err := env.theatre.GetTheatre(ctx, 999)
		assert.ErrorIs(t, err, theatre.ErrTheatreNotFound)
	})
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	u := env.createUser(t, "yamada@example.com")

	t.Run("取得", func(t *testing.T) {
		got, err := env.userSvc.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "yamada@example.com", got.Email)
	})

	t.Run("メールアドレスの重複は大文字小文字を区別しない", func(t *testing.T) {
		_, err := env.userSvc.CreateUser(ctx, CreateUserInput{Name: "別人", Email: "YAMADA@example.com"})
		assert.ErrorIs(t, err, user.ErrEmailAlreadyExists)
	})

	t.Run("不正なメールアドレス", func(t *testing.T) {
		_, err := env.userSvc.CreateUser(ctx, CreateUserInput{Name: "誰か", Email: "not-an-email"})
		assert.ErrorIs(t, err, user.ErrInvalidEmail)
	})

	t.Run("一覧", func(t *testing.T) {
		env.createUser(t, "suzuki@example.com")
		list, err := env.userSvc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}
