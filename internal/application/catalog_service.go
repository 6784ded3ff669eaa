package application

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

// TheatreService は劇場の管理操作を提供する
type TheatreService struct {
	theatreRepo theatre.Repository
}

func NewTheatreService(tr theatre.Repository) *TheatreService {
	return &TheatreService{theatreRepo: tr}
}

type CreateTheatreInput struct {
	Name       string
	City       string
	Address    string
	TotalSeats int
}

func (s *TheatreService) CreateTheatre(ctx context.Context, input CreateTheatreInput) (*theatre.Theatre, error) {
	th := theatre.NewTheatre(input.Name, input.City, input.Address, input.TotalSeats)
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if err := s.theatreRepo.Create(ctx, th); err != nil {
		return nil, wrapInternal(err, "劇場作成に失敗")
	}
	return th, nil
}

func (s *TheatreService) GetTheatre(ctx context.Context, id int64) (*theatre.Theatre, error) {
	th, err := s.theatreRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(err, "劇場取得に失敗")
	}
	return th, nil
}

func (s *TheatreService) ListTheatres(ctx context.Context, city string) ([]*theatre.Theatre, error) {
	theatres, err := s.theatreRepo.List(ctx, city)
	if err != nil {
		return nil, errors.Wrap(err, "劇場一覧取得に失敗")
	}
	return theatres, nil
}

// UserService は利用者の管理操作を提供する
type UserService struct {
	userRepo user.Repository
}

func NewUserService(ur user.Repository) *UserService {
	return &UserService{userRepo: ur}
}

type CreateUserInput struct {
	Name  string
	Email string
	Phone string
}

func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*user.User, error) {
	u := user.NewUser(input.Name, input.Email, input.Phone)
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, wrapInternal(err, "利用者作成に失敗")
	}
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(err, "利用者取得に失敗")
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*user.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "利用者一覧取得に失敗")
	}
	return users, nil
}
