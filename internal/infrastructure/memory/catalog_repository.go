package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

// UserRepository はインメモリの利用者リポジトリ
type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailAlreadyExists
		}
	}
	s.userSeq++
	u.ID = s.userSeq
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// TheatreRepository はインメモリの劇場リポジトリ
type TheatreRepository struct {
	store *Store
}

func NewTheatreRepository(store *Store) *TheatreRepository {
	return &TheatreRepository{store: store}
}

func (r *TheatreRepository) Create(ctx context.Context, th *theatre.Theatre) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theatreSeq++
	th.ID = s.theatreSeq
	c := *th
	s.theatres[th.ID] = &c
	return nil
}

func (r *TheatreRepository) GetByID(ctx context.Context, id int64) (*theatre.Theatre, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.theatres[id]
	if !ok {
		return nil, theatre.ErrTheatreNotFound
	}
	c := *th
	return &c, nil
}

func (r *TheatreRepository) Exists(ctx context.Context, id int64) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.theatres[id]
	return ok, nil
}

func (r *TheatreRepository) List(ctx context.Context, city string) ([]*theatre.Theatre, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	theatres := make([]*theatre.Theatre, 0, len(s.theatres))
	for _, th := range s.theatres {
		if city != "" && !strings.EqualFold(th.City, city) {
			continue
		}
		c := *th
		theatres = append(theatres, &c)
	}
	sort.Slice(theatres, func(i, j int) bool { return theatres[i].ID < theatres[j].ID })
	return theatres, nil
}

var (
	_ user.Repository    = (*UserRepository)(nil)
	_ theatre.Repository = (*TheatreRepository)(nil)
)
