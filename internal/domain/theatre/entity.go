package theatre

import "time"

// Theatre は劇場エンティティを表す
type Theatre struct {
	ID         int64
	Name       string
	City       string
	Address    string
	TotalSeats int
	CreatedAt  time.Time
}

// NewTheatre は新しい劇場を作成する
func NewTheatre(name, city, address string, totalSeats int) *Theatre {
	return &Theatre{
		Name:       name,
		City:       city,
		Address:    address,
		TotalSeats: totalSeats,
		CreatedAt:  time.Now(),
	}
}

// Validate は劇場の検証を行う
func (t *Theatre) Validate() error {
	if t.Name == "" {
		return ErrTheatreNameRequired
	}
	if t.City == "" {
		return ErrCityRequired
	}
	if t.TotalSeats < 0 {
		return ErrInvalidTotalSeats
	}
	return nil
}
