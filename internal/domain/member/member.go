package member

import "time"

// Member is a registered library member. Records are immutable after
// registration; the code is the public identity used by every circulation
// operation.
type Member struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewMember(code, name, surname string, dateOfBirth time.Time) *Member {
	return &Member{
		Code:        code,
		Name:        name,
		Surname:     surname,
		DateOfBirth: dateOfBirth,
	}
}
