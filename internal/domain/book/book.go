package book

import "time"

const DefaultCopies = 1

// Book is a catalog entry. Copies is the single source of truth for how many
// physical units are currently not out on loan and never drops below zero at
// a committed state.
type Book struct {
	ISBN      string    `json:"isbn"`
	Title     string    `json:"title"`
	Publisher string    `json:"publisher"`
	Copies    int       `json:"copies"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewBook(isbn, title, publisher string, copies int) *Book {
	if copies <= 0 {
		copies = DefaultCopies
	}
	return &Book{
		ISBN:      isbn,
		Title:     title,
		Publisher: publisher,
		Copies:    copies,
	}
}

// Available reports whether at least one copy is on the shelf.
func (b *Book) Available() bool {
	return b.Copies >= 1
}
