package model

import (
	"time"

	"github.com/google/uuid"
)

// Book là đầu sách trong thư viện. Stock là số bản đang có sẵn để mượn
// hoặc giữ chỗ, và là counter duy nhất bị tranh chấp giữa các workflow.
type Book struct {
	// Identity
	ID    uuid.UUID `json:"id" db:"id"`
	Title string    `json:"title" db:"title"`
	ISBN  *string   `json:"isbn" db:"isbn"`

	Author     string     `json:"author" db:"author"`
	Publisher  *string    `json:"publisher" db:"publisher"`
	CategoryID *uuid.UUID `json:"category_id" db:"category_id"`

	// Inventory (CHECK stock >= 0)
	Stock int `json:"stock" db:"stock"`

	// Timestamps
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CanSupply reports whether quantity copies can be taken right now.
func (b *Book) CanSupply(quantity int) bool {
	return quantity > 0 && b.Stock >= quantity
}
