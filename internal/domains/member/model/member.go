package model

import (
	"time"

	"github.com/google/uuid"
)

// Member là bạn đọc. UserID trỏ tới tài khoản bên hệ thống auth (ngoài core).
type Member struct {
	ID      uuid.UUID  `json:"id" db:"id"`
	UserID  *uuid.UUID `json:"user_id" db:"user_id"`
	Name    string     `json:"name" db:"name"`
	Email   string     `json:"email" db:"email"`
	Phone   *string    `json:"phone" db:"phone"`
	Address *string    `json:"address" db:"address"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
