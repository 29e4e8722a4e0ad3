package repository

import (
	repo "library-backend/pkg/repository"
)

// Table configs. Aliases are what conditions and joins refer to
// (e.g. "b.stock", "l.book_id").
var (
	BooksTable = repo.TableConfig{
		Table:     "books",
		Alias:     "b",
		CreatedAt: "created_at",
		UpdatedAt: "updated_at",
		DeletedAt: "deleted_at",
	}

	MembersTable = repo.TableConfig{
		Table:     "members",
		Alias:     "m",
		CreatedAt: "created_at",
		UpdatedAt: "updated_at",
		DeletedAt: "deleted_at",
	}

	LoansTable = repo.TableConfig{
		Table:     "loans",
		Alias:     "l",
		CreatedAt: "created_at",
		UpdatedAt: "updated_at",
	}

	ReturnsTable = repo.TableConfig{
		Table:     "returns",
		Alias:     "rt",
		CreatedAt: "created_at",
		UpdatedAt: "updated_at",
	}

	ReservationsTable = repo.TableConfig{
		Table:     "reservations",
		Alias:     "rv",
		CreatedAt: "created_at",
		UpdatedAt: "updated_at",
	}
)
