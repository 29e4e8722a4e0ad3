package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/loan/model"
	repo "library-backend/pkg/repository"
)

// LoanServiceInterface: mượn sách
type LoanServiceInterface interface {
	// Create locks the book, checks the member, takes Quantity copies from
	// stock and records a borrowed loan, all in one transaction.
	// Returns ErrBookNotFound / ErrMemberNotFound, ErrInvalidDueDate,
	// ErrInsufficientStock (bad_request).
	Create(ctx context.Context, req model.CreateLoanRequest) (*model.Loan, error)

	// Get returns the loan with its status derived at read time (late).
	Get(ctx context.Context, id uuid.UUID) (*model.Loan, error)

	// List paginates loans joined with book title and member name.
	List(ctx context.Context, req model.ListLoansRequest) (*repo.Page[model.LoanView], error)
}

// ReturnServiceInterface: trả sách
type ReturnServiceInterface interface {
	// Create records the return of a loan, computes the fine and puts the
	// copies back in stock. A loan can be returned once
	// (ErrLoanAlreadyReturned / ErrReturnAlreadyExists).
	Create(ctx context.Context, req model.CreateReturnRequest) (*model.Return, error)
}
