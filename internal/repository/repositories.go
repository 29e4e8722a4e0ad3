package repository

import (
	bookModel "library-backend/internal/domains/book/model"
	loanModel "library-backend/internal/domains/loan/model"
	memberModel "library-backend/internal/domains/member/model"
	reservationModel "library-backend/internal/domains/reservation/model"
	"library-backend/pkg/database"
	repo "library-backend/pkg/repository"
)

// Repositories là bộ repository đầy đủ của core, bound vào một connection
// handle (pool hoặc transaction).
type Repositories struct {
	Books            *repo.Repository[bookModel.Book]
	Members          *repo.Repository[memberModel.Member]
	Loans            *repo.Repository[loanModel.Loan]
	LoanViews        *repo.Repository[loanModel.LoanView]
	Returns          *repo.Repository[loanModel.Return]
	Reservations     *repo.Repository[reservationModel.Reservation]
	ReservationViews *repo.Repository[reservationModel.ReservationView]
}

// NewRepositories validates every table config and binds the set to db.
func NewRepositories(db database.Querier, opts ...repo.Option) (*Repositories, error) {
	var (
		r   Repositories
		err error
	)

	if r.Books, err = repo.New[bookModel.Book](db, BooksTable, opts...); err != nil {
		return nil, err
	}
	if r.Members, err = repo.New[memberModel.Member](db, MembersTable, opts...); err != nil {
		return nil, err
	}
	if r.Loans, err = repo.New[loanModel.Loan](db, LoansTable, opts...); err != nil {
		return nil, err
	}
	if r.LoanViews, err = repo.New[loanModel.LoanView](db, LoansTable, opts...); err != nil {
		return nil, err
	}
	if r.Returns, err = repo.New[loanModel.Return](db, ReturnsTable, opts...); err != nil {
		return nil, err
	}
	if r.Reservations, err = repo.New[reservationModel.Reservation](db, ReservationsTable, opts...); err != nil {
		return nil, err
	}
	if r.ReservationViews, err = repo.New[reservationModel.ReservationView](db, ReservationsTable, opts...); err != nil {
		return nil, err
	}

	return &r, nil
}

// WithDB returns the same set bound to another handle. Configs were
// validated by NewRepositories, so rebinding cannot fail.
func (r *Repositories) WithDB(db database.Querier) *Repositories {
	return &Repositories{
		Books:            r.Books.WithDB(db),
		Members:          r.Members.WithDB(db),
		Loans:            r.Loans.WithDB(db),
		LoanViews:        r.LoanViews.WithDB(db),
		Returns:          r.Returns.WithDB(db),
		Reservations:     r.Reservations.WithDB(db),
		ReservationViews: r.ReservationViews.WithDB(db),
	}
}

// TxManager hands transaction-scoped Repositories to workflows.
type TxManager = database.TxManager[*Repositories]

// NewTxManager builds the manager from the pool and the pool-bound set.
func NewTxManager(pool database.TxBeginner, repos *Repositories, opts ...database.TxOption) *TxManager {
	return database.NewTxManager(pool, repos.WithDB, opts...)
}
