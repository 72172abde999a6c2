package circulation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/circulation-go/core"
	"github.com/openshelf/circulation-go/inventory"
	"github.com/openshelf/circulation-go/shell"
)

var (
	// ErrNilInventoryStore is returned when the manager is built without a store.
	ErrNilInventoryStore = errors.New("inventory store must not be nil")

	// ErrInvalidBorrowLimit is returned when the borrow limit is not positive.
	ErrInvalidBorrowLimit = errors.New("borrow limit must be positive")

	// ErrInvalidLoanPeriod is returned when the loan period is not positive.
	ErrInvalidLoanPeriod = errors.New("loan period must be positive")
)

// Manager owns the LoanRecord lifecycle. Loans are never deleted; a return
// closes the loan and the record stays as lending history.
type Manager struct {
	store       shell.InventoryStore
	publisher   shell.EventPublisher
	locks       *shell.KeyedLock
	clock       func() time.Time
	newID       func() string
	borrowLimit int
	loanPeriod  time.Duration
}

// Option defines a functional option for configuring the Manager.
type Option func(*Manager) error

// WithEventPublisher sets the bus successful mutations are published to.
func WithEventPublisher(publisher shell.EventPublisher) Option {
	return func(m *Manager) error {
		m.publisher = publisher
		return nil
	}
}

// WithKeyedLock sets the lock instance. Pass the same instance to the
// catalog manager so loan writes and catalog deletes serialize in-process.
func WithKeyedLock(locks *shell.KeyedLock) Option {
	return func(m *Manager) error {
		m.locks = locks
		return nil
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) error {
		m.clock = clock
		return nil
	}
}

// WithIDGenerator overrides the id source, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) error {
		m.newID = newID
		return nil
	}
}

// WithBorrowLimit overrides how many books one user may have on active loan.
func WithBorrowLimit(limit int) Option {
	return func(m *Manager) error {
		if limit <= 0 {
			return ErrInvalidBorrowLimit
		}

		m.borrowLimit = limit

		return nil
	}
}

// WithLoanPeriod overrides how long a borrower may keep a book.
func WithLoanPeriod(period time.Duration) Option {
	return func(m *Manager) error {
		if period <= 0 {
			return ErrInvalidLoanPeriod
		}

		m.loanPeriod = period

		return nil
	}
}

// NewManager creates a circulation Manager backed by the given store.
func NewManager(store shell.InventoryStore, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrNilInventoryStore
	}

	manager := &Manager{
		store:       store,
		clock:       time.Now,
		newID:       uuid.NewString,
		borrowLimit: core.DefaultBorrowLimit,
		loanPeriod:  core.DefaultLoanPeriod,
	}

	for _, option := range options {
		if err := option(manager); err != nil {
			return nil, err
		}
	}

	if manager.locks == nil {
		manager.locks = shell.NewKeyedLock()
	}

	return manager, nil
}

// CheckEligibility reports whether the user may borrow the book right now.
// The answer is advisory: CreateLoan re-decides inside its critical section,
// so a positive answer here can still end in a rejected loan.
func (m *Manager) CheckEligibility(
	ctx context.Context,
	userID core.UserIDString,
	bookID core.BookIDString,
) (core.EligibilityDecision, error) {

	ctx = inventory.WithStrongReads(ctx)

	state, _, err := m.eligibilityState(ctx, userID, bookID)
	if err != nil {
		return core.EligibilityDecision{}, err
	}

	return core.DecideLoanEligibility(state), nil
}

// CreateLoan lends the book to the user. Eligibility is re-decided inside
// the critical section, then the ACTIVE loan and the BORROWED book are
// written in one guarded commit: both or neither. The guards re-check the
// book mutual exclusion and that the book and its library still exist, so a
// racing return, delete, or competing loan from another process loses cleanly.
func (m *Manager) CreateLoan(
	ctx context.Context,
	userID core.UserIDString,
	bookID core.BookIDString,
	libraryID core.LibraryIDString,
) (core.LoanRecord, error) {

	userKey := shell.UserLockKey(userID)
	bookKey := shell.BookLockKey(bookID)
	m.locks.LockOrdered(userKey, bookKey)
	defer m.locks.UnlockOrdered(userKey, bookKey)

	ctx = inventory.WithStrongReads(ctx)

	state, book, err := m.eligibilityState(ctx, userID, bookID)
	if err != nil {
		return core.LoanRecord{}, err
	}

	decision := core.DecideLoanEligibility(state)
	if !decision.Eligible {
		return core.LoanRecord{}, decision.AsError(bookID)
	}

	if book.LibraryID != libraryID {
		return core.LoanRecord{}, core.BuildValidationError("book does not belong to library")
	}

	now := m.clock()
	loan := core.BuildLoanRecord(m.newID(), bookID, userID, libraryID, now, m.loanPeriod)
	borrowedBook := book.WithStatus(core.BookStatusBorrowed, now)

	loanRecord, err := shell.StorableRecordFromLoan(loan)
	if err != nil {
		return core.LoanRecord{}, core.BuildStorageError(err)
	}

	bookRecord, err := shell.StorableRecordFromBook(borrowedBook)
	if err != nil {
		return core.LoanRecord{}, core.BuildStorageError(err)
	}

	err = m.store.Commit(
		ctx,
		inventory.StorableRecords{loanRecord, bookRecord},
		inventory.GuardAbsent(shell.FilterActiveLoanForBook(bookID)),
		inventory.GuardPresent(shell.FilterBookByID(bookID)),
		inventory.GuardPresent(shell.FilterLibraryByID(libraryID)),
	)

	if err != nil {
		if errors.Is(err, inventory.ErrGuardViolated) {
			return core.LoanRecord{}, core.BuildConflictError("conflicting concurrent update")
		}

		return core.LoanRecord{}, core.BuildStorageError(err)
	}

	m.publish(core.BuildLoanCreated(loan, now))

	return loan, nil
}

// ReturnLoan closes the loan and makes the book available again, in one
// guarded commit. Returning an unknown loan is a NotFoundError; returning a
// closed loan is a ConflictError("already returned") every time after the
// first.
func (m *Manager) ReturnLoan(ctx context.Context, loanID core.LoanIDString) (core.LoanRecord, error) {
	ctx = inventory.WithStrongReads(ctx)

	// First read outside any lock, just to learn the book id for locking.
	loan, err := m.loadLoan(ctx, loanID)
	if err != nil {
		return core.LoanRecord{}, err
	}

	bookKey := shell.BookLockKey(loan.BookID)
	m.locks.Lock(bookKey)
	defer m.locks.Unlock(bookKey)

	// Re-read under the lock; the first read may be stale by now.
	loan, err = m.loadLoan(ctx, loanID)
	if err != nil {
		return core.LoanRecord{}, err
	}

	now := m.clock()

	returned, err := loan.MarkReturned(now)
	if err != nil {
		return core.LoanRecord{}, err
	}

	records := make(inventory.StorableRecords, 0, 2)

	loanRecord, err := shell.StorableRecordFromLoan(returned)
	if err != nil {
		return core.LoanRecord{}, core.BuildStorageError(err)
	}
	records = append(records, loanRecord)

	book, err := m.loadBook(ctx, loan.BookID)
	if err == nil {
		bookRecord, codecErr := shell.StorableRecordFromBook(book.WithStatus(core.BookStatusAvailable, now))
		if codecErr != nil {
			return core.LoanRecord{}, core.BuildStorageError(codecErr)
		}
		records = append(records, bookRecord)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.LoanRecord{}, err
	}

	err = m.store.Commit(
		ctx,
		records,
		inventory.GuardPresent(shell.FilterActiveLoanByID(loanID)),
	)

	if err != nil {
		if errors.Is(err, inventory.ErrGuardViolated) {
			return core.LoanRecord{}, core.BuildConflictError("already returned")
		}

		return core.LoanRecord{}, core.BuildStorageError(err)
	}

	m.publish(core.BuildLoanReturned(returned, now))

	return returned, nil
}

// GetLoan retrieves a loan by id.
func (m *Manager) GetLoan(ctx context.Context, loanID core.LoanIDString) (core.LoanRecord, error) {
	return m.loadLoan(ctx, loanID)
}

// ActiveLoansForUser retrieves the user's active loans.
func (m *Manager) ActiveLoansForUser(ctx context.Context, userID core.UserIDString) ([]core.LoanRecord, error) {
	return m.scanLoans(ctx, shell.FilterActiveLoansForUser(userID))
}

// LoansForBook retrieves the full lending history of a book, active and
// returned.
func (m *Manager) LoansForBook(ctx context.Context, bookID core.BookIDString) ([]core.LoanRecord, error) {
	return m.scanLoans(ctx, shell.FilterLoansForBook(bookID))
}

// OverdueLoans retrieves all active loans past their due date.
func (m *Manager) OverdueLoans(ctx context.Context) ([]core.LoanRecord, error) {
	active, err := m.scanLoans(ctx, shell.FilterActiveLoans())
	if err != nil {
		return nil, err
	}

	now := m.clock()
	overdue := make([]core.LoanRecord, 0)

	for _, loan := range active {
		if loan.IsOverdue(now) {
			overdue = append(overdue, loan)
		}
	}

	return overdue, nil
}

// eligibilityState assembles the snapshot the eligibility decision needs:
// the user's active loan count, the book, and whether the book already has
// an active loan. Callers that are about to write hold the lock while
// calling this.
func (m *Manager) eligibilityState(
	ctx context.Context,
	userID core.UserIDString,
	bookID core.BookIDString,
) (core.EligibilityState, core.Book, error) {

	userLoans, err := m.store.Scan(ctx, shell.FilterActiveLoansForUser(userID))
	if err != nil {
		return core.EligibilityState{}, core.Book{}, core.BuildStorageError(err)
	}

	bookLoans, err := m.store.Scan(ctx, shell.FilterActiveLoanForBook(bookID))
	if err != nil {
		return core.EligibilityState{}, core.Book{}, core.BuildStorageError(err)
	}

	state := core.EligibilityState{
		UserActiveLoanCount: len(userLoans),
		BorrowLimit:         m.borrowLimit,
		BookHasActiveLoan:   len(bookLoans) > 0,
	}

	book, err := m.loadBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return state, core.Book{}, nil
		}

		return core.EligibilityState{}, core.Book{}, err
	}

	state.BookFound = true
	state.BookStatus = book.Status

	return state, book, nil
}

func (m *Manager) loadLoan(ctx context.Context, loanID core.LoanIDString) (core.LoanRecord, error) {
	record, err := m.store.Get(ctx, shell.RecordKindLoan, loanID)
	if err != nil {
		if errors.Is(err, inventory.ErrRecordNotFound) {
			return core.LoanRecord{}, core.BuildNotFoundError(shell.RecordKindLoan, loanID)
		}

		return core.LoanRecord{}, core.BuildStorageError(err)
	}

	loan, err := shell.LoanFromStorableRecord(record)
	if err != nil {
		return core.LoanRecord{}, core.BuildStorageError(err)
	}

	return loan, nil
}

func (m *Manager) loadBook(ctx context.Context, bookID core.BookIDString) (core.Book, error) {
	record, err := m.store.Get(ctx, shell.RecordKindBook, bookID)
	if err != nil {
		if errors.Is(err, inventory.ErrRecordNotFound) {
			return core.Book{}, core.BuildNotFoundError(shell.RecordKindBook, bookID)
		}

		return core.Book{}, core.BuildStorageError(err)
	}

	book, err := shell.BookFromStorableRecord(record)
	if err != nil {
		return core.Book{}, core.BuildStorageError(err)
	}

	return book, nil
}

func (m *Manager) scanLoans(ctx context.Context, filter inventory.Filter) ([]core.LoanRecord, error) {
	records, err := m.store.Scan(ctx, filter)
	if err != nil {
		return nil, core.BuildStorageError(err)
	}

	loans, err := shell.LoansFromStorableRecords(records)
	if err != nil {
		return nil, core.BuildStorageError(err)
	}

	return loans, nil
}

func (m *Manager) publish(events ...core.DomainEvent) {
	if m.publisher != nil {
		m.publisher.Publish(events...)
	}
}
