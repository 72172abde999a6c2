package projection

import (
	"context"
	"sync"
	"time"

	"github.com/openshelf/circulation-go/core"
	"github.com/openshelf/circulation-go/inventory"
	"github.com/openshelf/circulation-go/shell"
)

// DefaultSubscriberBuffer is the notification channel buffer used when a
// subscriber does not specify one.
const DefaultSubscriberBuffer = 64

// ChangeNotification tells cache subscribers that an entity changed.
// It carries identifiers only; subscribers read the new state through the
// cache's snapshot accessors.
type ChangeNotification struct {
	Kind       string
	ID         string
	EventType  string
	OccurredAt time.Time
}

// EventSource is where the cache consumes domain events from.
// shell.FanOutBus satisfies it.
type EventSource interface {
	Subscribe(buffer int) (<-chan core.DomainEvent, func())
}

// ReconciliationCache mirrors libraries, books and loans for fast reads.
// All accessors return copies; mutating a returned entity never changes the
// cache. Being fed fire-and-forget, the mirror can briefly lag the store —
// decision paths must read the store, not this cache.
type ReconciliationCache struct {
	mu        sync.RWMutex
	libraries map[core.LibraryIDString]core.Library
	books     map[core.BookIDString]core.Book
	loans     map[core.LoanIDString]core.LoanRecord

	subscriberMu sync.RWMutex
	subscribers  map[int]chan ChangeNotification
	nextID       int
}

// NewReconciliationCache creates an empty cache.
func NewReconciliationCache() *ReconciliationCache {
	return &ReconciliationCache{
		libraries:   make(map[core.LibraryIDString]core.Library),
		books:       make(map[core.BookIDString]core.Book),
		loans:       make(map[core.LoanIDString]core.LoanRecord),
		subscribers: make(map[int]chan ChangeNotification),
	}
}

// ConsumeFrom subscribes the cache to an event source and applies events in
// a background goroutine until the returned stop function is called or the
// source closes the subscription.
func (c *ReconciliationCache) ConsumeFrom(source EventSource, buffer int) (stop func()) {
	events, cancel := source.Subscribe(buffer)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for event := range events {
			c.Apply(event)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// Apply folds one domain event into the mirror and notifies subscribers.
// Unknown event types are ignored.
func (c *ReconciliationCache) Apply(event core.DomainEvent) {
	c.mu.Lock()

	var notification ChangeNotification

	switch e := event.(type) {
	case core.LibraryCreated:
		c.libraries[e.Library.ID] = e.Library
		notification = ChangeNotification{Kind: shell.RecordKindLibrary, ID: e.Library.ID}
	case core.LibraryUpdated:
		c.libraries[e.Library.ID] = e.Library
		notification = ChangeNotification{Kind: shell.RecordKindLibrary, ID: e.Library.ID}
	case core.LibraryDeleted:
		delete(c.libraries, e.LibraryID)
		notification = ChangeNotification{Kind: shell.RecordKindLibrary, ID: e.LibraryID}
	case core.BookCreated:
		c.books[e.Book.ID] = e.Book
		notification = ChangeNotification{Kind: shell.RecordKindBook, ID: e.Book.ID}
	case core.BookUpdated:
		c.books[e.Book.ID] = e.Book
		notification = ChangeNotification{Kind: shell.RecordKindBook, ID: e.Book.ID}
	case core.BookDeleted:
		delete(c.books, e.BookID)
		notification = ChangeNotification{Kind: shell.RecordKindBook, ID: e.BookID}
	case core.LoanCreated:
		c.loans[e.Loan.ID] = e.Loan
		c.applyLoanToBook(e.Loan, core.BookStatusBorrowed)
		notification = ChangeNotification{Kind: shell.RecordKindLoan, ID: e.Loan.ID}
	case core.LoanReturned:
		c.loans[e.Loan.ID] = e.Loan
		c.applyLoanToBook(e.Loan, core.BookStatusAvailable)
		notification = ChangeNotification{Kind: shell.RecordKindLoan, ID: e.Loan.ID}
	default:
		c.mu.Unlock()
		return
	}

	c.mu.Unlock()

	notification.EventType = event.IsEventType()
	notification.OccurredAt = event.HasOccurredAt()
	c.notify(notification)
}

// applyLoanToBook keeps the mirrored book status in sync with the loan
// events, since the managers publish no separate BookUpdated for the status
// flip. Caller holds the write lock.
func (c *ReconciliationCache) applyLoanToBook(loan core.LoanRecord, status core.BookStatus) {
	if book, found := c.books[loan.BookID]; found {
		c.books[loan.BookID] = book.WithStatus(status, loan.UpdatedAt)
	}
}

// Rebuild replaces the whole mirror from a store scan. Relaxed reads are
// requested: a replica is good enough for an eventually-consistent mirror.
func (c *ReconciliationCache) Rebuild(ctx context.Context, store shell.InventoryStore) error {
	ctx = inventory.WithRelaxedReads(ctx)

	libraryRecords, err := store.Scan(ctx, shell.FilterAllOfKind(shell.RecordKindLibrary))
	if err != nil {
		return core.BuildStorageError(err)
	}

	libraries, err := shell.LibrariesFromStorableRecords(libraryRecords)
	if err != nil {
		return core.BuildStorageError(err)
	}

	bookRecords, err := store.Scan(ctx, shell.FilterAllOfKind(shell.RecordKindBook))
	if err != nil {
		return core.BuildStorageError(err)
	}

	books, err := shell.BooksFromStorableRecords(bookRecords)
	if err != nil {
		return core.BuildStorageError(err)
	}

	loanRecords, err := store.Scan(ctx, shell.FilterAllOfKind(shell.RecordKindLoan))
	if err != nil {
		return core.BuildStorageError(err)
	}

	loans, err := shell.LoansFromStorableRecords(loanRecords)
	if err != nil {
		return core.BuildStorageError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.libraries = make(map[core.LibraryIDString]core.Library, len(libraries))
	for _, library := range libraries {
		c.libraries[library.ID] = library
	}

	c.books = make(map[core.BookIDString]core.Book, len(books))
	for _, book := range books {
		c.books[book.ID] = book
	}

	c.loans = make(map[core.LoanIDString]core.LoanRecord, len(loans))
	for _, loan := range loans {
		c.loans[loan.ID] = loan
	}

	return nil
}

// Library returns the mirrored library, if present.
func (c *ReconciliationCache) Library(libraryID core.LibraryIDString) (core.Library, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	library, found := c.libraries[libraryID]

	return library, found
}

// Book returns the mirrored book, if present.
func (c *ReconciliationCache) Book(bookID core.BookIDString) (core.Book, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	book, found := c.books[bookID]

	return book, found
}

// Loan returns the mirrored loan, if present.
func (c *ReconciliationCache) Loan(loanID core.LoanIDString) (core.LoanRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	loan, found := c.loans[loanID]

	return loan, found
}

// Libraries returns all mirrored libraries.
func (c *ReconciliationCache) Libraries() []core.Library {
	c.mu.RLock()
	defer c.mu.RUnlock()

	libraries := make([]core.Library, 0, len(c.libraries))
	for _, library := range c.libraries {
		libraries = append(libraries, library)
	}

	return libraries
}

// BooksInLibrary returns the mirrored books owned by the given library.
func (c *ReconciliationCache) BooksInLibrary(libraryID core.LibraryIDString) []core.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()

	books := make([]core.Book, 0)
	for _, book := range c.books {
		if book.LibraryID == libraryID {
			books = append(books, book)
		}
	}

	return books
}

// ActiveLoanCount returns how many active loans the user holds in the mirror.
func (c *ReconciliationCache) ActiveLoanCount(userID core.UserIDString) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, loan := range c.loans {
		if loan.UserID == userID && loan.Status == core.LoanStatusActive {
			count++
		}
	}

	return count
}

// Subscribe registers a change-notification subscriber with the given
// channel buffer. Delivery is non-blocking: a full buffer drops the
// notification for that subscriber. The cancel function closes the channel.
func (c *ReconciliationCache) Subscribe(buffer int) (<-chan ChangeNotification, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	c.subscriberMu.Lock()
	defer c.subscriberMu.Unlock()

	notifications := make(chan ChangeNotification, buffer)
	id := c.nextID
	c.nextID++
	c.subscribers[id] = notifications

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.subscriberMu.Lock()
			defer c.subscriberMu.Unlock()

			if subscriber, found := c.subscribers[id]; found {
				delete(c.subscribers, id)
				close(subscriber)
			}
		})
	}

	return notifications, cancel
}

func (c *ReconciliationCache) notify(notification ChangeNotification) {
	c.subscriberMu.RLock()
	defer c.subscriberMu.RUnlock()

	for _, subscriber := range c.subscribers {
		select {
		case subscriber <- notification:
		default: // subscriber too slow, drop
		}
	}
}
