package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/openshelf/circulation-go/core"
)

var json = jsoniter.ConfigFastest

// userIDHeader carries the acting user's id, set by the upstream gateway.
const userIDHeader = "X-User-ID"

type libraryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (r libraryRequest) fields() core.LibraryFields {
	return core.LibraryFields{
		Name:        r.Name,
		Description: r.Description,
		Location:    r.Location,
	}
}

type bookRequest struct {
	LibraryID       string `json:"libraryId"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Edition         string `json:"edition"`
	PublicationDate string `json:"publicationDate"`
	ISBN            string `json:"isbn"`
	CoverImage      string `json:"coverImage"`
}

func (r bookRequest) fields() core.BookFields {
	return core.BookFields{
		Title:           r.Title,
		Author:          r.Author,
		Edition:         r.Edition,
		PublicationDate: r.PublicationDate,
		ISBN:            r.ISBN,
		CoverImage:      r.CoverImage,
	}
}

type bookStatusRequest struct {
	Status string `json:"status"`
}

type loanRequest struct {
	BookID    string `json:"bookId"`
	LibraryID string `json:"libraryId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type ineligibleResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

func (s *Server) handleCreateLibrary(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var request libraryRequest
	if !s.decode(w, r, &request) {
		return
	}

	library, err := s.catalog.CreateLibrary(r.Context(), actorID, request.fields())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, library)
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		s.writeJSON(w, http.StatusOK, s.cache.Libraries())
		return
	}

	libraries, err := s.catalog.ListLibraries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, libraries)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "libraryID")

	if s.cache != nil {
		library, found := s.cache.Library(libraryID)
		if !found {
			s.writeError(w, core.BuildNotFoundError("library", libraryID))
			return
		}

		s.writeJSON(w, http.StatusOK, library)

		return
	}

	library, err := s.catalog.GetLibrary(r.Context(), libraryID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, library)
}

func (s *Server) handleUpdateLibrary(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireActor(w, r); !ok {
		return
	}

	var request libraryRequest
	if !s.decode(w, r, &request) {
		return
	}

	library, err := s.catalog.UpdateLibrary(r.Context(), chi.URLParam(r, "libraryID"), request.fields())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, library)
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireActor(w, r); !ok {
		return
	}

	if err := s.catalog.DeleteLibrary(r.Context(), chi.URLParam(r, "libraryID")); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var request bookRequest
	if !s.decode(w, r, &request) {
		return
	}

	if request.LibraryID == "" {
		s.writeError(w, core.BuildValidationError("libraryId required"))
		return
	}

	book, err := s.catalog.CreateBook(r.Context(), actorID, request.LibraryID, request.fields())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	if s.cache != nil {
		book, found := s.cache.Book(bookID)
		if !found {
			s.writeError(w, core.BuildNotFoundError("book", bookID))
			return
		}

		s.writeJSON(w, http.StatusOK, book)

		return
	}

	book, err := s.catalog.GetBook(r.Context(), bookID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "libraryID")

	if s.cache != nil {
		s.writeJSON(w, http.StatusOK, s.cache.BooksInLibrary(libraryID))
		return
	}

	books, err := s.catalog.ListBooks(r.Context(), libraryID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireActor(w, r); !ok {
		return
	}

	var request bookRequest
	if !s.decode(w, r, &request) {
		return
	}

	book, err := s.catalog.UpdateBook(r.Context(), chi.URLParam(r, "bookID"), request.fields())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleUpdateBookStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireActor(w, r); !ok {
		return
	}

	var request bookStatusRequest
	if !s.decode(w, r, &request) {
		return
	}

	book, err := s.catalog.UpdateBookStatus(r.Context(), chi.URLParam(r, "bookID"), core.BookStatus(request.Status))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireActor(w, r); !ok {
		return
	}

	if err := s.catalog.DeleteBook(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var request loanRequest
	if !s.decode(w, r, &request) {
		return
	}

	if request.BookID == "" {
		s.writeError(w, core.BuildValidationError("bookId required"))
		return
	}

	if request.LibraryID == "" {
		s.writeError(w, core.BuildValidationError("libraryId required"))
		return
	}

	loan, err := s.circulation.CreateLoan(r.Context(), userID, request.BookID, request.LibraryID)
	if err != nil {
		if reason, ineligible := ineligibilityReason(err); ineligible {
			s.writeJSON(w, http.StatusUnprocessableEntity, ineligibleResponse{Eligible: false, Reason: reason})
			return
		}

		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) handleReturnLoan(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireActor(w, r); !ok {
		return
	}

	loan, err := s.circulation.ReturnLoan(r.Context(), chi.URLParam(r, "loanID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loan)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "loanID")

	if s.cache != nil {
		loan, found := s.cache.Loan(loanID)
		if !found {
			s.writeError(w, core.BuildNotFoundError("loan", loanID))
			return
		}

		s.writeJSON(w, http.StatusOK, loan)

		return
	}

	loan, err := s.circulation.GetLoan(r.Context(), loanID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loan)
}

func (s *Server) handleActiveLoansForUser(w http.ResponseWriter, r *http.Request) {
	loans, err := s.circulation.ActiveLoansForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loans)
}

func (s *Server) handleLoansForBook(w http.ResponseWriter, r *http.Request) {
	loans, err := s.circulation.LoansForBook(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loans)
}

func (s *Server) handleOverdueLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.circulation.OverdueLoans(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loans)
}

// requireActor reads the trusted user id header, answering 400 when missing.
func (s *Server) requireActor(w http.ResponseWriter, r *http.Request) (core.UserIDString, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: userIDHeader + " header required"})
		return "", false
	}

	return userID, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}

	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logError(fmt.Sprintf("encoding response failed: %s", err))
	}
}

// writeError maps the error taxonomy onto status codes:
// validation 400, not found 404, conflict 409, storage 503, anything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrStorage):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.logError(fmt.Sprintf("request failed: %s", err))
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// ineligibilityReason detects loan-eligibility failures so borrow requests
// can answer 422 with the decision reason instead of a bare 404/409.
func ineligibilityReason(err error) (string, bool) {
	var notFound core.NotFoundError
	if errors.As(err, &notFound) && notFound.Kind == "book" {
		return core.ReasonNotFound, true
	}

	var conflict core.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Reason {
		case core.ReasonBorrowLimitReached, core.ReasonAlreadyBorrowed, core.ReasonNotAvailable:
			return conflict.Reason, true
		}
	}

	return "", false
}
