package server

import (
	"errors"
	"net/http"
	"strings"

	"mozhi/pkg/domain"
	"mozhi/pkg/store"
	"mozhi/services/world/internal/app"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	users, err := s.app.ListUsers(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in domain.User
	if err := s.decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.app.CreateUser(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.app.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.User
	if err := s.decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.app.UpdateUser(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.app.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSuccess("deleted", nil))
}

// /books?user_id=
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := queryInt(r, "user_id", 0, 1, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	books, err := s.app.ListBooks(r.Context(), int64(userID), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, books)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in domain.Book
	if err := s.decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.app.CreateBook(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, b)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.app.GetBook(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, b)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.Book
	if err := s.decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.app.UpdateBook(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, b)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.app.DeleteBook(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSuccess("deleted", nil))
}

func (s *Server) handleUploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !s.app.CoverStorageEnabled() {
		writeError(w, r, app.ErrCoverStorageDisabled)
		return
	}
	// Room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.app.CoverMaxBytes()+64<<10)
	if err := r.ParseMultipartForm(s.app.CoverMaxBytes()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, app.ErrCoverTooLarge)
			return
		}
		writeError(w, r, &app.ValidationError{Details: []app.FieldError{{
			Loc: []string{"body"}, Msg: "invalid form data", Type: "value_error.multipart",
		}}})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, &app.ValidationError{Details: []app.FieldError{{
			Loc: []string{"body", "file"}, Msg: "field required", Type: "value_error.missing",
		}}})
		return
	}
	defer file.Close()
	b, err := s.app.UploadCover(r.Context(), id, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, b)
}

// handleGetCover redirects to a short-lived download URL.
func (s *Server) handleGetCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := s.app.CoverURL(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

const (
	defaultSuggestionLimit = 20
	maxSuggestionLimit     = 100
)

func (s *Server) handleSearchSuggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultSuggestionLimit, 1, maxSuggestionLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	found, err := s.app.SearchSuggestions(r.Context(), store.SuggestionQuery{
		Type:         strings.TrimSpace(q.Get("type")),
		Language:     strings.TrimSpace(q.Get("language")),
		NameContains: strings.TrimSpace(q.Get("q")),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, found)
}

func (s *Server) handleCreateSuggestion(w http.ResponseWriter, r *http.Request) {
	var in domain.CommonSuggestion
	if err := s.decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.app.CreateSuggestion(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, out)
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.app.GetSuggestion(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (s *Server) handleUpdateSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.CommonSuggestion
	if err := s.decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.app.UpdateSuggestion(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (s *Server) handleDeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.app.DeleteSuggestion(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSuccess("deleted", nil))
}
