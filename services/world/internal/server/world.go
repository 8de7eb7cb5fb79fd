package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mozhi/services/world/internal/app"
)

// worldRoutes mounts the book-scoped entities under /books/{bookID}.
func (s *Server) worldRoutes(r chi.Router) {
	mountScoped(s, r, "/characters", s.app.Characters)
	mountScoped(s, r, "/relationships", s.app.Relationships)
	mountScoped(s, r, "/locations", s.app.Locations)
	mountScoped(s, r, "/organizations", s.app.Organizations)
	mountScoped(s, r, "/memberships", s.app.Memberships)
	mountScoped(s, r, "/org-hierarchies", s.app.OrgHierarchies)
	mountScoped(s, r, "/concept-items", s.app.ConceptItems)
	mountScoped(s, r, "/quality-defs", s.app.QualityDefs)
	mountScoped(s, r, "/events", s.app.Events)
	mountScoped(s, r, "/participants", s.app.Participants)
	mountScoped(s, r, "/acquisitions", s.app.Acquisitions)
	mountScoped(s, r, "/beast-types", s.app.BeastTypes)
	mountScoped(s, r, "/beast-pets", s.app.BeastPets)

	r.Get("/locations/{id}/children", listBy(s.app.LocationChildren))
	r.Get("/locations/{id}/ancestors", listBy(s.app.LocationAncestors))
	r.Get("/characters/{id}/relationships", listBy(s.app.CharacterRelationships))
	r.Get("/events/{id}/participants", listBy(s.app.EventParticipants))
	r.Get("/events/{id}/acquisitions", listBy(s.app.EventAcquisitions))
}

func mountScoped[T any](s *Server, r chi.Router, path string, svc *app.Scoped[T]) {
	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		bookID, err := pathID(r, "bookID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		page, err := pageFromQuery(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out, err := svc.List(r.Context(), bookID, page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, out)
	})
	r.Post(path, func(w http.ResponseWriter, r *http.Request) {
		bookID, err := pathID(r, "bookID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in T
		if err := s.decodeBody(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := svc.Create(r.Context(), bookID, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeCreated(w, out)
	})
	r.Get(path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		bookID, id, err := bookAndID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out, err := svc.Get(r.Context(), bookID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, out)
	})
	r.Put(path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		bookID, id, err := bookAndID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in T
		if err := s.decodeBody(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := svc.Update(r.Context(), bookID, id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, out)
	})
	r.Delete(path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		bookID, id, err := bookAndID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.Delete(r.Context(), bookID, id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newSuccess("deleted", nil))
	})
}

// listBy adapts a (book, id) lookup into a GET handler.
func listBy[T any](fn func(ctx context.Context, bookID, id int64) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookID, id, err := bookAndID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out, err := fn(r.Context(), bookID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, out)
	}
}

func bookAndID(r *http.Request) (int64, int64, error) {
	bookID, err := pathID(r, "bookID")
	if err != nil {
		return 0, 0, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	return bookID, id, nil
}
