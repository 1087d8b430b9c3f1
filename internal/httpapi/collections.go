package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fernandezvara/agencykit"
)

// collection describes one REST collection over a record type.
type collection[T any, PT interface {
	*T
	agencykit.Record
}] struct {
	path string
	page agencykit.Page
	kind agencykit.ResourceKind

	// rows picks the collection out of an already scoped dataset.
	rows func(*agencykit.Dataset) []T
}

// mount registers the collection routes. Reads are gated by the page and
// narrowed by row scoping; writes are gated by the kind and then by the
// store's visibility check.
func mount[T any, PT interface {
	*T
	agencykit.Record
}](r chi.Router, h *handler, c collection[T, PT]) {
	r.Route(c.path, func(r chi.Router) {
		r.With(h.mw.RequireView(c.page)).Get("/", c.list(h))
		r.With(h.mw.RequireView(c.page)).Get("/{id}", c.get(h))
		r.With(h.mw.RequireCreate(c.kind)).Post("/", c.create(h))
		r.With(h.mw.RequireUpdate(c.kind)).Put("/{id}", c.update(h))
		r.With(h.mw.RequireDelete(c.kind)).Delete("/{id}", c.remove(h))
	})
}

func (c collection[T, PT]) scoped(h *handler, r *http.Request) ([]T, error) {
	ds, err := h.store.Snapshot(r.Context())
	if err != nil {
		return nil, err
	}
	return c.rows(h.table.ScopeDataset(agencykit.ActorFromContext(r.Context()), ds)), nil
}

func (c collection[T, PT]) list(h *handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := c.scoped(h, r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func (c collection[T, PT]) get(h *handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := c.scoped(h, r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		id := chi.URLParam(r, "id")
		for i := range rows {
			if PT(&rows[i]).GetID() == id {
				writeJSON(w, http.StatusOK, rows[i])
				return
			}
		}
		h.fail(w, r, agencykit.NewError(agencykit.ErrNotFound, string(c.kind)+" "+id).
			WithKind(c.kind).
			WithRecord(id))
	}
}

func (c collection[T, PT]) create(h *handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := PT(new(T))
		if err := decodeJSON(w, r, rec); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Create(r.Context(), rec); err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (c collection[T, PT]) update(h *handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := PT(new(T))
		if err := decodeJSON(w, r, rec); err != nil {
			h.fail(w, r, err)
			return
		}
		rec.SetID(chi.URLParam(r, "id"))
		if err := h.store.Update(r.Context(), rec); err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (c collection[T, PT]) remove(h *handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := PT(new(T))
		rec.SetID(chi.URLParam(r, "id"))
		if err := h.store.Delete(r.Context(), rec); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
