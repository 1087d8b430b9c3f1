package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fernandezvara/agencykit"
)

type pageInfo struct {
	Path string `json:"path"`
	View string `json:"view"`
}

type meResponse struct {
	Actor  *agencykit.Actor `json:"actor"`
	Pages  []pageInfo       `json:"pages"`
	Grants []string         `json:"grants"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || !h.store.IsHealthy(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	if !h.metrics.TransactionsHealthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// page answers navigation that passed GuardPage.
func (h *handler) page(w http.ResponseWriter, r *http.Request) {
	page := agencykit.PageFromParam("page")(r)
	writeJSON(w, http.StatusOK, pageInfo{Path: string(page), View: page.View()})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	checker := agencykit.CheckerFromContext(r.Context())
	if checker == nil {
		h.fail(w, r, agencykit.ErrNoActor)
		return
	}
	pages := []pageInfo{}
	for _, p := range checker.VisiblePages() {
		pages = append(pages, pageInfo{Path: string(p), View: p.View()})
	}
	writeJSON(w, http.StatusOK, meResponse{
		Actor:  checker.Actor(),
		Pages:  pages,
		Grants: checker.Grants(),
	})
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.table.Summarize(agencykit.ActorFromContext(r.Context()), ds))
}

// audit lists the access audit log. It is restricted to Admin and only
// available when the store keeps one.
func (h *handler) audit(w http.ResponseWriter, r *http.Request) {
	actor := agencykit.ActorFromContext(r.Context())
	if actor == nil {
		h.fail(w, r, agencykit.ErrNoActor)
		return
	}
	if actor.Role != agencykit.RoleAdmin {
		h.fail(w, r, agencykit.NewError(agencykit.ErrUnauthorized, "audit log is restricted to Admin").WithActor(actor))
		return
	}
	reader, ok := h.store.(agencykit.AuditReader)
	if !ok {
		writeProblem(w, http.StatusNotImplemented, "store keeps no audit log")
		return
	}

	filter, err := auditFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := reader.GetAuditLog(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type roleRequest struct {
	Role     agencykit.Role `json:"role"`
	EntityID string         `json:"entityId"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *agencykit.User `json:"user"`
	Token string          `json:"token"`
}

// login exchanges a username and password for a bearer token.
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := agencykit.Authenticate(r.Context(), h.store, req.Username, req.Password)
	if err != nil {
		if agencykit.IsUnauthorized(err) {
			h.logger.Info("login failed", zap.String("username", req.Username))
		}
		h.fail(w, r, err)
		return
	}
	token, err := h.issuer.Issue(user.Actor())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("login",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	writeJSON(w, http.StatusOK, loginResponse{User: user, Token: token})
}

// assignRole changes a login's role. The store enforces the Admin-only rule.
func (h *handler) assignRole(w http.ResponseWriter, r *http.Request) {
	assigner, ok := h.store.(agencykit.RoleAssigner)
	if !ok {
		writeProblem(w, http.StatusNotImplemented, "store does not manage roles")
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := assigner.AssignRole(r.Context(), chi.URLParam(r, "id"), req.Role, req.EntityID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Actor())
}

func auditFilter(r *http.Request) (agencykit.AuditLogFilter, error) {
	q := r.URL.Query()
	filter := agencykit.NewAuditLogFilter()

	if v := q.Get("actor"); v != "" {
		filter = filter.WithActor(v)
	}
	if v := q.Get("role"); v != "" {
		role, err := agencykit.ParseRole(v)
		if err != nil {
			return filter, err
		}
		filter = filter.WithRole(role)
	}
	if v := q.Get("kind"); v != "" {
		kind, err := agencykit.ParseResourceKind(v)
		if err != nil {
			return filter, err
		}
		filter = filter.WithKind(kind)
	}
	if v := q.Get("action"); v != "" {
		action := agencykit.Action(v)
		if !action.IsValid() {
			return filter, agencykit.NewError(agencykit.ErrInvalidPermission, "unknown action "+strconv.Quote(v))
		}
		filter = filter.WithAction(action)
	}
	if v := q.Get("outcome"); v != "" {
		outcome := agencykit.AuditOutcome(v)
		if !outcome.IsValid() {
			return filter, agencykit.NewError(agencykit.ErrInvalidPermission, "unknown outcome "+strconv.Quote(v))
		}
		filter = filter.WithOutcome(outcome)
	}

	limit, offset := filter.Limit, 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, agencykit.NewError(agencykit.ErrInvalidRecord, "limit must be a positive integer")
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, agencykit.NewError(agencykit.ErrInvalidRecord, "offset must be a non-negative integer")
		}
		offset = n
	}
	return filter.WithPagination(limit, offset), nil
}
