package agencykit

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ActorExtractor resolves the acting user for a request. Returning
// (nil, nil) means the request is anonymous.
type ActorExtractor func(*http.Request) (*Actor, error)

// PageExtractor maps a request to the page it navigates to.
type PageExtractor func(*http.Request) Page

// Middleware provides HTTP middleware for page and capability checks.
type Middleware struct {
	table        *Table
	getActor     ActorExtractor
	errorHandler func(http.ResponseWriter, *http.Request, error)
	pageURL      func(Page) string
	logger       *zap.Logger
	metrics      *Metrics
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := agencykit.NewMiddleware(
//	    agencykit.WithActorExtractor(agencykit.BearerActor(issuer)),
//	    agencykit.WithLogger(logger),
//	)
//	r.Use(mw.InjectAuditContext(), mw.LoadActor())
func NewMiddleware(opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		table:        DefaultTable,
		getActor:     defaultGetActor,
		errorHandler: defaultErrorHandler,
		pageURL:      func(p Page) string { return string(p) },
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithActorExtractor sets how the actor is resolved from a request.
func WithActorExtractor(fn ActorExtractor) MiddlewareOption {
	return func(m *Middleware) {
		m.getActor = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

// WithTable replaces DefaultTable.
func WithTable(t *Table) MiddlewareOption {
	return func(m *Middleware) {
		m.table = t
	}
}

// WithPageURL sets how a page becomes a redirect location, for apps that
// mount pages under a prefix.
func WithPageURL(fn func(Page) string) MiddlewareOption {
	return func(m *Middleware) {
		m.pageURL = fn
	}
}

// WithLogger sets the logger for denials.
func WithLogger(l *zap.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.logger = l
	}
}

// WithMetrics counts guard decisions.
func WithMetrics(metrics *Metrics) MiddlewareOption {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func defaultGetActor(r *http.Request) (*Actor, error) {
	return ActorFromContext(r.Context()), nil
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	http.Error(w, http.StatusText(status), status)
}

// StatusCode maps an error to the HTTP status the middleware uses for it.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoActor), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidRecord(err),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrInvalidResource),
		errors.Is(err, ErrInvalidPage),
		errors.Is(err, ErrInvalidPermission):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// PageFromParam creates a PageExtractor that reads the page name from a
// URL parameter, so "/app/{page}" with "clients" yields PageClients.
func PageFromParam(paramName string) PageExtractor {
	return func(r *http.Request) Page {
		name := chi.URLParam(r, paramName)
		if name == "" {
			name = r.PathValue(paramName)
		}
		return Page("/" + name)
	}
}

// StaticPage creates a PageExtractor that always returns the same page.
func StaticPage(page Page) PageExtractor {
	return func(*http.Request) Page {
		return page
	}
}

// LoadActor creates middleware that resolves the actor and stores it, with
// a Checker, in the request context. Anonymous requests pass through
// without an actor; an invalid token is rejected.
//
// Example:
//
//	r.Use(mw.LoadActor())
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    checker := agencykit.CheckerFromContext(r.Context())
//	    if checker.CanCreate(agencykit.KindClient) {
//	        // show "New client"
//	    }
//	}
func (m *Middleware) LoadActor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := m.getActor(r)
			if err != nil {
				m.logger.Debug("actor rejected", zap.Error(err))
				m.errorHandler(w, r, err)
				return
			}
			if actor == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithActor(r.Context(), actor)
			ctx = WithChecker(ctx, NewChecker(actor, m.table))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GuardPage creates the navigation guard. A request for a page the actor
// may not view is redirected to the dashboard before the page handler runs.
// Anonymous requests are refused with ErrNoActor since even the dashboard
// needs an actor.
//
// Example:
//
//	r.With(mw.GuardPage(agencykit.PageFromParam("page"))).Get("/app/{page}", pageHandler)
func (m *Middleware) GuardPage(pageOf PageExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := m.actor(w, r)
			if !ok {
				return
			}
			page := pageOf(r)
			allowed := m.table.CanViewPage(actor, page)
			m.decide(actor, ViewPermission(page).String(), allowed)
			if !allowed {
				http.Redirect(w, r, m.pageURL(PageDashboard), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireView creates middleware for API endpoints backing a page. Unlike
// GuardPage it answers 403 rather than redirecting.
//
// Example:
//
//	r.With(mw.RequireView(agencykit.PageInvoices)).Get("/api/invoices", listInvoices)
func (m *Middleware) RequireView(page Page) func(http.Handler) http.Handler {
	return m.require(ViewPermission(page))
}

// RequireCreate creates middleware that requires the create capability.
func (m *Middleware) RequireCreate(kind ResourceKind) func(http.Handler) http.Handler {
	return m.require(KindPermission(ActionCreate, kind))
}

// RequireUpdate creates middleware that requires the update capability.
// Row visibility is still checked by the store.
func (m *Middleware) RequireUpdate(kind ResourceKind) func(http.Handler) http.Handler {
	return m.require(KindPermission(ActionUpdate, kind))
}

// RequireDelete creates middleware that requires the delete capability.
func (m *Middleware) RequireDelete(kind ResourceKind) func(http.Handler) http.Handler {
	return m.require(KindPermission(ActionDelete, kind))
}

// RequirePermission creates middleware from a dotted permission such as
// "task.update" or "invoices.view". It panics on a malformed permission.
//
// Example:
//
//	r.With(mw.RequirePermission("employee.delete")).Delete("/api/employees/{id}", h)
func (m *Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return m.require(MustParsePermission(permission))
}

func (m *Middleware) require(perm Permission) func(http.Handler) http.Handler {
	check := perm.String()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := m.actor(w, r)
			if !ok {
				return
			}
			allowed := m.table.Allows(actor.Role, perm)
			m.decide(actor, check, allowed)
			if !allowed {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing permission "+check).
					WithActor(actor).
					WithAction(perm.Action).
					WithKind(perm.Kind))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// actor returns the request's actor or writes ErrNoActor.
func (m *Middleware) actor(w http.ResponseWriter, r *http.Request) (*Actor, bool) {
	actor := ActorFromContext(r.Context())
	if actor == nil {
		var err error
		actor, err = m.getActor(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return nil, false
		}
	}
	if actor == nil {
		m.errorHandler(w, r, ErrNoActor)
		return nil, false
	}
	return actor, true
}

func (m *Middleware) decide(actor *Actor, check string, allowed bool) {
	m.metrics.ObserveDecision(check, allowed)
	if !allowed {
		m.logger.Debug("access denied",
			zap.String("user_id", actor.UserID),
			zap.String("role", string(actor.Role)),
			zap.String("check", check))
	}
}

// InjectAuditContext creates middleware that extracts audit information
// from the request and adds it to the context for the store's audit log.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
