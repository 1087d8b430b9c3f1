package agencykit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// fixedActor returns an extractor that always yields actor.
func fixedActor(actor *Actor) ActorExtractor {
	return func(*http.Request) (*Actor, error) { return actor, nil }
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

// TestMiddlewareLoadActor tests that the actor and checker reach the handler
func TestMiddlewareLoadActor(t *testing.T) {
	mw := NewMiddleware(WithActorExtractor(fixedActor(john)))

	var seen *Checker
	h := mw.LoadActor()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CheckerFromContext(r.Context())
		assert.Equal(t, john, ActorFromContext(r.Context()))
	}))
	serve(h, http.MethodGet, "/")

	require.NotNil(t, seen)
	assert.True(t, seen.CanViewPage(PageInvoices))
}

// TestMiddlewareLoadActorAnonymous tests that anonymous requests pass through
func TestMiddlewareLoadActorAnonymous(t *testing.T) {
	mw := NewMiddleware(WithActorExtractor(fixedActor(nil)))
	called := false
	h := mw.LoadActor()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Nil(t, ActorFromContext(r.Context()))
	}))
	rec := serve(h, http.MethodGet, "/")
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestMiddlewareLoadActorRejected tests that extractor errors stop the request
func TestMiddlewareLoadActorRejected(t *testing.T) {
	mw := NewMiddleware(WithActorExtractor(func(*http.Request) (*Actor, error) {
		return nil, NewError(ErrInvalidToken, "expired")
	}))
	rec := serve(mw.LoadActor()(http.HandlerFunc(okHandler)), http.MethodGet, "/")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestMiddlewareGuardPage tests navigation redirects
func TestMiddlewareGuardPage(t *testing.T) {
	tests := []struct {
		name     string
		actor    *Actor
		page     string
		status   int
		location string
	}{
		{"employee on tasks", dev, "tasks", http.StatusOK, ""},
		{"employee on invoices", dev, "invoices", http.StatusSeeOther, "/app/dashboard"},
		{"sales on clients", sales, "clients", http.StatusOK, ""},
		{"hr on projects", hr, "projects", http.StatusSeeOther, "/app/dashboard"},
		{"unknown page", admin, "reports", http.StatusSeeOther, "/app/dashboard"},
		{"anonymous", nil, "dashboard", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewMiddleware(
				WithActorExtractor(fixedActor(tt.actor)),
				WithPageURL(func(p Page) string { return "/app" + string(p) }),
			)
			r := chi.NewRouter()
			r.With(mw.GuardPage(PageFromParam("page"))).Get("/app/{page}", okHandler)

			rec := serve(r, http.MethodGet, "/app/"+tt.page)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

// TestMiddlewareRequire tests capability middleware answers
func TestMiddlewareRequire(t *testing.T) {
	tests := []struct {
		name   string
		actor  *Actor
		mw     func(*Middleware) func(http.Handler) http.Handler
		status int
	}{
		{"sales views invoices", sales, func(m *Middleware) func(http.Handler) http.Handler { return m.RequireView(PageInvoices) }, http.StatusForbidden},
		{"client views invoices", john, func(m *Middleware) func(http.Handler) http.Handler { return m.RequireView(PageInvoices) }, http.StatusOK},
		{"sales creates client", sales, func(m *Middleware) func(http.Handler) http.Handler { return m.RequireCreate(KindClient) }, http.StatusOK},
		{"sales deletes client", sales, func(m *Middleware) func(http.Handler) http.Handler { return m.RequireDelete(KindClient) }, http.StatusForbidden},
		{"employee updates task", dev, func(m *Middleware) func(http.Handler) http.Handler { return m.RequireUpdate(KindTask) }, http.StatusOK},
		{"hr deletes employee", hr, func(m *Middleware) func(http.Handler) http.Handler { return m.RequirePermission("employee.delete") }, http.StatusOK},
		{"anonymous", nil, func(m *Middleware) func(http.Handler) http.Handler { return m.RequireView(PageDashboard) }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewMiddleware(WithActorExtractor(fixedActor(tt.actor)))
			rec := serve(tt.mw(mw)(http.HandlerFunc(okHandler)), http.MethodGet, "/")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

// TestMiddlewareRequirePermissionPanics tests that a malformed permission fails at setup
func TestMiddlewareRequirePermissionPanics(t *testing.T) {
	mw := NewMiddleware()
	assert.Panics(t, func() { mw.RequirePermission("employee") })
}

// TestMiddlewareCustomTable tests that WithTable replaces the default
func TestMiddlewareCustomTable(t *testing.T) {
	locked, err := NewTableBuilder().
		Role(RoleAdmin).Role(RoleHR).Role(RoleSales).Role(RoleEmployee).Role(RoleClient).
		Build()
	require.NoError(t, err)

	mw := NewMiddleware(WithTable(locked), WithActorExtractor(fixedActor(admin)))
	rec := serve(mw.RequireView(PageDashboard)(http.HandlerFunc(okHandler)), http.MethodGet, "/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// TestMiddlewareErrorHandler tests a custom error handler
func TestMiddlewareErrorHandler(t *testing.T) {
	var got error
	mw := NewMiddleware(
		WithActorExtractor(fixedActor(sales)),
		WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		}),
	)
	rec := serve(mw.RequireDelete(KindClient)(http.HandlerFunc(okHandler)), http.MethodDelete, "/")
	assert.Equal(t, http.StatusTeapot, rec.Code)

	var e *Error
	require.True(t, errors.As(got, &e))
	assert.Equal(t, ActionDelete, e.Action)
	assert.Equal(t, KindClient, e.Kind)
	assert.Equal(t, RoleSales, e.Role)
}

// TestMiddlewareMetrics tests that guard decisions are counted
func TestMiddlewareMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	mw := NewMiddleware(WithActorExtractor(fixedActor(sales)), WithMetrics(metrics))

	h := mw.RequireView(PageInvoices)(http.HandlerFunc(okHandler))
	serve(h, http.MethodGet, "/")
	serve(h, http.MethodGet, "/")
	serve(mw.RequireCreate(KindClient)(http.HandlerFunc(okHandler)), http.MethodPost, "/")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("invoices.view", "denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("client.create", "allowed")))
}

// TestMiddlewareInjectAuditContext tests audit metadata extraction
func TestMiddlewareInjectAuditContext(t *testing.T) {
	mw := NewMiddleware()
	var ac AuditContext
	h := mw.InjectAuditContext()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac = GetAuditContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Set("User-Agent", "agency-ui")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.7", ac.IPAddress)
	assert.Equal(t, "req-42", ac.RequestID)
	assert.Equal(t, "agency-ui", ac.UserAgent)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, req.RemoteAddr, ac.IPAddress)
	assert.Empty(t, ac.RequestID)
}

// TestMiddlewareBearerActor tests the full token path
func TestMiddlewareBearerActor(t *testing.T) {
	issuer := NewTokenIssuer("middleware-secret-0123", time.Hour)
	mw := NewMiddleware(WithActorExtractor(BearerActor(issuer)))
	h := mw.LoadActor()(mw.RequireView(PageTasks)(http.HandlerFunc(okHandler)))

	token, err := issuer.Issue(dev)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestStaticPage tests the fixed page extractor
func TestStaticPage(t *testing.T) {
	assert.Equal(t, PageTasks, StaticPage(PageTasks)(httptest.NewRequest(http.MethodGet, "/", nil)))
}
