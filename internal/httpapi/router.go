// Package httpapi exposes the agency data over HTTP behind the access
// middleware: scoped JSON collections, gated writes and the page guard.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/fernandezvara/agencykit"
	"github.com/fernandezvara/agencykit/internal/config"
)

// DefaultRateLimit is the per-client request budget per minute when
// Params.Config is nil. A configured limit of zero disables the limiter.
const DefaultRateLimit = 120

// Params groups dependencies for building the router.
type Params struct {
	Logger  *zap.Logger
	Config  *config.Config
	Store   agencykit.Repository
	Metrics *agencykit.Metrics

	// Issuer verifies bearer tokens. Without it every request is anonymous
	// unless an outer middleware stores an actor in the context.
	Issuer *agencykit.TokenIssuer

	// Gatherer backs /metrics. The endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer

	// Table replaces agencykit.DefaultTable.
	Table *agencykit.Table
}

type handler struct {
	logger  *zap.Logger
	store   agencykit.Repository
	table   *agencykit.Table
	issuer  *agencykit.TokenIssuer
	metrics *agencykit.Metrics
	mw      *agencykit.Middleware
	fail    func(http.ResponseWriter, *http.Request, error)
}

// NewRouter constructs the chi router.
//
// Routes:
//
//	GET  /healthz                 store and transaction health
//	GET  /metrics                 Prometheus exposition
//	GET  /app/{page}              page guard; redirects to /app/dashboard
//	GET  /api/me                  actor, visible pages and grants
//	GET  /api/dashboard           summary over scoped data
//	POST /api/auth/login          username and password for {user, token}
//	GET  /api/audit               access audit log (Admin)
//	PUT  /api/users/{id}/role     role assignment (Admin)
//	GET  /api/{collection}        scoped rows, gated by the page
//	GET  /api/{collection}/{id}   one scoped row
//	POST /api/{collection}        create, gated by the kind
//	PUT  /api/{collection}/{id}   update, gated by kind then row
//	DELETE /api/{collection}/{id} delete, gated by kind then row
func NewRouter(p Params) http.Handler {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	table := p.Table
	if table == nil {
		table = agencykit.DefaultTable
	}
	fail := errorResponder(logger)

	opts := []agencykit.MiddlewareOption{
		agencykit.WithTable(table),
		agencykit.WithErrorHandler(fail),
		agencykit.WithPageURL(func(page agencykit.Page) string { return "/app" + string(page) }),
		agencykit.WithLogger(logger),
		agencykit.WithMetrics(p.Metrics),
	}
	if p.Issuer != nil {
		opts = append(opts, agencykit.WithActorExtractor(agencykit.BearerActor(p.Issuer)))
	}

	h := &handler{
		logger:  logger,
		store:   p.Store,
		table:   table,
		issuer:  p.Issuer,
		metrics: p.Metrics,
		fail:    fail,
		mw:      agencykit.NewMiddleware(opts...),
	}

	r := chi.NewRouter()
	for _, mw := range middlewareStack(p.Config, logger) {
		r.Use(mw)
	}
	r.Use(h.mw.InjectAuditContext(), requestIDToAudit)

	r.Get("/healthz", h.health)
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}
	if p.Issuer != nil {
		r.Post("/api/auth/login", h.login)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.mw.LoadActor())

		r.Get("/app", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/app"+string(agencykit.PageDashboard), http.StatusSeeOther)
		})
		r.With(h.mw.GuardPage(agencykit.PageFromParam("page"))).Get("/app/{page}", h.page)

		r.Route("/api", func(r chi.Router) {
			r.Get("/me", h.me)
			r.With(h.mw.RequireView(agencykit.PageDashboard)).Get("/dashboard", h.dashboard)
			r.Get("/audit", h.audit)
			r.Put("/users/{id}/role", h.assignRole)

			mount(r, h, collection[agencykit.Client, *agencykit.Client]{
				path: "/clients", page: agencykit.PageClients, kind: agencykit.KindClient,
				rows: func(ds *agencykit.Dataset) []agencykit.Client { return ds.Clients },
			})
			mount(r, h, collection[agencykit.Employee, *agencykit.Employee]{
				path: "/employees", page: agencykit.PageEmployees, kind: agencykit.KindEmployee,
				rows: func(ds *agencykit.Dataset) []agencykit.Employee { return ds.Employees },
			})
			mount(r, h, collection[agencykit.Project, *agencykit.Project]{
				path: "/projects", page: agencykit.PageProjects, kind: agencykit.KindProject,
				rows: func(ds *agencykit.Dataset) []agencykit.Project { return ds.Projects },
			})
			mount(r, h, collection[agencykit.Task, *agencykit.Task]{
				path: "/tasks", page: agencykit.PageTasks, kind: agencykit.KindTask,
				rows: func(ds *agencykit.Dataset) []agencykit.Task { return ds.Tasks },
			})
			mount(r, h, collection[agencykit.Invoice, *agencykit.Invoice]{
				path: "/invoices", page: agencykit.PageInvoices, kind: agencykit.KindInvoice,
				rows: func(ds *agencykit.Dataset) []agencykit.Invoice { return ds.Invoices },
			})
			mount(r, h, collection[agencykit.Folder, *agencykit.Folder]{
				path: "/folders", page: agencykit.PageDocuments, kind: agencykit.KindDocument,
				rows: func(ds *agencykit.Dataset) []agencykit.Folder { return ds.Folders },
			})
			mount(r, h, collection[agencykit.Document, *agencykit.Document]{
				path: "/documents", page: agencykit.PageDocuments, kind: agencykit.KindDocument,
				rows: func(ds *agencykit.Dataset) []agencykit.Document { return ds.Documents },
			})
		})
	})

	return r
}

// middlewareStack installs request plumbing ahead of the access checks.
func middlewareStack(cfg *config.Config, logger *zap.Logger) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	limit := DefaultRateLimit
	if cfg != nil {
		limit = cfg.RateLimit
	}

	stack := []func(http.Handler) http.Handler{
		chimw.RequestID,
		chimw.RealIP,
		requestLogger(logger),
		chimw.Recoverer,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", zap.Error(err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	}
	if limit <= 0 {
		return stack
	}
	return append(stack, httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusTooManyRequests, "")
		}),
	))
}

// requestLogger logs one line per request at Info, or Warn for 5xx.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("request", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}

// requestIDToAudit copies chi's generated request ID into the audit
// context when the client sent none.
func requestIDToAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if agencykit.GetRequestID(ctx) == "" {
			if id := chimw.GetReqID(ctx); id != "" {
				r = r.WithContext(agencykit.WithRequestID(ctx, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
