package v0

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"code.deblane.dev/repod/modules/log"
	"code.deblane.dev/repod/modules/metrics"
)

// NewRouter builds repod's HTTP edge (spec §4.H): request id, panic
// recovery, CORS, structured access logging, then the tenant-scoped
// API surface of spec §6 plus SPEC_FULL's supplemented endpoints.
func NewRouter(d *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.HTTP.WriteTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(accessLog)

	r.Get("/health", d.Health)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/api/v0", func(api chi.Router) {
		api.Use(d.requireTenant)

		api.Route("/repositories", func(repos chi.Router) {
			repos.Post("/", d.CreateRepository)
			repos.Get("/", d.ListRepositories)

			repos.Route("/{id}", func(repo chi.Router) {
				repo.Get("/", d.ShowRepository)
				repo.Patch("/", d.UpdateRepository)
				repo.Delete("/", d.DeleteRepository)

				repo.Post("/packages", d.UploadPackage)
				repo.Get("/packages", d.ListPackages)
				repo.Delete("/packages/{pkgId}", d.RetirePackage)

				repo.Get("/indexes", d.Indexes)
				repo.Post("/sync", d.Sync)
				repo.Post("/resync", d.Resync)

				repo.Post("/keys", d.RegisterPublicKey)

				repo.Route("/distributions", func(dist chi.Router) {
					dist.Post("/", d.CreateDistribution)
					dist.Get("/", d.ListDistributions)
					dist.Patch("/{name}", d.UpdateDistribution)
					dist.Delete("/{name}", d.DeleteDistribution)
				})
			})
		})
	})

	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.S().Infow("request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"bytes", ww.BytesWritten(), "duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()),
		)
	})
}
