// Package v0 implements repod's HTTP edges (spec §4.H, §6): thin mapping
// between HTTP requests and the catalog/publish/mirror operations,
// authenticating every request against its owning tenant before any
// catalog action runs (§4.G).
package v0

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/log"
	"code.deblane.dev/repod/services/auth"
	"code.deblane.dev/repod/services/blobstore"
	"code.deblane.dev/repod/modules/setting"
)

// Deps collects the dependencies every handler needs.
type Deps struct {
	Engine  *db.Engine
	Store   *blobstore.Store
	Storage setting.Storage
	Publish setting.Publish
	HTTP    setting.HTTP
}

type tenantKey struct{}

// requireTenant authenticates the request and attaches the resolved
// tenant to its context, per spec §4.G: "Token lookup and tenant
// attribution happen before any catalog action."
func (d *Deps) requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, err := auth.Authenticate(r.Context(), d.Engine, r)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), tenantKey{}, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tenantFrom(r *http.Request) *catalog.Tenant {
	t, _ := r.Context().Value(tenantKey{}).(*catalog.Tenant)
	return t
}

// idParam parses a chi URL parameter as an int64 repository/package id.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apierror.New(apierror.NotFound, "INVALID_ID", "id must be numeric")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.S().Warnw("could not encode response", "err", err)
	}
}

// writeError maps a repod error to its HTTP status per spec §7 and
// writes it as JSON {"code": ..., "message": ...}. Errors outside the
// closed apierror taxonomy are logged and reported as Internal, never
// leaking their text to the client.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apierror.Error)
	if !ok {
		log.S().Errorw("unclassified error reached the HTTP edge", "err", err)
		apiErr = apierror.Wrap(apierror.Internal, "INTERNAL", "internal error", err)
	}
	if apiErr.Kind == apierror.Internal {
		log.S().Errorw("internal error", "code", apiErr.Code, "err", apiErr.Cause)
	}
	writeJSON(w, apiErr.Kind.HTTPStatus(), map[string]string{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	})
}
