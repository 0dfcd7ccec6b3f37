package v0

import (
	"encoding/json"
	"net/http"

	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/metrics"
	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/services/mirror"
	"code.deblane.dev/repod/services/publish"
)

type indexesResponse struct {
	Release     string `json:"release"`
	Fingerprint string `json:"fingerprint"`
}

// Indexes handles `GET /api/v0/repositories/{id}/indexes` (spec §6):
// publish-begin.
func (d *Deps) Indexes(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repoID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	repo, err := catalog.GetRepositoryByID(r.Context(), d.Engine, tenant.ID, repoID)
	if err != nil {
		writeError(w, err)
		return
	}
	distribution := r.URL.Query().Get("distribution")
	if distribution == "" {
		distribution = repo.DefaultDistribution
	}

	result, err := publish.Begin(r.Context(), d.Engine, d.Publish, repo.ID, distribution)
	if err != nil {
		metrics.PublishAttemptsTotal.WithLabelValues("begin", outcomeOf(err)).Inc()
		writeError(w, err)
		return
	}
	metrics.PublishAttemptsTotal.WithLabelValues("begin", "ok").Inc()
	writeJSON(w, http.StatusOK, indexesResponse{Release: result.Release, Fingerprint: result.Fingerprint})
}

type syncRequest struct {
	Clearsigned string `json:"clearsigned"`
	Detached    string `json:"detached"`
	Fingerprint string `json:"fingerprint"`
}

// Sync handles `POST /api/v0/repositories/{id}/sync` (spec §6):
// publish-commit, then advances the object-storage mirror (§4.F).
func (d *Deps) Sync(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repoID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	repo, err := catalog.GetRepositoryByID(r.Context(), d.Engine, tenant.ID, repoID)
	if err != nil {
		writeError(w, err)
		return
	}
	distribution := r.URL.Query().Get("distribution")
	if distribution == "" {
		distribution = repo.DefaultDistribution
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("REQUEST_BODY_INVALID", "could not decode request body"))
		return
	}

	result, err := publish.Commit(r.Context(), d.Engine, d.Publish, publish.CommitParams{
		RepositoryID: repo.ID, Distribution: distribution,
		Clearsigned: req.Clearsigned, Detached: req.Detached, Fingerprint: req.Fingerprint,
	})
	if err != nil {
		metrics.PublishAttemptsTotal.WithLabelValues("commit", outcomeOf(err)).Inc()
		writeError(w, err)
		return
	}
	metrics.PublishAttemptsTotal.WithLabelValues("commit", "ok").Inc()
	for _, byArch := range result.Indexes {
		for _, gen := range byArch {
			metrics.IndexBytes.WithLabelValues("packages").Observe(float64(len(gen.Contents)))
		}
	}
	metrics.IndexBytes.WithLabelValues("release").Observe(float64(len(result.ReleaseBody)))

	if err := mirror.Sync(r.Context(), d.Engine, d.Store, d.Publish, repo, result); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resync handles `POST /api/v0/repositories/{id}/resync` (SPEC_FULL
// supplemented feature 4).
func (d *Deps) Resync(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repoID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	repo, err := catalog.GetRepositoryByID(r.Context(), d.Engine, tenant.ID, repoID)
	if err != nil {
		writeError(w, err)
		return
	}
	distribution := r.URL.Query().Get("distribution")
	if distribution == "" {
		distribution = repo.DefaultDistribution
	}
	if err := mirror.Resync(r.Context(), d.Engine, d.Store, repo, distribution); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func outcomeOf(err error) string {
	if apierror.Is(err, apierror.PublishStale) {
		return "stale"
	}
	if apierror.Is(err, apierror.SignatureInvalid) {
		return "signature_invalid"
	}
	if apierror.Is(err, apierror.CatalogConflict) {
		return "conflict"
	}
	return "error"
}
