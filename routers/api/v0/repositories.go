package v0

import (
	"encoding/json"
	"net/http"

	"code.deblane.dev/repod/models/catalog"
)

type createRepositoryRequest struct {
	Name         string `json:"name"`
	URI          string `json:"uri"`
	Bucket       string `json:"bucket"`
	Distribution string `json:"distribution"`
	Suite        string `json:"suite"`
	Codename     string `json:"codename"`
	Origin       string `json:"origin"`
	Label        string `json:"label"`
}

type repositoryResponse struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	URI                 string `json:"uri"`
	Bucket              string `json:"bucket"`
	DefaultDistribution string `json:"default_distribution"`
	DefaultSuite        string `json:"default_suite"`
	DefaultCodename     string `json:"default_codename"`
	DefaultOrigin       string `json:"default_origin,omitempty"`
	DefaultLabel        string `json:"default_label,omitempty"`
}

func toRepositoryResponse(r *catalog.Repository) repositoryResponse {
	return repositoryResponse{
		ID: r.ID, Name: r.Name, URI: r.URI, Bucket: r.Bucket,
		DefaultDistribution: r.DefaultDistribution, DefaultSuite: r.DefaultSuite,
		DefaultCodename: r.DefaultCodename, DefaultOrigin: r.DefaultOrigin, DefaultLabel: r.DefaultLabel,
	}
}

// CreateRepository handles `POST /api/v0/repositories` (spec §6).
func (d *Deps) CreateRepository(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req createRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("REQUEST_BODY_INVALID", "could not decode request body"))
		return
	}
	if req.Bucket == "" {
		req.Bucket = d.Storage.Bucket
	}

	repo, err := catalog.CreateRepository(r.Context(), d.Engine, catalog.CreateRepositoryParams{
		TenantID: tenant.ID, Name: req.Name, URI: req.URI, Bucket: req.Bucket,
		Distribution: req.Distribution, Suite: req.Suite, Codename: req.Codename,
		Origin: req.Origin, Label: req.Label,
		SingleTenantStorage: d.Storage.SingleTenant,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRepositoryResponse(repo))
}

// ListRepositories handles `GET /api/v0/repositories` (spec §6).
func (d *Deps) ListRepositories(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repos, err := catalog.ListRepositories(r.Context(), d.Engine, tenant.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]repositoryResponse, 0, len(repos))
	for _, repo := range repos {
		out = append(out, toRepositoryResponse(repo))
	}
	writeJSON(w, http.StatusOK, out)
}

type repositoryStatusResponse struct {
	repositoryResponse
	PendingChanges int64 `json:"pending_changes"`
}

// ShowRepository handles `GET /api/v0/repositories/{id}` (spec §6:
// "show status including pending changes", SPEC_FULL supplemented
// feature 1).
func (d *Deps) ShowRepository(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	repo, err := catalog.GetRepositoryByID(r.Context(), d.Engine, tenant.ID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	pending, err := catalog.CountPendingChanges(r.Context(), d.Engine, repo.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repositoryStatusResponse{
		repositoryResponse: toRepositoryResponse(repo),
		PendingChanges:     pending,
	})
}

type updateRepositoryRequest struct {
	URI                 *string `json:"uri"`
	DefaultDistribution *string `json:"default_distribution"`
	DefaultSuite        *string `json:"default_suite"`
	DefaultCodename     *string `json:"default_codename"`
	DefaultOrigin       *string `json:"default_origin"`
	DefaultLabel        *string `json:"default_label"`
}

// UpdateRepository handles `PATCH /api/v0/repositories/{id}` (SPEC_FULL
// supplemented feature 2).
func (d *Deps) UpdateRepository(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("REQUEST_BODY_INVALID", "could not decode request body"))
		return
	}
	repo, err := catalog.UpdateRepository(r.Context(), d.Engine, tenant.ID, id, catalog.UpdateRepositoryParams{
		URI: req.URI, DefaultDistribution: req.DefaultDistribution, DefaultSuite: req.DefaultSuite,
		DefaultCodename: req.DefaultCodename, DefaultOrigin: req.DefaultOrigin, DefaultLabel: req.DefaultLabel,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRepositoryResponse(repo))
}

// DeleteRepository handles `DELETE /api/v0/repositories/{id}`.
func (d *Deps) DeleteRepository(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := catalog.DeleteRepository(r.Context(), d.Engine, tenant.ID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
