package v0

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"code.deblane.dev/repod/models/catalog"
)

type distributionRequest struct {
	Distribution string `json:"distribution"`
	Description  string `json:"description"`
	Origin       string `json:"origin"`
	Label        string `json:"label"`
	Version      string `json:"version"`
	Suite        string `json:"suite"`
	Codename     string `json:"codename"`
}

type distributionResponse struct {
	Distribution string `json:"distribution"`
	Description  string `json:"description,omitempty"`
	Origin       string `json:"origin,omitempty"`
	Label        string `json:"label,omitempty"`
	Version      string `json:"version,omitempty"`
	Suite        string `json:"suite"`
	Codename     string `json:"codename"`
	Published    bool   `json:"published"`
}

func toDistributionResponse(rel *catalog.Release) distributionResponse {
	return distributionResponse{
		Distribution: rel.Distribution, Description: rel.Description, Origin: rel.Origin,
		Label: rel.Label, Version: rel.Version, Suite: rel.Suite, Codename: rel.Codename,
		Published: rel.Contents != "",
	}
}

// CreateDistribution handles
// `POST /api/v0/repositories/{id}/distributions` (SPEC_FULL supplemented
// feature 3).
func (d *Deps) CreateDistribution(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repoID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := catalog.GetRepositoryByID(r.Context(), d.Engine, tenant.ID, repoID); err != nil {
		writeError(w, err)
		return
	}

	var req distributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("REQUEST_BODY_INVALID", "could not decode request body"))
		return
	}
	rel, err := catalog.CreateDistribution(r.Context(), d.Engine, repoID, catalog.DistributionParams{
		Distribution: req.Distribution, Description: req.Description, Origin: req.Origin,
		Label: req.Label, Version: req.Version, Suite: req.Suite, Codename: req.Codename,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDistributionResponse(rel))
}

// ListDistributions handles
// `GET /api/v0/repositories/{id}/distributions`.
func (d *Deps) ListDistributions(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repoID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := catalog.GetRepositoryByID(r.Context(), d.Engine, tenant.ID, repoID); err != nil {
		writeError(w, err)
		return
	}
	rels, err := catalog.ListDistributions(r.Context(), d.Engine, repoID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]distributionResponse, 0, len(rels))
	for _, rel := range rels {
		out = append(out, toDistributionResponse(rel))
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateDistribution handles
// `PATCH /api/v0/repositories/{id}/distributions/{name}`.
func (d *Deps) UpdateDistribution(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repoID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := catalog.GetRepositoryByID(r.Context(), d.Engine, tenant.ID, repoID); err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")

	var req distributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("REQUEST_BODY_INVALID", "could not decode request body"))
		return
	}
	rel, err := catalog.UpdateDistribution(r.Context(), d.Engine, repoID, name, catalog.DistributionParams{
		Description: req.Description, Origin: req.Origin, Label: req.Label,
		Version: req.Version, Suite: req.Suite, Codename: req.Codename,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributionResponse(rel))
}

// DeleteDistribution handles
// `DELETE /api/v0/repositories/{id}/distributions/{name}`.
func (d *Deps) DeleteDistribution(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repoID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := catalog.GetRepositoryByID(r.Context(), d.Engine, tenant.ID, repoID); err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	if err := catalog.DeleteDistribution(r.Context(), d.Engine, repoID, name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerKeyRequest struct {
	Distribution string `json:"distribution"`
	PublicKey    string `json:"public_key"`
}

// RegisterPublicKey handles `POST /api/v0/repositories/{id}/keys`
// (SPEC_FULL supplemented feature 6).
func (d *Deps) RegisterPublicKey(w http.ResponseWriter, r *http.Request) {
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

	var req registerKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("REQUEST_BODY_INVALID", "could not decode request body"))
		return
	}
	if req.Distribution == "" {
		req.Distribution = repo.DefaultDistribution
	}
	if req.PublicKey == "" {
		writeError(w, badRequest("PUBLIC_KEY_REQUIRED", "public_key is required"))
		return
	}
	if err := catalog.RegisterPublicKey(r.Context(), d.Engine, repoID, req.Distribution, req.PublicKey); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
