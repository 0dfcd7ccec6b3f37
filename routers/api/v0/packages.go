package v0

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/modules/deb"
)

type uploadPackageResponse struct {
	ID           int64  `json:"id"`
	Package      string `json:"package"`
	Version      string `json:"version"`
	Architecture string `json:"architecture"`
	Component    string `json:"component"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
}

// UploadPackage handles
// `POST /api/v0/repositories/{id}/packages?component=NAME` (spec §6,
// §4.A, §4.B, §4.C, §4.H): parses the uploaded .deb's control paragraph,
// uploads its content-addressed blob, then admits it into the catalog.
func (d *Deps) UploadPackage(w http.ResponseWriter, r *http.Request) {
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

	component := r.URL.Query().Get("component")
	if component == "" {
		writeError(w, badRequest("COMPONENT_REQUIRED", "component query parameter is required"))
		return
	}
	distribution := r.URL.Query().Get("distribution")
	if distribution == "" {
		distribution = repo.DefaultDistribution
	}

	r.Body = http.MaxBytesReader(w, r.Body, d.HTTP.MaxUploadBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, badRequest("MULTIPART_INVALID", "request is not a valid multipart upload"))
		return
	}

	var body bytes.Buffer
	var found bool
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, badRequest("MULTIPART_READ_FAILED", "could not read multipart body"))
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		if _, err := io.Copy(&body, part); err != nil {
			part.Close()
			writeError(w, badRequest("MULTIPART_READ_FAILED", "could not read uploaded package"))
			return
		}
		part.Close()
		found = true
		break
	}
	if !found {
		writeError(w, badRequest("FILE_PART_MISSING", `multipart body must include a "file" part`))
		return
	}

	parsed, err := deb.ParsePackage(bytes.NewReader(body.Bytes()))
	if err != nil {
		writeError(w, err)
		return
	}
	key := catalog.PoolFilename(component, parsed.Metadata.Package, parsed.Metadata.Version, parsed.Metadata.Architecture)
	if repo.Prefix != "" {
		key = repo.Prefix + "/" + key
	}
	digests, err := d.Store.Put(r.Context(), key, bytes.NewReader(body.Bytes()), int64(body.Len()), "application/vnd.debian.binary-package")
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := catalog.AdmitPackage(r.Context(), d.Engine, d.Publish, catalog.AdmitPackageParams{
		TenantID: tenant.ID, Repository: repo, Distribution: distribution, Component: component,
		Parsed: parsed, Digests: digests, Bucket: d.Store.Bucket(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadPackageResponse{
		ID: result.Package.ID, Package: result.Package.Name, Version: result.Package.Version,
		Architecture: result.Package.Architecture, Component: component, Deduplicated: result.Deduplicated,
	})
}

// RetirePackage handles
// `DELETE /api/v0/repositories/{id}/packages/{pkgId}` (spec §6).
// The component query parameter identifies which component's placement to
// remove and is required; without it the request fails with 400
// COMPONENT_REQUIRED.
func (d *Deps) RetirePackage(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	repoID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	pkgID, err := idParam(r, "pkgId")
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
	component := r.URL.Query().Get("component")
	if component == "" {
		writeError(w, badRequest("COMPONENT_REQUIRED", "component query parameter is required"))
		return
	}

	link, err := catalog.GetComponentPackage(r.Context(), d.Engine, repoID, distribution, component, pkgID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := catalog.RetirePackage(r.Context(), d.Engine, d.Publish, tenant.ID, link.ComponentID, pkgID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type packageListItemResponse struct {
	ID           int64  `json:"id"`
	Package      string `json:"package"`
	Version      string `json:"version"`
	Architecture string `json:"architecture"`
	Component    string `json:"component"`
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	SHA256       string `json:"sha256"`
}

type packageListResponse struct {
	Packages []packageListItemResponse `json:"packages"`
	Next     int64                     `json:"next,omitempty"`
}

// ListPackages handles `GET /api/v0/repositories/{id}/packages` (spec
// §6, cursor pagination per SPEC_FULL supplemented feature 7).
func (d *Deps) ListPackages(w http.ResponseWriter, r *http.Request) {
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

	var after int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, _ = strconv.ParseInt(raw, 10, 64)
	}
	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	items, err := catalog.ListPackages(r.Context(), d.Engine, catalog.ListPackagesParams{
		TenantID: tenant.ID, RepositoryID: repoID, After: after, Limit: limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := packageListResponse{Packages: make([]packageListItemResponse, 0, len(items))}
	for _, item := range items {
		out.Packages = append(out.Packages, packageListItemResponse{
			ID: item.Package.ID, Package: item.Package.Name, Version: item.Package.Version,
			Architecture: item.Package.Architecture, Component: item.Component,
			Filename: item.Filename, Size: item.Package.Size, SHA256: item.Package.SHA256,
		})
		out.Next = item.Package.ID
	}
	if len(items) == 0 {
		out.Next = 0
	}
	writeJSON(w, http.StatusOK, out)
}
