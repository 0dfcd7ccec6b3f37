package mirror

import (
	"context"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/digest"
	"code.deblane.dev/repod/services/blobstore"
)

// Resync implements SPEC_FULL's supplemented resync operation: re-upload
// a distribution's entire published surface from what is currently
// committed in the catalog, without regenerating anything. It exists for
// recovering from a partial or lost mirror without re-running
// publish-begin/publish-commit, which would mint a new Date and
// invalidate the client's existing signature. Every component's
// materialized PackagesIndex and the release's already-signed
// Contents/Clearsigned/Detached are re-uploaded verbatim.
func Resync(ctx context.Context, e *db.Engine, store *blobstore.Store, repo *catalog.Repository, distribution string) error {
	rel, err := catalog.GetDistribution(ctx, e, repo.ID, distribution)
	if err != nil {
		return err
	}
	if rel.Contents == "" || rel.Clearsigned == "" || rel.Detached == "" {
		return apierror.New(apierror.NotFound, "DISTRIBUTION_NOT_PUBLISHED",
			"this distribution has never completed a publish; run publish-begin/publish-commit first")
	}

	components, err := catalog.ListComponents(ctx, e, rel.ID)
	if err != nil {
		return err
	}
	componentByID := make(map[int64]*catalog.Component, len(components))
	for _, comp := range components {
		componentByID[comp.ID] = comp
	}

	indexes, err := catalog.ListPackagesIndexes(ctx, e, rel.ID)
	if err != nil {
		return err
	}

	uploads := make([]packagesUpload, 0, len(indexes))
	for _, idx := range indexes {
		comp := componentByID[idx.ComponentID]
		if comp == nil {
			continue
		}
		uploads = append(uploads, packagesUpload{
			Component:    comp.Name,
			Architecture: idx.Architecture,
			Contents:     []byte(idx.Contents),
			Digest:       digest.Set{MD5: idx.MD5, SHA1: idx.SHA1, SHA256: idx.SHA256, Size: idx.Size},
		})
	}

	dir := distDir(repo.Prefix, distribution)
	return uploadDistribution(ctx, store, dir, uploads, []byte(rel.Contents), []byte(rel.Clearsigned), []byte(rel.Detached))
}
