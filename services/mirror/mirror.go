// Package mirror projects committed catalog state onto S3-compatible
// object storage (spec §4.F). Storage is always a projection of the
// catalog, never the other way around, so every mutation here is an
// idempotent re-derivation from data already committed by
// services/publish — safe to run again after a crash or a partial
// upload.
package mirror

import (
	"context"
	"path"
	"strconv"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/digest"
	"code.deblane.dev/repod/modules/setting"
	"code.deblane.dev/repod/services/blobstore"
	"code.deblane.dev/repod/services/index"
	"code.deblane.dev/repod/services/publish"
)

func distDir(prefix, distribution string) string {
	if prefix == "" {
		return path.Join("dists", distribution)
	}
	return path.Join(prefix, "dists", distribution)
}

// packagesUpload is one component/architecture's Packages index content,
// generic enough to serve both a freshly rendered index
// (services/publish.CommitResult) and a persisted one
// (catalog.PackagesIndex, used by Resync).
type packagesUpload struct {
	Component    string
	Architecture string
	Contents     []byte
	Digest       digest.Set
}

// uploadDistribution performs the actual object-storage puts for a
// distribution's Packages indexes plus its Release/InRelease/Release.gpg
// trio (spec §4.F), shared by Sync and Resync.
func uploadDistribution(ctx context.Context, store *blobstore.Store, dir string, uploads []packagesUpload, releaseBody, clearsigned, detached []byte) error {
	for _, u := range uploads {
		archDir := path.Join(dir, u.Component, "binary-"+u.Architecture)
		packagesKey := path.Join(archDir, "Packages")
		if _, err := store.PutBytes(ctx, packagesKey, "text/plain; charset=utf-8", u.Contents); err != nil {
			return err
		}
		for _, byHashKey := range index.ByHashPaths(archDir, u.Digest) {
			if err := store.Copy(ctx, byHashKey, packagesKey); err != nil {
				return err
			}
		}
	}

	if _, err := store.PutBytes(ctx, path.Join(dir, "Release"), "text/plain; charset=utf-8", releaseBody); err != nil {
		return err
	}
	if _, err := store.PutBytes(ctx, path.Join(dir, "InRelease"), "text/plain; charset=utf-8", clearsigned); err != nil {
		return err
	}
	if _, err := store.PutBytes(ctx, path.Join(dir, "Release.gpg"), "application/pgp-signature", detached); err != nil {
		return err
	}
	return nil
}

// Sync uploads a publish-commit's output to object storage: every
// component's Packages index and by-hash siblings, then Release,
// InRelease, and Release.gpg (spec §4.F). It schedules cleanup of any
// by-hash object a new commit superseded.
func Sync(ctx context.Context, e *db.Engine, store *blobstore.Store, cfg setting.Publish, repo *catalog.Repository, cr *publish.CommitResult) error {
	dir := distDir(repo.Prefix, cr.Release.Distribution)

	componentByID := make(map[int64]*catalog.Component, len(cr.Components))
	for _, comp := range cr.Components {
		componentByID[comp.ID] = comp
	}

	archDirByComponentArch := make(map[string]string)
	var uploads []packagesUpload

	for compID, byArch := range cr.Indexes {
		comp := componentByID[compID]
		if comp == nil {
			continue
		}
		for arch, gen := range byArch {
			archDirByComponentArch[componentArchKey(compID, arch)] = path.Join(dir, comp.Name, "binary-"+arch)
			uploads = append(uploads, packagesUpload{
				Component: comp.Name, Architecture: arch, Contents: gen.Contents, Digest: gen.Digest,
			})
		}
	}

	if err := uploadDistribution(ctx, store, dir, uploads, cr.ReleaseBody, []byte(cr.Release.Clearsigned), []byte(cr.Release.Detached)); err != nil {
		return err
	}

	if len(cr.Superseded) == 0 {
		return nil
	}
	return e.Serializable(ctx, func(tx *db.Tx) error {
		for _, sup := range cr.Superseded {
			archDir, ok := archDirByComponentArch[componentArchKey(sup.ComponentID, sup.Architecture)]
			if !ok {
				continue
			}
			if err := catalog.ScheduleByHashCleanup(tx, sup.ComponentID, sup.Architecture, store.Bucket(), archDir,
				sup.MD5, sup.SHA1, sup.SHA256, cfg.ByHashGraceWindow); err != nil {
				return err
			}
		}
		return nil
	})
}

func componentArchKey(componentID int64, architecture string) string {
	return strconv.FormatInt(componentID, 10) + "/" + architecture
}
