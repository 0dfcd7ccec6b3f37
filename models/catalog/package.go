package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"xorm.io/builder"

	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/deb"
	"code.deblane.dev/repod/modules/digest"
	"code.deblane.dev/repod/modules/retry"
	"code.deblane.dev/repod/modules/setting"
)

// PublishedPackage pairs a Package with the pool-style Filename it has
// within one Component (spec §3: ComponentPackage), the shape the index
// generator (§4.D) consumes.
type PublishedPackage struct {
	Package  Package
	Filename string
}

// PoolFilename returns the pool-style path spec §4.B specifies:
// "pool/<component>/<first-letter>/<package-name>/<filename>".
func PoolFilename(component, name, version, architecture string) string {
	if name == "" {
		name = "_"
	}
	first := name[:1]
	filename := fmt.Sprintf("%s_%s_%s.deb", name, version, architecture)
	return path.Join("pool", component, first, name, filename)
}

// AdmitPackageParams collects the inputs to admit-package (§4.C).
type AdmitPackageParams struct {
	TenantID     int64
	Repository   *Repository
	Distribution string
	Component    string

	Parsed  *deb.ParsedPackage
	Digests digest.Set
	Bucket  string
}

// AdmitResult reports what admit-package did, for the HTTP response
// (§6: "Returns {id, package, version, architecture, component}").
type AdmitResult struct {
	Package          *Package
	ComponentPackage *ComponentPackage
	Deduplicated     bool
}

// AdmitPackage implements spec §4.C's admit-package operation: insert the
// Package row if absent (deduplicating by (tenant, sha256)), then insert
// the ComponentPackage row, idempotent on (component, package). Runs in a
// serializable transaction because it competes with publish's snapshot
// read (§4.C, invariant 2 of §4.E). A CatalogConflict from a losing
// serialization is retried internally per spec §7's propagation policy,
// up to cfg.SerializableRetryLimit attempts, before it propagates.
func AdmitPackage(ctx context.Context, e *db.Engine, cfg setting.Publish, p AdmitPackageParams) (*AdmitResult, error) {
	var result AdmitResult

	err := retry.Do(ctx, retry.Default(cfg.SerializableRetryLimit), func(attempt int) error {
		return e.Serializable(ctx, func(tx *db.Tx) error {
			meta := p.Parsed.Metadata

			var existing Package
			has, err := tx.Where("tenant_id = ? AND sha256 = ?", p.TenantID, p.Digests.SHA256).Get(&existing)
			if err != nil {
				return apierror.Wrap(apierror.Internal, "PACKAGE_QUERY_FAILED", "could not query package by sha256", err)
			}

			var pkg *Package
			if has {
				pkg = &existing
				result.Deduplicated = true
			} else {
				paragraphJSON, err := json.Marshal(p.Parsed.Paragraph.Fields)
				if err != nil {
					return apierror.Wrap(apierror.Internal, "PARAGRAPH_MARSHAL_FAILED", "could not marshal control paragraph", err)
				}
				pkg = &Package{
					TenantID:      p.TenantID,
					Name:          meta.Package,
					Version:       meta.Version,
					Architecture:  meta.Architecture,
					Paragraph:     string(paragraphJSON),
					Maintainer:    meta.Maintainer,
					Description:   meta.Description,
					Priority:      meta.Priority,
					Section:       meta.Section,
					InstalledSize: meta.InstalledSize,
					Homepage:      meta.Homepage,
					Depends:       meta.Depends,
					Recommends:    meta.Recommends,
					Conflicts:     meta.Conflicts,
					Provides:      meta.Provides,
					Replaces:      meta.Replaces,
					Size:          p.Digests.Size,
					MD5:           p.Digests.MD5,
					SHA1:          p.Digests.SHA1,
					SHA256:        p.Digests.SHA256,
					Bucket:        p.Bucket,
				}
				// (tenant, package_name, version, architecture) is also
				// unique per spec §3; a conflict there with a *different*
				// sha256 is a genuine content collision under the same
				// coordinates and is rejected rather than silently
				// overwritten.
				var collision Package
				hasCollision, err := tx.Where("tenant_id = ? AND name = ? AND version = ? AND architecture = ?",
					p.TenantID, meta.Package, meta.Version, meta.Architecture).Get(&collision)
				if err != nil {
					return apierror.Wrap(apierror.Internal, "PACKAGE_QUERY_FAILED", "could not query package by name/version/arch", err)
				}
				if hasCollision {
					return apierror.New(apierror.Conflict, "PACKAGE_VERSION_COLLISION",
						fmt.Sprintf("package %s %s %s already exists with different content", meta.Package, meta.Version, meta.Architecture))
				}
				if _, err := tx.Insert(pkg); err != nil {
					return apierror.Wrap(apierror.Internal, "PACKAGE_INSERT_FAILED", "could not insert package", err)
				}
			}

			rel, err := GetOrCreateDistribution(ctx, tx, p.Repository, p.Distribution)
			if err != nil {
				return err
			}
			comp, err := GetOrCreateComponent(tx, rel.ID, p.Component)
			if err != nil {
				return err
			}

			filename := PoolFilename(p.Component, pkg.Name, pkg.Version, pkg.Architecture)

			var link ComponentPackage
			has, err = tx.Where("component_id = ? AND package_id = ?", comp.ID, pkg.ID).Get(&link)
			if err != nil {
				return apierror.Wrap(apierror.Internal, "COMPONENT_PACKAGE_QUERY_FAILED", "could not query component-package link", err)
			}
			if has {
				result.Package = pkg
				result.ComponentPackage = &link
				return nil
			}

			link = ComponentPackage{ComponentID: comp.ID, PackageID: pkg.ID, Filename: filename}
			if _, err := tx.Insert(&link); err != nil {
				return apierror.Wrap(apierror.Internal, "COMPONENT_PACKAGE_INSERT_FAILED", "could not link package to component", err)
			}

			result.Package = pkg
			result.ComponentPackage = &link
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RetirePackage implements spec §4.C's retire-package operation: delete
// the ComponentPackage row (removing the package from that component's
// published set) and, if the package is no longer linked to any
// component for this tenant, mark it removed_at. A CatalogConflict from a
// losing serialization is retried internally per spec §7's propagation
// policy, up to cfg.SerializableRetryLimit attempts, before it propagates.
func RetirePackage(ctx context.Context, e *db.Engine, cfg setting.Publish, tenantID, componentID, packageID int64) error {
	return retry.Do(ctx, retry.Default(cfg.SerializableRetryLimit), func(attempt int) error {
		return e.Serializable(ctx, func(tx *db.Tx) error {
			var pkg Package
			has, err := tx.Where("tenant_id = ? AND id = ?", tenantID, packageID).Get(&pkg)
			if err != nil {
				return apierror.Wrap(apierror.Internal, "PACKAGE_QUERY_FAILED", "could not query package", err)
			}
			if !has {
				return apierror.New(apierror.NotFound, "PACKAGE_NOT_FOUND", "package not found")
			}

			if _, err := tx.Where("component_id = ? AND package_id = ?", componentID, packageID).Delete(new(ComponentPackage)); err != nil {
				return apierror.Wrap(apierror.Internal, "COMPONENT_PACKAGE_DELETE_FAILED", "could not remove package from component", err)
			}

			remaining, err := tx.Where("package_id = ?", packageID).Count(new(ComponentPackage))
			if err != nil {
				return apierror.Wrap(apierror.Internal, "COMPONENT_PACKAGE_COUNT_FAILED", "could not count remaining component links", err)
			}
			if remaining == 0 {
				if _, err := tx.ID(pkg.ID).Cols("removed_at").Update(&Package{RemovedAt: nowPtr()}); err != nil {
					return apierror.Wrap(apierror.Internal, "PACKAGE_UPDATE_FAILED", "could not mark package removed", err)
				}
			}
			return nil
		})
	})
}

// SnapshotArchitecture implements the read half of spec §4.C's
// snapshot-for-publish operation for a single (component, architecture):
// the full list of packages currently linked to that component at that
// architecture, read under the same serializable transaction the caller
// is about to generate an index from.
func SnapshotArchitecture(tx *db.Tx, componentID int64, architecture string) ([]PublishedPackage, error) {
	type row struct {
		Package  `xorm:"extends"`
		Filename string
	}
	var rows []row
	err := tx.Table("package").
		Join("INNER", "component_package", "component_package.package_id = package.id").
		Where("component_package.component_id = ? AND package.architecture = ? AND package.removed_at IS NULL", componentID, architecture).
		Cols("package.*", "component_package.filename").
		Find(&rows)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "SNAPSHOT_QUERY_FAILED", "could not snapshot packages", err)
	}

	out := make([]PublishedPackage, 0, len(rows))
	for _, r := range rows {
		out = append(out, PublishedPackage{Package: r.Package, Filename: r.Filename})
	}
	return out, nil
}

// GetPackagesIndexTx looks up the current materialized index for a
// (component, architecture), returning has=false if none exists yet.
// services/publish uses this to capture the pre-commit digests a by-hash
// cleanup sweep will need once they're superseded.
func GetPackagesIndexTx(tx *db.Tx, componentID int64, architecture string) (row PackagesIndex, has bool, err error) {
	has, err = tx.Where("component_id = ? AND architecture = ?", componentID, architecture).Get(&row)
	if err != nil {
		return PackagesIndex{}, false, apierror.Wrap(apierror.Internal, "INDEX_QUERY_FAILED", "could not query packages index", err)
	}
	return row, has, nil
}

// UpsertPackagesIndex stores or updates the materialized Packages index
// for one (component, architecture), the durable counterpart of a
// services/index.GeneratedIndex once a publish has committed (§4.D.6).
func UpsertPackagesIndex(tx *db.Tx, componentID int64, architecture, contents string, size int64, md5, sha1, sha256 string) (*PackagesIndex, error) {
	var existing PackagesIndex
	has, err := tx.Where("component_id = ? AND architecture = ?", componentID, architecture).Get(&existing)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "INDEX_QUERY_FAILED", "could not query packages index", err)
	}
	if has {
		existing.Contents, existing.Size, existing.MD5, existing.SHA1, existing.SHA256 = contents, size, md5, sha1, sha256
		if _, err := tx.ID(existing.ID).Cols("contents", "size", "md5", "sha1", "sha256").Update(&existing); err != nil {
			return nil, apierror.Wrap(apierror.Internal, "INDEX_UPDATE_FAILED", "could not update packages index", err)
		}
		return &existing, nil
	}
	row := &PackagesIndex{
		ComponentID: componentID, Architecture: architecture, Compression: CompressionNone,
		Contents: contents, Size: size, MD5: md5, SHA1: sha1, SHA256: sha256,
	}
	if _, err := tx.Insert(row); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "INDEX_INSERT_FAILED", "could not insert packages index", err)
	}
	return row, nil
}

// ListPackagesIndexes returns every materialized Packages index belonging
// to a release, across all of its components, for resync (SPEC_FULL
// supplemented feature 4) to re-upload without regenerating anything.
func ListPackagesIndexes(ctx context.Context, e *db.Engine, releaseID int64) ([]*PackagesIndex, error) {
	var rows []*PackagesIndex
	err := e.Context(ctx).Table("packages_index").
		Join("INNER", "component", "component.id = packages_index.component_id").
		Where("component.release_id = ?", releaseID).
		Find(&rows)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "INDEX_LIST_FAILED", "could not list packages indexes", err)
	}
	return rows, nil
}

// ListArchitecturesForComponent returns the distinct architectures
// currently present in a component, used to decide which per-architecture
// Packages indexes a release needs (§4.D: "A component with zero
// architectures: no binary-* directories emitted").
func ListArchitecturesForComponent(tx *db.Tx, componentID int64) ([]string, error) {
	var archs []string
	err := tx.Table("package").
		Join("INNER", "component_package", "component_package.package_id = package.id").
		Where("component_package.component_id = ? AND package.removed_at IS NULL", componentID).
		Distinct("package.architecture").
		Find(&archs)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "ARCHITECTURE_QUERY_FAILED", "could not list architectures", err)
	}
	return archs, nil
}

// ListPackagesParams is a cursor-paginated listing query (SPEC_FULL
// supplemented feature 7).
type ListPackagesParams struct {
	TenantID     int64
	RepositoryID int64
	After        int64
	Limit        int
}

// PackageListItem is one row of a package listing, joined against its
// component placement.
type PackageListItem struct {
	Package   Package
	Component string
	Filename  string
}

// ListPackages lists a tenant's packages within a repository, across all
// of its releases and components, ordered by id for stable cursor
// pagination.
func ListPackages(ctx context.Context, e *db.Engine, p ListPackagesParams) ([]PackageListItem, error) {
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = 100
	}

	type row struct {
		Package       `xorm:"extends"`
		ComponentName string
		Filename      string
	}
	var rows []row
	cond := builder.NewCond().And(
		builder.Eq{"package.tenant_id": p.TenantID},
		builder.Eq{"release.repository_id": p.RepositoryID},
	)
	if p.After > 0 {
		cond = cond.And(builder.Gt{"package.id": p.After})
	}
	sess := e.Context(ctx).Table("package").
		Join("INNER", "component_package", "component_package.package_id = package.id").
		Join("INNER", "component", "component.id = component_package.component_id").
		Join("INNER", "release", "release.id = component.release_id").
		Where(cond).
		Cols("package.*", "component.name AS component_name", "component_package.filename AS filename").
		OrderBy("package.id ASC").
		Limit(p.Limit)
	if err := sess.Find(&rows); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "PACKAGE_LIST_FAILED", "could not list packages", err)
	}

	out := make([]PackageListItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, PackageListItem{Package: r.Package, Component: r.ComponentName, Filename: r.Filename})
	}
	return out, nil
}

// CountPendingChanges counts packages admitted to repositoryID's
// releases since each release's last publish-commit (or, for a release
// that has never published, every currently-linked package), the status
// figure SPEC_FULL supplemented feature 1 exposes on repository show.
func CountPendingChanges(ctx context.Context, e *db.Engine, repositoryID int64) (int64, error) {
	var releases []*Release
	if err := e.Context(ctx).Where("repository_id = ?", repositoryID).Find(&releases); err != nil {
		return 0, apierror.Wrap(apierror.Internal, "RELEASE_LIST_FAILED", "could not list releases", err)
	}

	var total int64
	for _, rel := range releases {
		since := timeZero
		if rel.PublishedAt != nil {
			since = *rel.PublishedAt
		}
		cond := builder.NewCond().And(
			builder.Eq{"component.release_id": rel.ID},
			builder.IsNull{"package.removed_at"},
			builder.Gt{"package.created_at": since},
		)
		n, err := e.Context(ctx).Table("package").
			Join("INNER", "component_package", "component_package.package_id = package.id").
			Join("INNER", "component", "component.id = component_package.component_id").
			Where(cond).
			Count()
		if err != nil {
			return 0, apierror.Wrap(apierror.Internal, "PENDING_CHANGES_QUERY_FAILED", "could not count pending changes", err)
		}
		total += n
	}
	return total, nil
}

// GetComponentPackage looks up the ComponentPackage link for a package
// within a named component of a distribution, needed to resolve a
// DELETE .../packages/{pkgId}?component=NAME request to the right link.
func GetComponentPackage(ctx context.Context, e *db.Engine, repositoryID int64, distribution, component string, packageID int64) (*ComponentPackage, error) {
	rel, err := GetDistribution(ctx, e, repositoryID, distribution)
	if err != nil {
		return nil, err
	}
	var comp Component
	has, err := e.Context(ctx).Where("release_id = ? AND name = ?", rel.ID, component).Get(&comp)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "COMPONENT_QUERY_FAILED", "could not query component", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "COMPONENT_NOT_FOUND", "component not found")
	}
	var link ComponentPackage
	has, err = e.Context(ctx).Where("component_id = ? AND package_id = ?", comp.ID, packageID).Get(&link)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "COMPONENT_PACKAGE_QUERY_FAILED", "could not query component-package link", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "PACKAGE_NOT_IN_COMPONENT", "package is not published in this component")
	}
	return &link, nil
}
