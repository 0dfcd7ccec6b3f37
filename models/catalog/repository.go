package catalog

import (
	"context"

	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
)

// CreateRepositoryParams collects the fields spec §6's
// "POST /api/v0/repositories" accepts.
type CreateRepositoryParams struct {
	TenantID    int64
	Name        string
	URI         string
	Bucket      string
	Distribution string
	Suite        string
	Codename     string
	Origin       string
	Label        string

	SingleTenantStorage bool
}

// CreateRepository inserts a Repository row, deriving its object-key
// prefix per spec §3.
func CreateRepository(ctx context.Context, e *db.Engine, p CreateRepositoryParams) (*Repository, error) {
	existing, err := GetRepositoryByName(ctx, e, p.TenantID, p.Name)
	if err == nil && existing != nil {
		return nil, apierror.New(apierror.Conflict, "REPOSITORY_ALREADY_EXISTS", "a repository with this name already exists for this tenant")
	}

	if p.Distribution == "" {
		p.Distribution = "stable"
	}
	if p.Suite == "" {
		p.Suite = p.Distribution
	}
	if p.Codename == "" {
		p.Codename = p.Distribution
	}

	repo := &Repository{
		TenantID:            p.TenantID,
		Name:                p.Name,
		URI:                 p.URI,
		Bucket:              p.Bucket,
		Prefix:              PrefixFor(p.TenantID, p.URI, p.SingleTenantStorage),
		DefaultDistribution: p.Distribution,
		DefaultSuite:        p.Suite,
		DefaultCodename:     p.Codename,
		DefaultOrigin:       p.Origin,
		DefaultLabel:        p.Label,
	}
	if _, err := e.Context(ctx).Insert(repo); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "REPOSITORY_INSERT_FAILED", "could not create repository", err)
	}
	return repo, nil
}

// GetRepositoryByName looks up a tenant-scoped repository by name.
func GetRepositoryByName(ctx context.Context, e *db.Engine, tenantID int64, name string) (*Repository, error) {
	var repo Repository
	has, err := e.Context(ctx).Where("tenant_id = ? AND name = ?", tenantID, name).Get(&repo)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "REPOSITORY_QUERY_FAILED", "could not query repository", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "REPOSITORY_NOT_FOUND", "repository not found")
	}
	return &repo, nil
}

// GetRepositoryByID looks up a tenant-scoped repository by id.
func GetRepositoryByID(ctx context.Context, e *db.Engine, tenantID, id int64) (*Repository, error) {
	var repo Repository
	has, err := e.Context(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Get(&repo)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "REPOSITORY_QUERY_FAILED", "could not query repository", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "REPOSITORY_NOT_FOUND", "repository not found")
	}
	return &repo, nil
}

// ListRepositories lists every repository belonging to tenantID.
func ListRepositories(ctx context.Context, e *db.Engine, tenantID int64) ([]*Repository, error) {
	var repos []*Repository
	if err := e.Context(ctx).Where("tenant_id = ?", tenantID).Find(&repos); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "REPOSITORY_LIST_FAILED", "could not list repositories", err)
	}
	return repos, nil
}

// UpdateRepositoryParams is the mutable subset of Repository fields
// (SPEC_FULL supplemented feature 2: repository edit).
type UpdateRepositoryParams struct {
	URI                 *string
	DefaultDistribution *string
	DefaultSuite        *string
	DefaultCodename     *string
	DefaultOrigin       *string
	DefaultLabel        *string
}

// UpdateRepository applies a partial update to a repository.
func UpdateRepository(ctx context.Context, e *db.Engine, tenantID, id int64, p UpdateRepositoryParams) (*Repository, error) {
	repo, err := GetRepositoryByID(ctx, e, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p.URI != nil {
		repo.URI = *p.URI
	}
	if p.DefaultDistribution != nil {
		repo.DefaultDistribution = *p.DefaultDistribution
	}
	if p.DefaultSuite != nil {
		repo.DefaultSuite = *p.DefaultSuite
	}
	if p.DefaultCodename != nil {
		repo.DefaultCodename = *p.DefaultCodename
	}
	if p.DefaultOrigin != nil {
		repo.DefaultOrigin = *p.DefaultOrigin
	}
	if p.DefaultLabel != nil {
		repo.DefaultLabel = *p.DefaultLabel
	}
	if _, err := e.Context(ctx).ID(repo.ID).Cols(
		"uri", "default_distribution", "default_suite", "default_codename", "default_origin", "default_label",
	).Update(repo); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "REPOSITORY_UPDATE_FAILED", "could not update repository", err)
	}
	return repo, nil
}

// DeleteRepository cascades: components, component-package links,
// packages-index rows, by-hash cleanup rows, and finally the release and
// repository rows themselves. Packages are tenant-scoped, not
// repository-scoped, and are never deleted by this operation (spec §3:
// "Package. Belongs to a tenant... this supports de-duplication across
// components and releases within a tenant").
func DeleteRepository(ctx context.Context, e *db.Engine, tenantID, id int64) error {
	return e.Serializable(ctx, func(tx *db.Tx) error {
		repo, err := getRepositoryTx(tx, tenantID, id)
		if err != nil {
			return err
		}

		var releases []*Release
		if err := tx.Where("repository_id = ?", repo.ID).Find(&releases); err != nil {
			return apierror.Wrap(apierror.Internal, "REPOSITORY_DELETE_QUERY_FAILED", "could not list releases", err)
		}

		for _, rel := range releases {
			var components []*Component
			if err := tx.Where("release_id = ?", rel.ID).Find(&components); err != nil {
				return apierror.Wrap(apierror.Internal, "REPOSITORY_DELETE_QUERY_FAILED", "could not list components", err)
			}
			for _, comp := range components {
				if _, err := tx.Where("component_id = ?", comp.ID).Delete(new(ComponentPackage)); err != nil {
					return apierror.Wrap(apierror.Internal, "REPOSITORY_DELETE_FAILED", "could not delete component-package links", err)
				}
				if _, err := tx.Where("component_id = ?", comp.ID).Delete(new(PackagesIndex)); err != nil {
					return apierror.Wrap(apierror.Internal, "REPOSITORY_DELETE_FAILED", "could not delete packages indexes", err)
				}
				if _, err := tx.Where("component_id = ?", comp.ID).Delete(new(ByHashCleanup)); err != nil {
					return apierror.Wrap(apierror.Internal, "REPOSITORY_DELETE_FAILED", "could not delete by-hash cleanup rows", err)
				}
				if _, err := tx.ID(comp.ID).Delete(new(Component)); err != nil {
					return apierror.Wrap(apierror.Internal, "REPOSITORY_DELETE_FAILED", "could not delete component", err)
				}
			}
			if _, err := tx.ID(rel.ID).Delete(new(Release)); err != nil {
				return apierror.Wrap(apierror.Internal, "REPOSITORY_DELETE_FAILED", "could not delete release", err)
			}
		}

		if _, err := tx.ID(repo.ID).Delete(new(Repository)); err != nil {
			return apierror.Wrap(apierror.Internal, "REPOSITORY_DELETE_FAILED", "could not delete repository", err)
		}
		return nil
	})
}

// GetRepositoryTx looks up a repository by id within an already-open
// transaction, without tenant scoping. Callers (services/publish,
// services/mirror) reach this only after the HTTP layer has already
// authorized the request against the repository's tenant.
func GetRepositoryTx(tx *db.Tx, id int64) (*Repository, error) {
	var repo Repository
	has, err := tx.ID(id).Get(&repo)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "REPOSITORY_QUERY_FAILED", "could not query repository", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "REPOSITORY_NOT_FOUND", "repository not found")
	}
	return &repo, nil
}

func getRepositoryTx(tx *db.Tx, tenantID, id int64) (*Repository, error) {
	var repo Repository
	has, err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Get(&repo)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "REPOSITORY_QUERY_FAILED", "could not query repository", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "REPOSITORY_NOT_FOUND", "repository not found")
	}
	return &repo, nil
}
