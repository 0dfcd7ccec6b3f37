package catalog

import (
	"context"

	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
)

// DistributionParams describes a Release's Debian metadata fields
// (spec §3: Release).
type DistributionParams struct {
	Distribution string
	Description  string
	Origin       string
	Label        string
	Version      string
	Suite        string
	Codename     string
}

// CreateDistribution creates a Release row for a repository (SPEC_FULL
// supplemented feature 3: first-class distribution CRUD, grounded on
// attune's server/repo/dist/create.rs).
func CreateDistribution(ctx context.Context, e *db.Engine, repositoryID int64, p DistributionParams) (*Release, error) {
	if p.Suite == "" {
		p.Suite = p.Distribution
	}
	if p.Codename == "" {
		p.Codename = p.Distribution
	}

	var existing Release
	has, err := e.Context(ctx).Where("repository_id = ? AND distribution = ?", repositoryID, p.Distribution).Get(&existing)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "RELEASE_QUERY_FAILED", "could not query release", err)
	}
	if has {
		return nil, apierror.New(apierror.Conflict, "DISTRIBUTION_ALREADY_EXISTS", "a distribution with this name already exists")
	}

	rel := &Release{
		RepositoryID: repositoryID,
		Distribution: p.Distribution,
		Description:  p.Description,
		Origin:       p.Origin,
		Label:        p.Label,
		Version:      p.Version,
		Suite:        p.Suite,
		Codename:     p.Codename,
	}
	if _, err := e.Context(ctx).Insert(rel); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "RELEASE_INSERT_FAILED", "could not create distribution", err)
	}
	return rel, nil
}

// GetOrCreateDistribution returns the named Release, creating it with
// repository defaults if it does not exist yet. Called implicitly by
// package admission (§4.C) the way the original attune design allowed a
// publish to bring a distribution into existence on first use.
func GetOrCreateDistribution(ctx context.Context, tx *db.Tx, repo *Repository, distribution string) (*Release, error) {
	var rel Release
	has, err := tx.Where("repository_id = ? AND distribution = ?", repo.ID, distribution).Get(&rel)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "RELEASE_QUERY_FAILED", "could not query release", err)
	}
	if has {
		return &rel, nil
	}

	rel = Release{
		RepositoryID: repo.ID,
		Distribution: distribution,
		Origin:       repo.DefaultOrigin,
		Label:        repo.DefaultLabel,
		Suite:        repo.DefaultSuite,
		Codename:     repo.DefaultCodename,
	}
	if distribution != repo.DefaultDistribution {
		rel.Suite = distribution
		rel.Codename = distribution
	}
	if _, err := tx.Insert(&rel); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "RELEASE_INSERT_FAILED", "could not create distribution", err)
	}
	return &rel, nil
}

// GetDistribution looks up a Release by repository and distribution name.
func GetDistribution(ctx context.Context, e *db.Engine, repositoryID int64, distribution string) (*Release, error) {
	var rel Release
	has, err := e.Context(ctx).Where("repository_id = ? AND distribution = ?", repositoryID, distribution).Get(&rel)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "RELEASE_QUERY_FAILED", "could not query release", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "DISTRIBUTION_NOT_FOUND", "distribution not found")
	}
	return &rel, nil
}

// GetDistributionTx looks up a Release by repository and distribution
// name within an already-open transaction (services/publish's begin and
// commit steps both need this).
func GetDistributionTx(tx *db.Tx, repositoryID int64, distribution string) (*Release, error) {
	var rel Release
	has, err := tx.Where("repository_id = ? AND distribution = ?", repositoryID, distribution).Get(&rel)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "RELEASE_QUERY_FAILED", "could not query release", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "DISTRIBUTION_NOT_FOUND", "distribution not found")
	}
	return &rel, nil
}

// ListDistributions lists every Release of a repository.
func ListDistributions(ctx context.Context, e *db.Engine, repositoryID int64) ([]*Release, error) {
	var rels []*Release
	if err := e.Context(ctx).Where("repository_id = ?", repositoryID).Find(&rels); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "RELEASE_LIST_FAILED", "could not list distributions", err)
	}
	return rels, nil
}

// UpdateDistribution applies a partial metadata update to a Release
// (SPEC_FULL supplemented feature 2).
func UpdateDistribution(ctx context.Context, e *db.Engine, repositoryID int64, distribution string, p DistributionParams) (*Release, error) {
	rel, err := GetDistribution(ctx, e, repositoryID, distribution)
	if err != nil {
		return nil, err
	}
	if p.Description != "" {
		rel.Description = p.Description
	}
	if p.Origin != "" {
		rel.Origin = p.Origin
	}
	if p.Label != "" {
		rel.Label = p.Label
	}
	if p.Version != "" {
		rel.Version = p.Version
	}
	if p.Suite != "" {
		rel.Suite = p.Suite
	}
	if p.Codename != "" {
		rel.Codename = p.Codename
	}
	if _, err := e.Context(ctx).ID(rel.ID).Cols("description", "origin", "label", "version", "suite", "codename").Update(rel); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "RELEASE_UPDATE_FAILED", "could not update distribution", err)
	}
	return rel, nil
}

// DeleteDistribution deletes a Release and every Component,
// ComponentPackage, PackagesIndex, and ByHashCleanup row beneath it.
// Packages themselves are untouched (tenant-scoped, not release-scoped).
func DeleteDistribution(ctx context.Context, e *db.Engine, repositoryID int64, distribution string) error {
	return e.Serializable(ctx, func(tx *db.Tx) error {
		var rel Release
		has, err := tx.Where("repository_id = ? AND distribution = ?", repositoryID, distribution).Get(&rel)
		if err != nil {
			return apierror.Wrap(apierror.Internal, "RELEASE_QUERY_FAILED", "could not query release", err)
		}
		if !has {
			return apierror.New(apierror.NotFound, "DISTRIBUTION_NOT_FOUND", "distribution not found")
		}

		var components []*Component
		if err := tx.Where("release_id = ?", rel.ID).Find(&components); err != nil {
			return apierror.Wrap(apierror.Internal, "DISTRIBUTION_DELETE_QUERY_FAILED", "could not list components", err)
		}
		for _, comp := range components {
			if _, err := tx.Where("component_id = ?", comp.ID).Delete(new(ComponentPackage)); err != nil {
				return apierror.Wrap(apierror.Internal, "DISTRIBUTION_DELETE_FAILED", "could not delete component-package links", err)
			}
			if _, err := tx.Where("component_id = ?", comp.ID).Delete(new(PackagesIndex)); err != nil {
				return apierror.Wrap(apierror.Internal, "DISTRIBUTION_DELETE_FAILED", "could not delete packages indexes", err)
			}
			if _, err := tx.Where("component_id = ?", comp.ID).Delete(new(ByHashCleanup)); err != nil {
				return apierror.Wrap(apierror.Internal, "DISTRIBUTION_DELETE_FAILED", "could not delete by-hash cleanup rows", err)
			}
			if _, err := tx.ID(comp.ID).Delete(new(Component)); err != nil {
				return apierror.Wrap(apierror.Internal, "DISTRIBUTION_DELETE_FAILED", "could not delete component", err)
			}
		}
		if _, err := tx.ID(rel.ID).Delete(new(Release)); err != nil {
			return apierror.Wrap(apierror.Internal, "DISTRIBUTION_DELETE_FAILED", "could not delete release", err)
		}
		return nil
	})
}

// GetOrCreateComponent finds or creates a Component under a release,
// within an already-open transaction (used by admit-package, §4.C).
func GetOrCreateComponent(tx *db.Tx, releaseID int64, name string) (*Component, error) {
	var comp Component
	has, err := tx.Where("release_id = ? AND name = ?", releaseID, name).Get(&comp)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "COMPONENT_QUERY_FAILED", "could not query component", err)
	}
	if has {
		return &comp, nil
	}
	comp = Component{ReleaseID: releaseID, Name: name}
	if _, err := tx.Insert(&comp); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "COMPONENT_INSERT_FAILED", "could not create component", err)
	}
	return &comp, nil
}

// ListComponentsTx lists every Component beneath a release within an
// already-open transaction (services/publish's begin/commit steps).
func ListComponentsTx(tx *db.Tx, releaseID int64) ([]*Component, error) {
	var comps []*Component
	if err := tx.Where("release_id = ?", releaseID).Find(&comps); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "COMPONENT_LIST_FAILED", "could not list components", err)
	}
	return comps, nil
}

// ListComponents lists every Component beneath a release.
func ListComponents(ctx context.Context, e *db.Engine, releaseID int64) ([]*Component, error) {
	var comps []*Component
	if err := e.Context(ctx).Where("release_id = ?", releaseID).Find(&comps); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "COMPONENT_LIST_FAILED", "could not list components", err)
	}
	return comps, nil
}

// RegisterPublicKey stores the PGP public key repod will verify client
// signatures against (SPEC_FULL supplemented feature 6, resolving spec
// §9's open question).
func RegisterPublicKey(ctx context.Context, e *db.Engine, repositoryID int64, distribution, armoredKey string) error {
	rel, err := GetDistribution(ctx, e, repositoryID, distribution)
	if err != nil {
		return err
	}
	rel.PublicKeyArmored = armoredKey
	if _, err := e.Context(ctx).ID(rel.ID).Cols("public_key_armored").Update(rel); err != nil {
		return apierror.Wrap(apierror.Internal, "PUBLIC_KEY_UPDATE_FAILED", "could not register public key", err)
	}
	return nil
}
