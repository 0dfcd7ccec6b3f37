// Package publish implements the two-phase publish coordinator of spec
// §4.E: publish-begin snapshots the catalog and returns an unsigned
// Release body plus a fingerprint; publish-commit re-snapshots, demands a
// byte-exact match, verifies the client's signatures, and persists the
// result. Grounded on attune's server/repo/index/{generate,sign}.rs
// fingerprint/replay protocol.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/retry"
	"code.deblane.dev/repod/modules/setting"
	"code.deblane.dev/repod/services/index"
)

// BeginResult is returned to the client at the end of publish-begin
// (spec §6: "returns {release, fingerprint}").
type BeginResult struct {
	Release     string
	Fingerprint string
}

// CommitParams collects a publish-commit request's body (spec §6:
// "{clearsigned, detached, fingerprint}").
type CommitParams struct {
	RepositoryID int64
	Distribution string
	Clearsigned  string
	Detached     string
	Fingerprint  string
}

// SupersededIndex is a (component, architecture)'s previous digest set,
// captured just before it was overwritten, so the mirror can schedule its
// by-hash siblings for grace-window cleanup (spec §4.F).
type SupersededIndex struct {
	ComponentID  int64
	Architecture string
	MD5, SHA1, SHA256 string
}

// CommitResult is what a successful publish-commit produced, for the
// mirror (services/mirror) to push to object storage.
type CommitResult struct {
	Release     *catalog.Release
	Components  []*catalog.Component
	Indexes     map[int64]map[string]*index.GeneratedIndex // componentID -> architecture -> index
	Superseded  []SupersededIndex
	ReleaseBody []byte
}

type snapshot struct {
	release    *index.GeneratedIndex
	indexes    map[int64]map[string]*index.GeneratedIndex
	components []*catalog.Component
}

// render regenerates the Release body and every component/architecture
// Packages index from the current catalog state, using now as the
// generator's Date input (spec §4.D: "no dependence on ... current
// wallclock" outside this one supplied input). Called identically from
// both publish-begin and publish-commit so that an unchanged catalog
// snapshot yields byte-identical output.
func render(tx *db.Tx, rel *catalog.Release, now time.Time) (*snapshot, error) {
	components, err := catalog.ListComponentsTx(tx, rel.ID)
	if err != nil {
		return nil, err
	}

	indexes := make(map[int64]map[string]*index.GeneratedIndex, len(components))
	var digests []index.ComponentArchitectureDigest
	componentNames := make([]string, 0, len(components))

	for _, comp := range components {
		componentNames = append(componentNames, comp.Name)

		archs, err := catalog.ListArchitecturesForComponent(tx, comp.ID)
		if err != nil {
			return nil, err
		}
		if len(archs) == 0 {
			continue
		}

		indexes[comp.ID] = make(map[string]*index.GeneratedIndex, len(archs))
		for _, arch := range archs {
			pkgs, err := catalog.SnapshotArchitecture(tx, comp.ID, arch)
			if err != nil {
				return nil, err
			}
			gen, err := index.GeneratePackages(pkgs)
			if err != nil {
				return nil, err
			}
			indexes[comp.ID][arch] = gen
			digests = append(digests, index.ComponentArchitectureDigest{
				Component: comp.Name, Architecture: arch, Digest: gen.Digest,
			})
		}
	}

	releaseIdx := index.GenerateRelease(index.ReleaseInput{
		Origin:      rel.Origin,
		Label:       rel.Label,
		Suite:       rel.Suite,
		Codename:    rel.Codename,
		Version:     rel.Version,
		Description: rel.Description,
		Now:         now,
		Components:  componentNames,
		Digests:     digests,
	})

	return &snapshot{release: releaseIdx, indexes: indexes, components: components}, nil
}

func fingerprint(releaseBytes []byte) string {
	sum := sha256.Sum256(releaseBytes)
	return hex.EncodeToString(sum[:])
}

// Begin implements publish-begin (spec §4.E step 1). A CatalogConflict from
// a losing serialization is retried internally per spec §7's propagation
// policy, up to cfg.SerializableRetryLimit attempts, before it propagates.
func Begin(ctx context.Context, e *db.Engine, cfg setting.Publish, repositoryID int64, distribution string) (*BeginResult, error) {
	var result BeginResult

	err := retry.Do(ctx, retry.Default(cfg.SerializableRetryLimit), func(attempt int) error {
		return e.Serializable(ctx, func(tx *db.Tx) error {
			rel, err := catalog.GetDistributionTx(tx, repositoryID, distribution)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			snap, err := render(tx, rel, now)
			if err != nil {
				return err
			}

			fp := fingerprint(snap.release.Contents)
			rel.WorkingContents = string(snap.release.Contents)
			rel.WorkingFingerprint = fp
			rel.WorkingReleaseTS = &now
			if _, err := tx.ID(rel.ID).Cols("working_contents", "working_fingerprint", "working_release_ts").Update(rel); err != nil {
				return apierror.Wrap(apierror.Internal, "RELEASE_WORKING_STATE_UPDATE_FAILED", "could not persist working release state", err)
			}

			result = BeginResult{Release: string(snap.release.Contents), Fingerprint: fp}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Commit implements publish-commit (spec §4.E step 2): re-snapshot,
// demand a byte-exact match against the fingerprinted working state,
// verify the submitted signatures against the recomputed bytes, and
// persist the signed Release plus every component's Packages index. A
// CatalogConflict from a losing serialization is retried internally per
// spec §7's propagation policy, up to cfg.SerializableRetryLimit attempts,
// before it propagates.
func Commit(ctx context.Context, e *db.Engine, cfg setting.Publish, p CommitParams) (*CommitResult, error) {
	var result CommitResult

	err := retry.Do(ctx, retry.Default(cfg.SerializableRetryLimit), func(attempt int) error {
		return e.Serializable(ctx, func(tx *db.Tx) error {
			rel, err := catalog.GetDistributionTx(tx, p.RepositoryID, p.Distribution)
			if err != nil {
				return err
			}

			if rel.WorkingFingerprint == "" || rel.WorkingFingerprint != p.Fingerprint || rel.WorkingReleaseTS == nil {
				return apierror.New(apierror.PublishStale, "PUBLISH_FINGERPRINT_UNKNOWN",
					"fingerprint does not match this distribution's current working state; restart from publish-begin")
			}

			snap, err := render(tx, rel, *rel.WorkingReleaseTS)
			if err != nil {
				return err
			}

			if string(snap.release.Contents) != rel.WorkingContents {
				return apierror.New(apierror.PublishStale, "PUBLISH_SNAPSHOT_CHANGED",
					"the catalog changed since publish-begin; restart from publish-begin")
			}

			if rel.PublicKeyArmored == "" {
				return apierror.New(apierror.SignatureInvalid, "NO_PUBLIC_KEY_REGISTERED",
					"no public key is registered for this distribution; register one before publishing")
			}
			if err := verifyClearsigned(rel.PublicKeyArmored, snap.release.Contents, p.Clearsigned); err != nil {
				return err
			}
			if err := verifyDetached(rel.PublicKeyArmored, snap.release.Contents, p.Detached); err != nil {
				return err
			}

			publishedAt := time.Now().UTC()
			rel.Contents = string(snap.release.Contents)
			rel.Clearsigned = p.Clearsigned
			rel.Detached = p.Detached
			rel.WorkingContents = ""
			rel.WorkingFingerprint = ""
			rel.WorkingReleaseTS = nil
			rel.PublishedAt = &publishedAt
			if _, err := tx.ID(rel.ID).Cols(
				"contents", "clearsigned", "detached", "working_contents", "working_fingerprint", "working_release_ts", "published_at",
			).Update(rel); err != nil {
				return apierror.Wrap(apierror.Internal, "RELEASE_COMMIT_UPDATE_FAILED", "could not persist committed release", err)
			}

			var superseded []SupersededIndex
			for compID, byArch := range snap.indexes {
				for arch, gen := range byArch {
					prev, has, err := catalog.GetPackagesIndexTx(tx, compID, arch)
					if err != nil {
						return err
					}
					if has && (prev.MD5 != gen.Digest.MD5 || prev.SHA1 != gen.Digest.SHA1 || prev.SHA256 != gen.Digest.SHA256) {
						superseded = append(superseded, SupersededIndex{
							ComponentID: compID, Architecture: arch,
							MD5: prev.MD5, SHA1: prev.SHA1, SHA256: prev.SHA256,
						})
					}
					if _, err := catalog.UpsertPackagesIndex(tx, compID, arch, string(gen.Contents), gen.Digest.Size, gen.Digest.MD5, gen.Digest.SHA1, gen.Digest.SHA256); err != nil {
						return err
					}
				}
			}

			result = CommitResult{
				Release: rel, Components: snap.components, Indexes: snap.indexes,
				Superseded: superseded, ReleaseBody: snap.release.Contents,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
