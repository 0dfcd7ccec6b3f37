package catalog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
)

// CreateTenant inserts a new Tenant row.
func CreateTenant(ctx context.Context, e *db.Engine, name, subdomain string) (*Tenant, error) {
	t := &Tenant{Name: name, Subdomain: subdomain}
	if _, err := e.Context(ctx).Insert(t); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "TENANT_INSERT_FAILED", "could not create tenant", err)
	}
	return t, nil
}

// GetTenantBySubdomain looks up a tenant by its unique subdomain.
func GetTenantBySubdomain(ctx context.Context, e *db.Engine, subdomain string) (*Tenant, error) {
	var t Tenant
	has, err := e.Context(ctx).Where("subdomain = ?", subdomain).Get(&t)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "TENANT_QUERY_FAILED", "could not query tenant", err)
	}
	if !has {
		return nil, apierror.New(apierror.NotFound, "TENANT_NOT_FOUND", "tenant not found")
	}
	return &t, nil
}

// HashToken computes the salt-free SHA-256 digest spec §3 stores for an
// API token: "tokens are generated server-side, so length entropy
// suffices."
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateToken returns a new random API token in raw (unhashed) form,
// suitable for returning to the caller exactly once.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", apierror.Wrap(apierror.Internal, "TOKEN_GENERATION_FAILED", "could not generate random token", err)
	}
	return "repod_" + hex.EncodeToString(buf), nil
}

// CreateAPIToken mints and stores a new token for tenantID, returning the
// raw token (which is never stored) alongside the row.
func CreateAPIToken(ctx context.Context, e *db.Engine, tenantID int64, name string) (string, *APIToken, error) {
	raw, err := GenerateToken()
	if err != nil {
		return "", nil, err
	}
	row := &APIToken{TenantID: tenantID, Name: name, TokenHash: HashToken(raw)}
	if _, err := e.Context(ctx).Insert(row); err != nil {
		return "", nil, apierror.Wrap(apierror.Internal, "TOKEN_INSERT_FAILED", "could not create API token", err)
	}
	return raw, row, nil
}

// AuthenticateToken looks up the tenant owning a presented raw token.
// Token lookup and tenant attribution happen before any catalog action
// (§4.G).
func AuthenticateToken(ctx context.Context, e *db.Engine, rawToken string) (*Tenant, error) {
	if rawToken == "" {
		return nil, apierror.New(apierror.Unauthorized, "TOKEN_MISSING", "no API token presented")
	}
	hash := HashToken(rawToken)

	var token APIToken
	has, err := e.Context(ctx).Where("token_hash = ? AND revoked_at IS NULL", hash).Get(&token)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "TOKEN_QUERY_FAILED", "could not query API token", err)
	}
	if !has {
		return nil, apierror.New(apierror.Unauthorized, "TOKEN_UNKNOWN", "API token is unknown or revoked")
	}

	var tenant Tenant
	has, err = e.Context(ctx).ID(token.TenantID).Get(&tenant)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "TENANT_QUERY_FAILED", "could not query tenant", err)
	}
	if !has {
		return nil, apierror.New(apierror.Internal, "TENANT_MISSING_FOR_TOKEN", fmt.Sprintf("token %d references missing tenant %d", token.ID, token.TenantID))
	}
	return &tenant, nil
}
