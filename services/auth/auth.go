// Package auth is the HTTP-facing wrapper around models/catalog's tenant
// and token operations (spec §4.G): extracting a presented token from a
// request and resolving it to a tenant before any catalog action runs.
package auth

import (
	"context"
	"net/http"
	"strings"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
)

// ExtractToken pulls the raw API token out of a request per spec §6:
// "Authorization: Basic ... password = API token; or bearer." Basic auth's
// username is accepted but ignored.
func ExtractToken(r *http.Request) string {
	if user, pass, ok := r.BasicAuth(); ok {
		_ = user
		return pass
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Authenticate resolves a request's presented token to its owning
// tenant.
func Authenticate(ctx context.Context, e *db.Engine, r *http.Request) (*catalog.Tenant, error) {
	token := ExtractToken(r)
	if token == "" {
		return nil, apierror.New(apierror.Unauthorized, "TOKEN_MISSING", "no API token presented")
	}
	return catalog.AuthenticateToken(ctx, e, token)
}
