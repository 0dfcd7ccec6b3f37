package v0

import "code.deblane.dev/repod/modules/apierror"

// badRequest builds a MalformedPackage-kind error for request-shape
// failures that have nothing to do with .deb parsing (bad JSON, missing
// query params) — it maps to the same 400 status spec §7 assigns
// MalformedPackage without overloading that kind's meaning elsewhere.
func badRequest(code, message string) *apierror.Error {
	return apierror.New(apierror.MalformedPackage, code, message)
}
