package apierror

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatusMapsEveryKnownKind(t *testing.T) {
	cases := map[Kind]int{
		Unauthorized:       http.StatusUnauthorized,
		NotFound:           http.StatusNotFound,
		Conflict:           http.StatusConflict,
		MalformedPackage:   http.StatusBadRequest,
		PublishStale:       http.StatusConflict,
		SignatureInvalid:   http.StatusBadRequest,
		StorageUnavailable: http.StatusBadGateway,
		CatalogConflict:    http.StatusConflict,
		Internal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", kind, got, want)
		}
	}
}

func TestHTTPStatusDefaultsToInternalServerErrorForUnknownKind(t *testing.T) {
	if got := Kind("Bogus").HTTPStatus(); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus() = %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestRetryableOnlyForCatalogConflictAndStorageUnavailable(t *testing.T) {
	retryable := map[Kind]bool{
		CatalogConflict:    true,
		StorageUnavailable: true,
		Unauthorized:       false,
		NotFound:           false,
		Conflict:           false,
		MalformedPackage:   false,
		PublishStale:       false,
		SignatureInvalid:   false,
		Internal:           false,
	}
	for kind, want := range retryable {
		e := New(kind, "TEST_CODE", "message")
		if got := e.Retryable(); got != want {
			t.Errorf("%s.Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestIsMatchesWrappedKind(t *testing.T) {
	cause := errors.New("underlying failure")
	err := Wrap(StorageUnavailable, "TEST_WRAP", "storage down", cause)
	if !Is(err, StorageUnavailable) {
		t.Error("Is(err, StorageUnavailable) = false, want true")
	}
	if Is(err, CatalogConflict) {
		t.Error("Is(err, CatalogConflict) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true, since Unwrap should expose the cause")
	}
}

func TestIsFalseForPlainError(t *testing.T) {
	if Is(errors.New("not an apierror"), NotFound) {
		t.Error("Is on a plain error = true, want false")
	}
}

func TestErrorStringIncludesCauseWhenPresent(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(Internal, "TEST_CODE", "something broke", cause)
	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() returned empty string")
	}
	withoutCause := New(Internal, "TEST_CODE", "something broke")
	if err.Error() == withoutCause.Error() {
		t.Error("Error() should differ when a cause is present")
	}
}
