package publish

import (
	"bytes"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/stretchr/testify/require"

	"code.deblane.dev/repod/modules/apierror"
)

// testKeypair generates a throwaway PGP entity and returns its armored
// public key alongside the entity itself, for signing test fixtures.
func testKeypair(t *testing.T) (*openpgp.Entity, string) {
	t.Helper()
	entity, err := openpgp.NewEntity("repod test", "", "test@example.com", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())
	return entity, buf.String()
}

func armoredDetachedSignature(t *testing.T, entity *openpgp.Entity, message []byte) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&buf, entity, bytes.NewReader(message), nil))
	return buf.String()
}

func clearsignedDocument(t *testing.T, entity *openpgp.Entity, message []byte) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := clearsign.Encode(&buf, entity.PrivateKey, nil)
	require.NoError(t, err)
	_, err = w.Write(message)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.String()
}

func TestVerifyDetachedAcceptsValidSignature(t *testing.T) {
	entity, pubKey := testKeypair(t)
	body := []byte("Origin: acme\nSuite: stable\n")
	sig := armoredDetachedSignature(t, entity, body)

	require.NoError(t, verifyDetached(pubKey, body, sig))
}

func TestVerifyDetachedRejectsTamperedBody(t *testing.T) {
	entity, pubKey := testKeypair(t)
	body := []byte("Origin: acme\nSuite: stable\n")
	sig := armoredDetachedSignature(t, entity, body)

	err := verifyDetached(pubKey, []byte("Origin: acme\nSuite: unstable\n"), sig)
	require.True(t, apierror.Is(err, apierror.SignatureInvalid))
}

func TestVerifyDetachedRejectsUnknownKey(t *testing.T) {
	_, otherKey := testKeypair(t)
	signer, _ := testKeypair(t)
	body := []byte("Origin: acme\n")
	sig := armoredDetachedSignature(t, signer, body)

	err := verifyDetached(otherKey, body, sig)
	require.True(t, apierror.Is(err, apierror.SignatureInvalid))
}

func TestVerifyClearsignedAcceptsValidDocumentTrimmingTrailingNewline(t *testing.T) {
	entity, pubKey := testKeypair(t)
	body := []byte("Origin: acme\nSuite: stable\n")
	clearsigned := clearsignedDocument(t, entity, bytes.TrimSuffix(body, []byte("\n")))

	require.NoError(t, verifyClearsigned(pubKey, body, clearsigned))
}

func TestVerifyClearsignedRejectsBodyMismatch(t *testing.T) {
	entity, pubKey := testKeypair(t)
	signedBody := []byte("Origin: acme\nSuite: stable")
	clearsigned := clearsignedDocument(t, entity, signedBody)

	err := verifyClearsigned(pubKey, []byte("Origin: acme\nSuite: unstable\n"), clearsigned)
	require.True(t, apierror.Is(err, apierror.SignatureInvalid))
}

func TestVerifyClearsignedRejectsUndecodableBody(t *testing.T) {
	_, pubKey := testKeypair(t)
	err := verifyClearsigned(pubKey, []byte("anything"), "not a clearsigned document")
	require.True(t, apierror.Is(err, apierror.SignatureInvalid))
}

func TestVerifyDetachedRejectsUnparsablePublicKey(t *testing.T) {
	err := verifyDetached("not armored", []byte("body"), "not a signature")
	require.True(t, apierror.Is(err, apierror.SignatureInvalid))
}
