package publish

import (
	"bytes"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"

	"code.deblane.dev/repod/modules/apierror"
)

// verifyDetached checks an armored detached signature of releaseBytes
// against publicKeyArmored, the way gitea's arch package verifies
// uploaded package signatures against a stored public key
// (services/packages/arch/verificator.go), generalized here from
// CheckDetachedSignature (binary) to CheckArmoredDetachedSignature since
// signatures travel as JSON strings over HTTP.
func verifyDetached(publicKeyArmored string, releaseBytes []byte, detachedArmored string) error {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(publicKeyArmored))
	if err != nil {
		return apierror.Wrap(apierror.SignatureInvalid, "PUBLIC_KEY_UNREADABLE", "could not parse registered public key", err)
	}

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(releaseBytes), strings.NewReader(detachedArmored), nil)
	if err != nil {
		return apierror.Wrap(apierror.SignatureInvalid, "DETACHED_SIGNATURE_INVALID", "detached signature does not match the recomputed Release body", err)
	}
	return nil
}

// verifyClearsigned checks a clearsigned InRelease-style document against
// publicKeyArmored, requiring its embedded plaintext to equal releaseBytes
// with a single trailing newline trimmed (spec §4.E step 2: "trimming a
// single trailing newline from the input for the clearsigned variant per
// long-standing GPG cleartext convention").
func verifyClearsigned(publicKeyArmored string, releaseBytes []byte, clearsignedBody string) error {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(publicKeyArmored))
	if err != nil {
		return apierror.Wrap(apierror.SignatureInvalid, "PUBLIC_KEY_UNREADABLE", "could not parse registered public key", err)
	}

	block, _ := clearsign.Decode([]byte(clearsignedBody))
	if block == nil {
		return apierror.New(apierror.SignatureInvalid, "CLEARSIGN_DECODE_FAILED", "could not decode clearsigned body")
	}

	expected := strings.TrimSuffix(string(releaseBytes), "\n")
	// block.Bytes joins the cleartext lines with CRLF, the canonical form
	// the signature covers, so compare it with LF line endings restored.
	if strings.ReplaceAll(string(block.Bytes), "\r\n", "\n") != expected {
		return apierror.New(apierror.SignatureInvalid, "CLEARSIGN_BODY_MISMATCH",
			"clearsigned plaintext does not match the recomputed Release body")
	}

	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(block.Bytes), block.ArmoredSignature.Body, nil); err != nil {
		return apierror.Wrap(apierror.SignatureInvalid, "CLEARSIGN_SIGNATURE_INVALID", "clearsigned signature is invalid", err)
	}
	return nil
}
