package index

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.deblane.dev/repod/models/catalog"
)

func fieldsJSON(t *testing.T, fields map[string]string) string {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	return string(b)
}

func TestGeneratePackagesFieldOrderAndDerivedFields(t *testing.T) {
	pkg := catalog.Package{
		ID:           1,
		Name:         "foo",
		Version:      "1.0",
		Architecture: "amd64",
		Paragraph: fieldsJSON(t, map[string]string{
			"Package":      "foo",
			"Version":      "1.0",
			"Architecture": "amd64",
			"Maintainer":   "Jane Doe <jane@example.com>",
			"Description":  "an example package",
			"Homepage":     "https://example.com",
			"X-Custom":     "z",
			"X-Another":    "a",
		}),
		MD5:    "d41d8cd98f00b204e9800998ecf8427e",
		SHA1:   "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		SHA256: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Size:   1234,
	}

	out, err := GeneratePackages([]catalog.PublishedPackage{{Package: pkg, Filename: "pool/main/f/foo/foo_1.0_amd64.deb"}})
	require.NoError(t, err)

	body := string(out.Contents)
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")

	require.Equal(t, "Package: foo", lines[0])
	assert.Equal(t, "Version: 1.0", lines[1])
	assert.Equal(t, "Maintainer: Jane Doe <jane@example.com>", lines[2])
	assert.Equal(t, "Architecture: amd64", lines[3])
	assert.Equal(t, "Homepage: https://example.com", lines[4])
	assert.Equal(t, "Description: an example package", lines[5])

	// Remaining unknown fields are ASCII-sorted after the fixed set.
	assert.Equal(t, "X-Another: a", lines[6])
	assert.Equal(t, "X-Custom: z", lines[7])

	// Derived fields come last, in this fixed order.
	assert.Equal(t, "Filename: pool/main/f/foo/foo_1.0_amd64.deb", lines[8])
	assert.Equal(t, "Size: 1234", lines[9])
	assert.True(t, strings.HasPrefix(lines[10], "MD5sum: "))
	assert.True(t, strings.HasPrefix(lines[11], "SHA1: "))
	assert.True(t, strings.HasPrefix(lines[12], "SHA256: "))

	assert.True(t, strings.HasSuffix(body, "\n"))
	assert.False(t, strings.HasSuffix(body, "\n\n"))
}

func TestGeneratePackagesSortOrderAndDeterminism(t *testing.T) {
	mk := func(name, version string) catalog.PublishedPackage {
		return catalog.PublishedPackage{
			Package: catalog.Package{
				Name: name, Version: version, Architecture: "amd64",
				Paragraph: fieldsJSON(t, map[string]string{
					"Package": name, "Version": version, "Architecture": "amd64",
					"Maintainer": "x", "Description": "d",
				}),
			},
			Filename: name + "_" + version + ".deb",
		}
	}

	pkgs := []catalog.PublishedPackage{
		mk("zeta", "1.0"),
		mk("alpha", "2.0"),
		mk("alpha", "1.0"),
	}

	first, err := GeneratePackages(pkgs)
	require.NoError(t, err)

	// Shuffle input order; output must be identical (spec §4.D
	// determinism: no dependence on insertion order).
	reordered := []catalog.PublishedPackage{pkgs[2], pkgs[0], pkgs[1]}
	second, err := GeneratePackages(reordered)
	require.NoError(t, err)

	assert.Equal(t, first.Contents, second.Contents)
	assert.Equal(t, first.Digest, second.Digest)

	body := string(first.Contents)
	alphaOneIdx := strings.Index(body, "Package: alpha\nVersion: 1.0")
	alphaTwoIdx := strings.Index(body, "Package: alpha\nVersion: 2.0")
	zetaIdx := strings.Index(body, "Package: zeta")
	require.True(t, alphaOneIdx >= 0 && alphaTwoIdx >= 0 && zetaIdx >= 0)
	assert.Less(t, alphaOneIdx, alphaTwoIdx)
	assert.Less(t, alphaTwoIdx, zetaIdx)
}

func TestGeneratePackagesNormalizesContinuationIndentation(t *testing.T) {
	// A real .deb's control file may fold a Description across lines with
	// tab or multi-space indentation; ParseControlParagraph preserves that
	// indentation verbatim (deb.control.go), so GeneratePackages must
	// normalize it to spec §4.D.3's single-space continuation at emission.
	pkg := catalog.Package{
		Name: "foo", Version: "1.0", Architecture: "amd64",
		Paragraph: fieldsJSON(t, map[string]string{
			"Package": "foo", "Version": "1.0", "Architecture": "amd64",
			"Maintainer":  "Jane Doe <jane@example.com>",
			"Description": "an example package\n\ta long description\n   with multiple spaces too",
		}),
	}

	out, err := GeneratePackages([]catalog.PublishedPackage{{Package: pkg, Filename: "foo_1.0_amd64.deb"}})
	require.NoError(t, err)

	body := string(out.Contents)
	assert.Contains(t, body, "Description: an example package\n a long description\n with multiple spaces too\n")
	assert.NotContains(t, body, "\n\t")
	assert.NotContains(t, body, "\n   ")
}

func TestGeneratePackagesEmpty(t *testing.T) {
	out, err := GeneratePackages(nil)
	require.NoError(t, err)
	assert.Empty(t, out.Contents)
}
