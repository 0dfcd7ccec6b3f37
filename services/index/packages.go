// Package index is repod's deterministic index generator (spec §4.D):
// two pure functions from a catalog snapshot plus a supplied timestamp to
// byte-exact Packages and Release manifests. Nothing here touches the
// database or object storage directly, so the same snapshot always
// produces the same bytes on any replay — the property the publish
// coordinator (services/publish) depends on to detect staleness.
//
// Grounded on attune's apt/packages_index.rs and apt/release.rs render
// logic, with the sort attune left as a TODO specified explicitly here
// per spec §4.D.2.
package index

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/deb"
	"code.deblane.dev/repod/modules/digest"
)

// fixedFieldOrder is the required-fields-first order spec §4.D.3
// specifies for each emitted paragraph.
var fixedFieldOrder = []string{
	"Package", "Source", "Version", "Installed-Size", "Maintainer",
	"Architecture", "Depends", "Recommends", "Conflicts", "Provides",
	"Replaces", "Homepage", "Section", "Priority", "Description",
}

var fixedFieldSet = func() map[string]bool {
	m := make(map[string]bool, len(fixedFieldOrder))
	for _, f := range fixedFieldOrder {
		m[f] = true
	}
	return m
}()

// GeneratedIndex is a rendered Packages or Release body plus its digest.
type GeneratedIndex struct {
	Contents []byte
	Digest   digest.Set
}

// GeneratePackages renders the Packages index for one (component,
// architecture) from its snapshot (spec §4.D.1-6). pkgs must already be
// scoped to a single architecture; the caller (services/publish) is
// responsible for grouping the snapshot by architecture first.
func GeneratePackages(pkgs []catalog.PublishedPackage) (*GeneratedIndex, error) {
	sorted := make([]catalog.PublishedPackage, len(pkgs))
	copy(sorted, pkgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessPackage(sorted[i].Package, sorted[j].Package)
	})

	var buf strings.Builder
	for i, pp := range sorted {
		fields, order, err := loadFields(pp.Package)
		if err != nil {
			return nil, err
		}
		writeParagraph(&buf, fields, order, pp)
		if i < len(sorted)-1 {
			buf.WriteString("\n")
		}
	}

	contents := []byte(buf.String())
	return &GeneratedIndex{Contents: contents, Digest: digest.Of(contents)}, nil
}

func lessPackage(a, b catalog.Package) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if c := deb.CompareVersions(a.Version, b.Version); c != 0 {
		return c < 0
	}
	return a.Architecture < b.Architecture
}

func loadFields(pkg catalog.Package) (map[string]string, []string, error) {
	var fields map[string]string
	if err := json.Unmarshal([]byte(pkg.Paragraph), &fields); err != nil {
		return nil, nil, apierror.Wrap(apierror.Internal, "PARAGRAPH_UNMARSHAL_FAILED",
			fmt.Sprintf("could not decode stored paragraph for package %d", pkg.ID), err)
	}

	remaining := make([]string, 0, len(fields))
	for k := range fields {
		if !fixedFieldSet[k] {
			remaining = append(remaining, k)
		}
	}
	sort.Strings(remaining)
	return fields, remaining, nil
}

func writeParagraph(buf *strings.Builder, fields map[string]string, remaining []string, pp catalog.PublishedPackage) {
	for _, key := range fixedFieldOrder {
		v, ok := fields[key]
		if !ok || v == "" {
			continue
		}
		fmt.Fprintf(buf, "%s: %s\n", key, normalizeContinuations(v))
	}
	for _, key := range remaining {
		fmt.Fprintf(buf, "%s: %s\n", key, normalizeContinuations(fields[key]))
	}

	pkg := pp.Package
	fmt.Fprintf(buf, "Filename: %s\n", pp.Filename)
	fmt.Fprintf(buf, "Size: %d\n", pkg.Size)
	fmt.Fprintf(buf, "MD5sum: %s\n", pkg.MD5)
	fmt.Fprintf(buf, "SHA1: %s\n", pkg.SHA1)
	fmt.Fprintf(buf, "SHA256: %s\n", pkg.SHA256)
}

// normalizeContinuations collapses each continuation line's leading
// whitespace run — whatever the original control file used, tabs or
// several spaces — down to the single space spec §4.D.3 mandates
// ("continuation lines prefixed by one space"). ParseControlParagraph
// preserves the original run verbatim, deferring this normalization to
// emission time.
func normalizeContinuations(v string) string {
	if !strings.Contains(v, "\n") {
		return v
	}
	lines := strings.Split(v, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = " " + strings.TrimLeft(lines[i], " \t")
	}
	return strings.Join(lines, "\n")
}
