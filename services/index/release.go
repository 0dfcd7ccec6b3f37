package index

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"code.deblane.dev/repod/modules/deb"
	"code.deblane.dev/repod/modules/digest"
)

// ComponentArchitectureDigest is one entry the Release manifest's
// MD5Sum/SHA1/SHA256 sections list: the digest of one component's
// per-architecture Packages index.
type ComponentArchitectureDigest struct {
	Component    string
	Architecture string
	Digest       digest.Set
}

// ReleaseInput is everything GenerateRelease needs to render byte-exact
// output (spec §4.D: "no dependence on ... current wallclock" — Now is a
// supplied input, not read from the clock here).
type ReleaseInput struct {
	Origin      string
	Label       string
	Suite       string
	Codename    string
	Version     string
	Description string
	Now         time.Time

	Components   []string
	Digests      []ComponentArchitectureDigest
}

// GenerateRelease renders a Release manifest (spec §4.D.7-10).
func GenerateRelease(in ReleaseInput) *GeneratedIndex {
	archSet := map[string]bool{}
	for _, d := range in.Digests {
		archSet[d.Architecture] = true
	}
	architectures := make([]string, 0, len(archSet))
	for a := range archSet {
		architectures = append(architectures, a)
	}
	sort.Slice(architectures, func(i, j int) bool {
		return deb.ArchitectureRank(architectures[i]) < deb.ArchitectureRank(architectures[j])
	})

	components := append([]string(nil), in.Components...)
	sort.Strings(components)

	entries := append([]ComponentArchitectureDigest(nil), in.Digests...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Component != entries[j].Component {
			return entries[i].Component < entries[j].Component
		}
		return deb.ArchitectureRank(entries[i].Architecture) < deb.ArchitectureRank(entries[j].Architecture)
	})

	var buf strings.Builder
	writeHeaderField(&buf, "Origin", in.Origin)
	writeHeaderField(&buf, "Label", in.Label)
	writeHeaderField(&buf, "Suite", in.Suite)
	writeHeaderField(&buf, "Codename", in.Codename)
	writeHeaderField(&buf, "Version", in.Version)
	writeHeaderField(&buf, "Date", in.Now.UTC().Format(time.RFC1123))
	if len(architectures) > 0 {
		writeHeaderField(&buf, "Architectures", strings.Join(architectures, " "))
	}
	if len(components) > 0 {
		writeHeaderField(&buf, "Components", strings.Join(components, " "))
	}
	writeHeaderField(&buf, "Description", in.Description)
	buf.WriteString("Acquire-By-Hash: yes\n")

	writeDigestSection(&buf, "MD5Sum", entries, func(d digest.Set) string { return d.MD5 })
	writeDigestSection(&buf, "SHA1", entries, func(d digest.Set) string { return d.SHA1 })
	writeDigestSection(&buf, "SHA256", entries, func(d digest.Set) string { return d.SHA256 })

	contents := []byte(buf.String())
	return &GeneratedIndex{Contents: contents, Digest: digest.Of(contents)}
}

func writeHeaderField(buf *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(buf, "%s: %s\n", key, value)
}

func writeDigestSection(buf *strings.Builder, name string, entries []ComponentArchitectureDigest, pick func(digest.Set) string) {
	fmt.Fprintf(buf, "%s:\n", name)
	for _, e := range entries {
		fmt.Fprintf(buf, "  %s %d %s/binary-%s/Packages\n", pick(e.Digest), e.Digest.Size, e.Component, e.Architecture)
	}
}

// ByHashPaths returns the by-hash sibling object keys the mirror
// (services/mirror) must upload beneath a component/architecture
// directory (spec §4.D "By-hash layout").
func ByHashPaths(componentArchDir string, d digest.Set) map[string]string {
	return map[string]string{
		"SHA256": componentArchDir + "/by-hash/SHA256/" + d.SHA256,
		"SHA1":   componentArchDir + "/by-hash/SHA1/" + d.SHA1,
		"MD5Sum": componentArchDir + "/by-hash/MD5Sum/" + d.MD5,
	}
}
