package deb

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"code.deblane.dev/repod/modules/apierror"
)

// Metadata is the canonical, denormalized subset of control fields spec §3
// stores alongside the raw paragraph, plus the relationship strings kept
// verbatim rather than split into lists (the index generator re-emits
// them as opaque strings; nothing in this system parses dependency
// expressions).
type Metadata struct {
	Package      string
	Version      string
	Architecture string
	Maintainer   string
	Description  string

	Priority      string
	Section       string
	InstalledSize string
	Homepage      string

	Depends    string
	Recommends string
	Conflicts  string
	Provides   string
	Replaces   string
	Source     string
}

// ParsedPackage is the result of extracting and parsing a .deb's control
// member (§4.A): the raw paragraph plus canonical fields.
type ParsedPackage struct {
	Paragraph *Paragraph
	Metadata  Metadata
}

// ParsePackage reads a .deb archive (an `ar` archive containing at least
// `debian-binary`, `control.tar.*`, and `data.tar.*`) and extracts the
// parsed control paragraph. Only the control member is read; the payload
// (`data.tar.*`) is never inspected here — the blob store (§4.B) digests
// the whole file separately.
func ParsePackage(r io.Reader) (*ParsedPackage, error) {
	arReader := ar.NewReader(r)

	var controlBytes []byte
	controlMembersSeen := 0

	for {
		header, err := arReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apierror.Wrap(apierror.MalformedPackage, "DEB_NOT_AN_AR_ARCHIVE",
				"could not read .deb as an ar archive", err)
		}

		name := strings.TrimSpace(header.Name)
		if !strings.HasPrefix(name, "control.tar") {
			continue
		}
		controlMembersSeen++
		if controlMembersSeen > 1 {
			return nil, apierror.New(apierror.MalformedPackage, "DEB_MULTIPLE_CONTROL_MEMBERS",
				"more than one control.tar member found in .deb archive")
		}

		body, err := decompressMember(name, arReader)
		if err != nil {
			return nil, err
		}

		controlBytes, err = extractControlFile(body)
		if err != nil {
			return nil, err
		}
	}

	if controlMembersSeen == 0 {
		return nil, apierror.New(apierror.MalformedPackage, "DEB_MISSING_CONTROL_MEMBER",
			"no control.tar member found in .deb archive")
	}
	if controlBytes == nil {
		return nil, apierror.New(apierror.MalformedPackage, "DEB_MISSING_CONTROL_FILE",
			"control.tar member did not contain a control file")
	}

	paragraph, err := ParseControlParagraph(bytes.NewReader(controlBytes))
	if err != nil {
		return nil, err
	}

	return &ParsedPackage{
		Paragraph: paragraph,
		Metadata:  canonicalize(paragraph),
	}, nil
}

func canonicalize(p *Paragraph) Metadata {
	get := func(k string) string { v, _ := p.Get(k); return v }
	return Metadata{
		Package:       get("Package"),
		Version:       get("Version"),
		Architecture:  get("Architecture"),
		Maintainer:    get("Maintainer"),
		Description:   get("Description"),
		Priority:      get("Priority"),
		Section:       get("Section"),
		InstalledSize: get("Installed-Size"),
		Homepage:      get("Homepage"),
		Depends:       get("Depends"),
		Recommends:    get("Recommends"),
		Conflicts:     get("Conflicts"),
		Provides:      get("Provides"),
		Replaces:      get("Replaces"),
		Source:        get("Source"),
	}
}

// decompressMember returns a reader over the decompressed tar stream of
// an ar member named e.g. "control.tar.gz", "control.tar.xz",
// "control.tar.zst", or "control.tar.bz2" (uncompressed "control.tar" is
// also legal).
func decompressMember(name string, r io.Reader) (io.Reader, error) {
	switch {
	case strings.HasSuffix(name, ".tar"):
		return r, nil
	case strings.HasSuffix(name, ".tar.gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, apierror.Wrap(apierror.MalformedPackage, "DEB_BAD_GZIP", "could not decompress gzip control member", err)
		}
		return gz, nil
	case strings.HasSuffix(name, ".tar.xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, apierror.Wrap(apierror.MalformedPackage, "DEB_BAD_XZ", "could not decompress xz control member", err)
		}
		return xr, nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, apierror.Wrap(apierror.MalformedPackage, "DEB_BAD_ZSTD", "could not decompress zstd control member", err)
		}
		return zr.IOReadCloser(), nil
	case strings.HasSuffix(name, ".tar.bz2"):
		// No third-party bzip2 reader improves on the standard library's
		// read-only decompressor here; see DESIGN.md.
		return bzip2.NewReader(r), nil
	default:
		return nil, apierror.New(apierror.MalformedPackage, "DEB_UNKNOWN_CONTROL_COMPRESSION",
			fmt.Sprintf("unrecognized control member compression: %q", name))
	}
}

// extractControlFile walks a decompressed control.tar stream looking for
// the "control" member (top-level or "./control").
func extractControlFile(r io.Reader) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, apierror.Wrap(apierror.MalformedPackage, "DEB_BAD_CONTROL_TAR", "could not read control.tar member", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if path.Base(path.Clean(header.Name)) != "control" {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, apierror.Wrap(apierror.MalformedPackage, "DEB_BAD_CONTROL_TAR", "could not read control file contents", err)
		}
		return buf.Bytes(), nil
	}
}
