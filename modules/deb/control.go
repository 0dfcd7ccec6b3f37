package deb

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"code.deblane.dev/repod/modules/apierror"
)

// requiredFields are the control fields spec §4.A requires be present;
// their absence fails parsing with MalformedPackage.
var requiredFields = []string{"Package", "Version", "Architecture", "Maintainer", "Description"}

// Paragraph is a parsed RFC-822-style control paragraph: a mapping of
// field name to value, plus the original field order so the paragraph can
// be re-serialized verbatim (§4.A) even though index generation (§4.D)
// imposes its own canonical order instead of using this one.
type Paragraph struct {
	Fields   map[string]string
	Order    []string
}

// Get returns a field's value and whether it was present.
func (p *Paragraph) Get(key string) (string, bool) {
	v, ok := p.Fields[key]
	return v, ok
}

// ParseControlParagraph parses a single RFC-822-style Debian control
// paragraph: "Key: value" pairs, with continuation lines (starting with a
// space or tab) folded into the previous field's value. Multi-line values
// keep their internal newlines and leading-continuation-space intact so
// they can be re-emitted byte-for-byte (§4.D.3's "continuation lines
// prefixed by one space" is applied at emission time, not here).
func ParseControlParagraph(r io.Reader) (*Paragraph, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	p := &Paragraph{Fields: make(map[string]string)}
	var currentKey string

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			// A blank line ends the paragraph; a .deb control file has
			// exactly one paragraph, so treat this as end-of-input.
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if currentKey == "" {
				return nil, apierror.New(apierror.MalformedPackage, "CONTROL_CONTINUATION_WITHOUT_FIELD",
					"control file has a continuation line before any field")
			}
			p.Fields[currentKey] = p.Fields[currentKey] + "\n" + line
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			return nil, apierror.New(apierror.MalformedPackage, "CONTROL_MALFORMED_LINE",
				fmt.Sprintf("control file line is not a folded continuation or a Key: value pair: %q", line))
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if _, exists := p.Fields[key]; !exists {
			p.Order = append(p.Order, key)
		}
		p.Fields[key] = value
		currentKey = key
	}
	if err := scanner.Err(); err != nil {
		return nil, apierror.Wrap(apierror.MalformedPackage, "CONTROL_READ_FAILED", "failed to read control file", err)
	}

	for _, field := range requiredFields {
		if _, ok := p.Fields[field]; !ok {
			return nil, apierror.New(apierror.MalformedPackage, "CONTROL_MISSING_FIELD",
				fmt.Sprintf("control file is missing required field %q", field))
		}
	}
	if !ValidArchitecture(p.Fields["Architecture"]) {
		return nil, apierror.New(apierror.MalformedPackage, "CONTROL_INVALID_ARCHITECTURE",
			fmt.Sprintf("control file has unrecognized architecture %q", p.Fields["Architecture"]))
	}

	return p, nil
}
