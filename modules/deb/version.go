package deb

import "strings"

// CompareVersions implements dpkg's version comparison algorithm
// (epoch:upstream-version-debian-revision, mixed alpha/digit run
// comparison with tilde sorting before everything, including the empty
// string). It returns -1, 0, or 1 the way strings.Compare does.
//
// A cruder split-on-last-hyphen-then-numeric-compare approach appears
// elsewhere in the corpus; the tie-break chain here (spec §4.D.2) is
// itself part of a byte-exact, replay-verified output, so the full
// algorithm is implemented rather than an approximation.
func CompareVersions(a, b string) int {
	ea, ua, ra := splitVersion(a)
	eb, ub, rb := splitVersion(b)

	if c := compareEpoch(ea, eb); c != 0 {
		return c
	}
	if c := compareVersionPart(ua, ub); c != 0 {
		return c
	}
	return compareVersionPart(ra, rb)
}

func splitVersion(v string) (epoch, upstream, revision string) {
	if i := strings.IndexByte(v, ':'); i >= 0 {
		epoch = v[:i]
		v = v[i+1:]
	} else {
		epoch = "0"
	}
	if i := strings.LastIndexByte(v, '-'); i >= 0 {
		return epoch, v[:i], v[i+1:]
	}
	return epoch, v, "0"
}

func compareEpoch(a, b string) int {
	na, nb := parseUint(a), parseUint(b)
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	default:
		return 0
	}
}

func parseUint(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// compareVersionPart compares one of (upstream, revision) per dpkg's
// alternating non-digit/digit run algorithm.
func compareVersionPart(a, b string) int {
	for len(a) > 0 || len(b) > 0 {
		// Compare a run of non-digit characters lexically, using the
		// '~' ordering rule: '~' sorts before everything, including the
		// end of string.
		na, ra := lexRun(a)
		nb, rb := lexRun(b)
		if c := compareLexRuns(na, nb); c != 0 {
			return c
		}
		a, b = ra, rb

		// Compare a run of digit characters numerically.
		da, ra2 := digitRun(a)
		db, rb2 := digitRun(b)
		ia, ib := parseUint(da), parseUint(db)
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		a, b = ra2, rb2
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// lexRun consumes a maximal leading run of non-digit characters.
func lexRun(s string) (run, rest string) {
	i := 0
	for i < len(s) && !isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// digitRun consumes a maximal leading run of digit characters.
func digitRun(s string) (run, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// compareLexRuns compares two non-digit runs character by character using
// dpkg's ordering: '~' sorts before the empty string, which sorts before
// everything else; letters sort before non-letters at the same position.
func compareLexRuns(a, b string) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if ca == cb {
			continue
		}
		if order(ca) < order(cb) {
			return -1
		}
		return 1
	}
	return 0
}

// order maps a byte (or 0 for end-of-run) to dpkg's comparison weight:
// '~' is lowest, then end-of-string, then letters (before non-letters at
// the same ASCII value), then everything else in ASCII order.
func order(c byte) int {
	switch {
	case c == '~':
		return -1
	case c == 0:
		return 0
	case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		return int(c)
	default:
		return int(c) + 256
	}
}
