// Package digest computes md5, sha1, and sha256 of a byte stream in a
// single pass, the way spec §4.B requires for blob uploads and §4.D
// requires for index generation.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Set holds the three hex-encoded digests spec §3 stores for every
// package and index.
type Set struct {
	MD5    string
	SHA1   string
	SHA256 string
	Size   int64
}

// multiWriter fans writes out to all three hashers plus a running byte
// count, so a single io.Copy computes everything.
type multiWriter struct {
	md5    hash.Hash
	sha1   hash.Hash
	sha256 hash.Hash
	size   int64
}

func newMultiWriter() *multiWriter {
	return &multiWriter{md5: md5.New(), sha1: sha1.New(), sha256: sha256.New()}
}

func (w *multiWriter) Write(p []byte) (int, error) {
	w.md5.Write(p)
	w.sha1.Write(p)
	w.sha256.Write(p)
	w.size += int64(len(p))
	return len(p), nil
}

func (w *multiWriter) sum() Set {
	return Set{
		MD5:    hex.EncodeToString(w.md5.Sum(nil)),
		SHA1:   hex.EncodeToString(w.sha1.Sum(nil)),
		SHA256: hex.EncodeToString(w.sha256.Sum(nil)),
		Size:   w.size,
	}
}

// Stream reads r to completion, returning the digest Set. It is the
// caller's responsibility to also copy the bytes elsewhere (e.g. via
// io.TeeReader) if the payload itself must be preserved.
func Stream(r io.Reader) (Set, error) {
	w := newMultiWriter()
	if _, err := io.Copy(w, r); err != nil {
		return Set{}, err
	}
	return w.sum(), nil
}

// Of returns the digest Set of a byte slice already in memory, used by
// the index generator (§4.D) to digest Packages/Release bytes.
func Of(b []byte) Set {
	w := newMultiWriter()
	_, _ = w.Write(b)
	return w.sum()
}

// TeeStream copies r into dst while computing the digest Set, so the
// caller gets the digests and the persisted payload from a single read
// pass — the "one streaming pass" §4.B requires.
func TeeStream(dst io.Writer, r io.Reader) (Set, error) {
	w := newMultiWriter()
	if _, err := io.Copy(io.MultiWriter(dst, w), r); err != nil {
		return Set{}, err
	}
	return w.sum(), nil
}
