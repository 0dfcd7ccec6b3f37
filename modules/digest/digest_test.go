package digest

import (
	"bytes"
	"strings"
	"testing"
)

const emptyMD5 = "d41d8cd98f00b204e9800998ecf8427e"
const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestOfMatchesKnownEmptyDigests(t *testing.T) {
	set := Of(nil)
	if set.MD5 != emptyMD5 {
		t.Errorf("MD5 = %q, want %q", set.MD5, emptyMD5)
	}
	if set.SHA256 != emptySHA256 {
		t.Errorf("SHA256 = %q, want %q", set.SHA256, emptySHA256)
	}
	if set.Size != 0 {
		t.Errorf("Size = %d, want 0", set.Size)
	}
}

func TestStreamAndOfAgree(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	fromOf := Of(payload)
	fromStream, err := Stream(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if fromOf != fromStream {
		t.Errorf("Of and Stream disagree: %+v vs %+v", fromOf, fromStream)
	}
}

func TestTeeStreamCopiesAndDigestsInOnePass(t *testing.T) {
	payload := "widget contents"
	var dst bytes.Buffer
	set, err := TeeStream(&dst, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("TeeStream: %v", err)
	}
	if dst.String() != payload {
		t.Errorf("copied payload = %q, want %q", dst.String(), payload)
	}
	if set != Of([]byte(payload)) {
		t.Errorf("TeeStream digest = %+v, want %+v", set, Of([]byte(payload)))
	}
}

func TestDistinctPayloadsProduceDistinctDigests(t *testing.T) {
	a := Of([]byte("payload a"))
	b := Of([]byte("payload b"))
	if a == b {
		t.Error("distinct payloads produced identical digest sets")
	}
}
