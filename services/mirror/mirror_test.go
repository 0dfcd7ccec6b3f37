package mirror

import "testing"

func TestDistDirRootOfBucket(t *testing.T) {
	if got, want := distDir("", "stable"), "dists/stable"; got != want {
		t.Errorf("distDir(%q, %q) = %q, want %q", "", "stable", got, want)
	}
}

func TestDistDirWithTenantPrefix(t *testing.T) {
	if got, want := distDir("t1-abcdef0123456789", "stable"), "t1-abcdef0123456789/dists/stable"; got != want {
		t.Errorf("distDir with prefix = %q, want %q", got, want)
	}
}

func TestComponentArchKeyIsStableAndDistinct(t *testing.T) {
	a := componentArchKey(1, "amd64")
	b := componentArchKey(1, "arm64")
	c := componentArchKey(2, "amd64")
	if a == b || a == c || b == c {
		t.Errorf("componentArchKey collided: a=%q b=%q c=%q", a, b, c)
	}
	if componentArchKey(1, "amd64") != a {
		t.Error("componentArchKey is not deterministic")
	}
}
