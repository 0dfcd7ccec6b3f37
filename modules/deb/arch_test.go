package deb

import "testing"

func TestValidArchitectureAcceptsKnownAndRejectsUnknown(t *testing.T) {
	for _, a := range knownArchitectures {
		if !ValidArchitecture(string(a)) {
			t.Errorf("ValidArchitecture(%q) = false, want true", a)
		}
	}
	if ValidArchitecture("sparc") {
		t.Error("ValidArchitecture(\"sparc\") = true, want false")
	}
	if ValidArchitecture("") {
		t.Error("ValidArchitecture(\"\") = true, want false")
	}
}

func TestArchitectureRankOrdersAsEnumerated(t *testing.T) {
	if ArchitectureRank("all") >= ArchitectureRank("amd64") {
		t.Error("all should rank before amd64")
	}
	if ArchitectureRank("s390x") >= ArchitectureRank("source") {
		t.Error("s390x should rank before source")
	}
}

func TestArchitectureRankUnknownSortsLast(t *testing.T) {
	if got, want := ArchitectureRank("sparc"), len(knownArchitectures); got != want {
		t.Errorf("ArchitectureRank(unknown) = %d, want %d", got, want)
	}
}
