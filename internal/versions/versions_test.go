package versions

import (
	"errors"
	"testing"
)

func TestGetKnownVersion(t *testing.T) {
	d, err := Get("3.6")
	if err != nil {
		t.Fatalf("Get(3.6): %v", err)
	}
	if d.Type != TypeCPython {
		t.Fatalf("expected cpython, got %s", d.Type)
	}
	if d.MicroString() != "3.6.3" {
		t.Fatalf("expected 3.6.3, got %s", d.MicroString())
	}
	if d.Is32Bit() {
		t.Fatalf("3.6 should not be 32-bit")
	}
}

func TestGetUnknownVersion(t *testing.T) {
	_, err := Get("9.9")
	if !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("expected ErrUnknownVersion, got %v", err)
	}
}

func TestGetRejectsBadNames(t *testing.T) {
	if _, err := Get(""); err == nil {
		t.Fatalf("expected error for empty name")
	}
	for _, name := range []string{"latest", "3", "3.6.3", "3.6-64", "../3.6"} {
		if _, err := Get(name); !errors.Is(err, ErrUnknownVersion) {
			t.Fatalf("Get(%q): expected ErrUnknownVersion, got %v", name, err)
		}
	}
}

func TestAllOrdering(t *testing.T) {
	all, err := All()
	if err != nil {
		t.Fatalf("All(): %v", err)
	}
	if len(all) == 0 {
		t.Fatalf("expected definitions")
	}
	for i := 1; i < len(all); i++ {
		c := Compare(all[i-1].VersionInfo, all[i].VersionInfo)
		if c < 0 {
			t.Fatalf("definitions out of order: %s before %s", all[i-1].Name, all[i].Name)
		}
		if c == 0 && len(all[i-1].Name) > len(all[i].Name) {
			t.Fatalf("shorter name should sort first: %s before %s", all[i-1].Name, all[i].Name)
		}
	}
}

func TestLatestNamePrefersShortName(t *testing.T) {
	name, err := LatestName()
	if err != nil {
		t.Fatalf("LatestName(): %v", err)
	}
	if name != "3.6" {
		t.Fatalf("expected 3.6, got %s", name)
	}
}

func TestInstallerAssetSelection(t *testing.T) {
	msi, err := Get("2.7")
	if err != nil {
		t.Fatalf("Get(2.7): %v", err)
	}
	a, err := msi.InstallerAsset("amd64")
	if err != nil {
		t.Fatalf("InstallerAsset(amd64): %v", err)
	}
	if a != msi.AMD64 {
		t.Fatalf("expected amd64 asset")
	}
	a, err = msi.InstallerAsset("win32")
	if err != nil {
		t.Fatalf("InstallerAsset(win32): %v", err)
	}
	if a != msi.X86 {
		t.Fatalf("expected x86 asset")
	}

	thirtyTwo, err := Get("2.7-32")
	if err != nil {
		t.Fatalf("Get(2.7-32): %v", err)
	}
	a, err = thirtyTwo.InstallerAsset("amd64")
	if err != nil {
		t.Fatalf("InstallerAsset for -32 name: %v", err)
	}
	if a != thirtyTwo.X86 {
		t.Fatalf("-32 name must pin the x86 asset")
	}
}

func TestCompare(t *testing.T) {
	if Compare([]int{3, 6, 3}, []int{3, 6}) <= 0 {
		t.Fatalf("3.6.3 should compare above 3.6")
	}
	if Compare([]int{3, 5, 4}, []int{3, 6, 3}) >= 0 {
		t.Fatalf("3.5.4 should compare below 3.6.3")
	}
	if Compare([]int{2, 7, 14}, []int{2, 7, 14}) != 0 {
		t.Fatalf("equal versions should compare equal")
	}
}
