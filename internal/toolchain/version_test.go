package toolchain

import (
	"context"
	"testing"
)

func TestParseVersionOutput(t *testing.T) {
	tests := []struct {
		out  string
		want string
	}{
		{"cargo 1.78.0 (54d8815d0 2024-03-26)\n", "1.78.0"},
		{"rustup 1.27.1 (54dd3d00f 2024-04-24)\ninfo: This is the version for the rustup toolchain manager", "1.27.1"},
		{"GNU strip (GNU Binutils for Ubuntu) 2.42\nCopyright (C) 2024", "2.42.0"},
		{"cargo 1.80.0-nightly (05364cb2f 2024-05-03)", "1.80.0-nightly"},
	}
	for _, tt := range tests {
		v, err := ParseVersionOutput(tt.out)
		if err != nil {
			t.Errorf("ParseVersionOutput(%q) error: %v", tt.out, err)
			continue
		}
		if v.String() != tt.want {
			t.Errorf("ParseVersionOutput(%q) = %s, want %s", tt.out, v, tt.want)
		}
	}
}

func TestParseVersionOutput_NoVersion(t *testing.T) {
	if _, err := ParseVersionOutput("strip: no version here"); err == nil {
		t.Error("expected error")
	}
}

func TestVersion(t *testing.T) {
	r := &fakeRunner{results: map[string]*Result{
		"cargo": {Stdout: "cargo 1.78.0 (54d8815d0 2024-03-26)\n"},
	}}
	v, err := Version(context.Background(), r, "cargo")
	if err != nil {
		t.Fatalf("Version error: %v", err)
	}
	if v.String() != "1.78.0" {
		t.Errorf("Version = %s", v)
	}
	if len(r.calls) != 1 || r.calls[0].Args[0] != "--version" {
		t.Errorf("unexpected calls %+v", r.calls)
	}
}

func TestCheckMinimum(t *testing.T) {
	v, err := ParseVersionOutput("cargo 1.78.0")
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckMinimum(v, "1.70.0"); err != nil {
		t.Errorf("CheckMinimum(1.78.0, 1.70.0) error: %v", err)
	}
	if err := CheckMinimum(v, "v1.78"); err != nil {
		t.Errorf("CheckMinimum(1.78.0, v1.78) error: %v", err)
	}
	if err := CheckMinimum(v, "1.80.0"); err == nil {
		t.Error("CheckMinimum(1.78.0, 1.80.0) expected error")
	}
	if err := CheckMinimum(v, "not-a-version"); err == nil {
		t.Error("expected error for bad minimum")
	}
}
