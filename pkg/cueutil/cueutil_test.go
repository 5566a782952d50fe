// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSchema = `
#Thing: {
	name:    string
	enabled: bool | *false
	tags?: [...string]
}
`

type thing struct {
	Name    string   `json:"name"`
	Enabled bool     `json:"enabled"`
	Tags    []string `json:"tags,omitempty"`
}

func TestDecodeAppliesDefaults(t *testing.T) {
	t.Parallel()

	got, err := Decode[thing]([]byte(testSchema), []byte(`name: "core"`), "#Thing")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.Name != "core" || got.Enabled {
		t.Errorf("Decode() = %+v, want name=core enabled=false", got)
	}
}

func TestDecodeReportsFieldPath(t *testing.T) {
	t.Parallel()

	_, err := Decode[thing]([]byte(testSchema), []byte(`name: 3`), "#Thing", WithFilename("thing.cue"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "thing.cue") || !strings.Contains(err.Error(), "name") {
		t.Errorf("error should mention file and field, got: %v", err)
	}
}

func TestDecodeRejectsOversizedInput(t *testing.T) {
	t.Parallel()

	_, err := Decode[thing]([]byte(testSchema), []byte(`name: "abcdef"`), "#Thing", WithMaxFileSize(4))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestDecodeFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "thing.cue")
	if err := os.WriteFile(path, []byte("name: \"x\"\ntags: [\"a\", \"b\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeFile[thing]([]byte(testSchema), path, "#Thing")
	if err != nil {
		t.Fatalf("DecodeFile() error: %v", err)
	}
	if len(got.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", got.Tags)
	}

	if _, err := DecodeFile[thing]([]byte(testSchema), filepath.Join(t.TempDir(), "missing.cue"), "#Thing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	out, err := Encode(thing{Name: "core", Enabled: true})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := Decode[thing]([]byte(testSchema), out, "#Thing")
	if err != nil {
		t.Fatalf("Decode(Encode()) error: %v\n%s", err, out)
	}
	if got.Name != "core" || !got.Enabled {
		t.Errorf("round trip = %+v", got)
	}
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "x.cue") != nil {
		t.Error("FormatError(nil) should be nil")
	}
	err := FormatError(errors.New("boom"), "x.cue")
	if err == nil || err.Error() != "x.cue: boom" {
		t.Errorf("FormatError() = %v", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"name"}, "name"},
		{[]string{"modules", "0", "dependencies", "2", "scope"}, "modules[0].dependencies[2].scope"},
		{[]string{"0"}, "0"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
