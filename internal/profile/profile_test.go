package profile

import "testing"

func TestLoadValidProfiles(t *testing.T) {
	data := []byte(`
thumbnails:
  level: 9
  wbits: 15
logs:
  level: 6
  wbits: 15
  gzip_name: "app.log"
`)
	profiles, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	thumbs, ok := profiles["thumbnails"]
	if !ok {
		t.Fatal("missing 'thumbnails' profile")
	}
	if thumbs.Level != 9 || thumbs.WBits != 15 {
		t.Fatalf("thumbnails = %+v, want level 9 wbits 15", thumbs)
	}
	logs := profiles["logs"]
	if logs.GzipName != "app.log" {
		t.Fatalf("logs.GzipName = %q, want %q", logs.GzipName, "app.log")
	}
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	data := []byte("bad:\n  level: 11\n  wbits: 15\n")
	_, err := Load(data)
	if err == nil {
		t.Fatal("expected an error for level 11")
	}
	if _, ok := err.(*ErrInvalidProfile); !ok {
		t.Fatalf("err = %v (%T), want *ErrInvalidProfile", err, err)
	}
}

func TestLoadRejectsInvalidWBits(t *testing.T) {
	data := []byte("bad:\n  level: 6\n  wbits: 20\n")
	_, err := Load(data)
	if err == nil {
		t.Fatal("expected an error for wbits 20")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	data := []byte("not: valid: yaml: [")
	if _, err := Load(data); err == nil {
		t.Fatal("expected a YAML parse error")
	}
}

func TestGzipHeaderDefaultsToUnknownOS(t *testing.T) {
	p := Profile{Level: 6, WBits: 15}
	h := p.GzipHeader()
	if h.OS != 255 {
		t.Fatalf("GzipHeader().OS = %v, want 255 (unknown)", h.OS)
	}
}

func TestGzipHeaderAppliesOverrides(t *testing.T) {
	os := 3 // Unix
	p := Profile{Level: 6, WBits: 15, GzipOS: &os, GzipName: "x.bin"}
	h := p.GzipHeader()
	if h.OS != 3 {
		t.Fatalf("GzipHeader().OS = %v, want 3", h.OS)
	}
	if h.Name != "x.bin" {
		t.Fatalf("GzipHeader().Name = %q, want %q", h.Name, "x.bin")
	}
}

func TestGzipHeaderIgnoresInvalidOSOverride(t *testing.T) {
	bad := 200 // reserved range
	p := Profile{Level: 6, WBits: 15, GzipOS: &bad}
	h := p.GzipHeader()
	if h.OS != 255 {
		t.Fatalf("GzipHeader().OS = %v, want 255 (falls back to unknown for an invalid override)", h.OS)
	}
}
