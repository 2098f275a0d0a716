package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rv32emu.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesKnownKeys(t *testing.T) {
	path := writeConfig(t, "# comment\nramsize=64M\ndisk=disk.img\ntrace=true\nuart=raw\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RAMSize != 64*1024*1024 {
		t.Errorf("RAMSize = %d, want 64M", cfg.RAMSize)
	}
	if cfg.DiskPath != "disk.img" {
		t.Errorf("DiskPath = %q, want disk.img", cfg.DiskPath)
	}
	if !cfg.Trace {
		t.Error("Trace = false, want true")
	}
	if cfg.UARTMode != "raw" {
		t.Errorf("UARTMode = %q, want raw", cfg.UARTMode)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "bogus=1\n")
	if _, err := Load(path); err == nil {
		t.Error("Load accepted an unrecognized configuration key")
	}
}

func TestParseSizeSuffixes(t *testing.T) {
	cases := map[string]uint32{
		"1024":  1024,
		"4K":    4096,
		"2M":    2 * 1024 * 1024,
		"128m":  128 * 1024 * 1024,
	}
	for input, want := range cases {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestBlankLinesAndCommentsIgnored(t *testing.T) {
	path := writeConfig(t, "\n  \n# just a comment\nramsize=1024 # trailing comment\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RAMSize != 1024 {
		t.Errorf("RAMSize = %d, want 1024", cfg.RAMSize)
	}
}
