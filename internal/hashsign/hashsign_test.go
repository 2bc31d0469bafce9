package hashsign

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.bin")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestSHA256File(t *testing.T) {
	path := writeTemp(t, "hello world")
	got, err := SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File: %v", err)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestSHA1File(t *testing.T) {
	path := writeTemp(t, "hello world")
	got, err := SHA1File(path)
	if err != nil {
		t.Fatalf("SHA1File: %v", err)
	}
	want := "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMD5File(t *testing.T) {
	path := writeTemp(t, "hello world")
	got, err := MD5File(path)
	if err != nil {
		t.Fatalf("MD5File: %v", err)
	}
	want := "5eb63bbbe01eeed093cb22bb8f5acdc3"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := SHA256File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCanonicalSortsKeys(t *testing.T) {
	m := map[string]string{
		"mods/zeta.jar":  "h1",
		"mods/alpha.jar": "h2",
	}
	got := Canonical(m)
	want := "mods/alpha.jar:h2\nmods/zeta.jar:h1\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCanonicalEmptyMap(t *testing.T) {
	if got := Canonical(nil); got != "" {
		t.Errorf("got %q, want empty string", got)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	m := map[string]string{"mods/foo.jar": "abc123"}
	sig := Sign(m)

	if !Verify(m, sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedMap(t *testing.T) {
	m := map[string]string{"mods/foo.jar": "abc123"}
	sig := Sign(m)

	tampered := map[string]string{"mods/foo.jar": "different"}
	if Verify(tampered, sig) {
		t.Fatal("expected signature verification to fail on tampered map")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	m := map[string]string{"mods/foo.jar": "abc123"}
	sig := Sign(m)

	tamperedSig := sig[:len(sig)-2] + "00"
	if Verify(m, tamperedSig) {
		t.Fatal("expected signature verification to fail on tampered signature")
	}
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	m := map[string]string{"mods/foo.jar": "abc123"}
	if Verify(m, "not-hex") {
		t.Fatal("expected malformed signature to fail verification")
	}
}

func TestSignEmptyMapIsLegal(t *testing.T) {
	sig := Sign(nil)
	if !Verify(nil, sig) {
		t.Fatal("expected empty-map signature to verify")
	}
}
