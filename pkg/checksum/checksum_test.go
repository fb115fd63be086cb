package checksum

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCalculateHash(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	if got := CalculateHash("abc"); got != want {
		t.Errorf("CalculateHash = %s, want %s", got, want)
	}
}

func TestVerifyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "620.json")

	if err := os.WriteFile(path, []byte(`{"app_id":620,"html":"<p>x</p>"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := VerifyFile(path, CalculateHash("<p>x</p>")); err != nil {
		t.Errorf("VerifyFile: %v", err)
	}

	if err := VerifyFile(path, CalculateHash("<p>y</p>")); !errors.Is(err, ErrMarkupMismatch) {
		t.Errorf("err = %v, want ErrMarkupMismatch", err)
	}

	if err := os.WriteFile(path, []byte(`{"app_id":620}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := VerifyFile(path, ""); !errors.Is(err, ErrNoMarkup) {
		t.Errorf("err = %v, want ErrNoMarkup", err)
	}
}

func TestSignVerify(t *testing.T) {
	report := "# Migration report\n\n| a | b |\n"

	signed := Sign(report)
	if !strings.Contains(signed, TagStart) {
		t.Fatalf("signed report has no checksum block: %q", signed)
	}

	if err := Verify(signed); err != nil {
		t.Errorf("Verify: %v", err)
	}

	if Sign(signed) != signed {
		t.Error("re-signing unchanged content should be stable")
	}

	tampered := strings.Replace(signed, "| a |", "| z |", 1)
	if err := Verify(tampered); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("err = %v, want ErrHashMismatch", err)
	}

	if err := Verify(report); !errors.Is(err, ErrNoSignature) {
		t.Errorf("err = %v, want ErrNoSignature", err)
	}
}
