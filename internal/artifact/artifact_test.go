package artifact

import (
	"os"
	"testing"
)

func TestConsume(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, PlanFile)

	content, found, err := Consume(path)
	if err != nil || found || content != "" {
		t.Fatalf("Consume() on missing file = (%q, %v, %v)", content, found, err)
	}

	if err := os.WriteFile(path, []byte("# Plan\n"), 0644); err != nil {
		t.Fatal(err)
	}
	content, found, err = Consume(path)
	if err != nil || !found {
		t.Fatalf("Consume() = (%q, %v, %v)", content, found, err)
	}
	if content != "# Plan\n" {
		t.Errorf("content = %q", content)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact must be removed after it is read")
	}
}

func TestDiscard(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, TestsPlanFile)

	if err := Discard(path); err != nil {
		t.Errorf("Discard() on missing file = %v", err)
	}
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Discard(path); err != nil {
		t.Fatalf("Discard() = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Discard() should remove the file")
	}
}
