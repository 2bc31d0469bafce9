package profile

import (
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	concurrency := 6
	instanceDir := "/srv/instances"
	p := &Profile{
		InstanceDir: &instanceDir,
		Concurrency: &concurrency,
	}
	if err := Save("ci", p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load("ci")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.InstanceDir == nil || *loaded.InstanceDir != instanceDir {
		t.Errorf("InstanceDir = %v, want %q", loaded.InstanceDir, instanceDir)
	}
	if loaded.Concurrency == nil || *loaded.Concurrency != concurrency {
		t.Errorf("Concurrency = %v, want %d", loaded.Concurrency, concurrency)
	}
	if loaded.Verbose != nil {
		t.Errorf("Verbose = %v, want nil (not set)", loaded.Verbose)
	}
}

func TestListAndDelete(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := Save("a", &Profile{}); err != nil {
		t.Fatalf("Save a: %v", err)
	}
	if err := Save("b", &Profile{}); err != nil {
		t.Fatalf("Save b: %v", err)
	}

	names, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("List = %v, want 2 entries", names)
	}

	if err := Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	names, err = List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("List after delete = %v, want [b]", names)
	}
}

func TestListEmptyDirNotExist(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	names, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List = %v, want empty", names)
	}
}
