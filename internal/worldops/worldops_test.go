package worldops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cuemby/crld/internal/configstore"
)

func TestCreateFailsWithoutDescriptor(t *testing.T) {
	root := t.TempDir()
	store := configstore.New(root)
	ops := New(store)

	if ok := ops.Create(context.Background(), "demo", "alice"); ok {
		t.Fatal("Create succeeded despite missing descriptor")
	}
}

func TestCreateFailsWithoutDockerBinary(t *testing.T) {
	root := t.TempDir()
	store := configstore.New(root)
	dir := filepath.Join(root, "Events", "demo", "alice")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte("services: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ops := New(store)
	ops.Docker = "crld-worldops-test-binary-that-does-not-exist"

	if ok := ops.Create(context.Background(), "demo", "alice"); ok {
		t.Fatal("Create succeeded despite missing docker binary")
	}
}

func TestStackName(t *testing.T) {
	ops := New(configstore.New("/opt/crl"))
	if got, want := ops.stackName("demo", "alice"), "crl-demo-alice"; got != want {
		t.Fatalf("stackName = %q; want %q", got, want)
	}
}

func TestCreateSeedsWorldDescriptorFromEvent(t *testing.T) {
	root := t.TempDir()
	store := configstore.New(root)
	eventDir := filepath.Join(root, "Events", "demo")
	if err := os.MkdirAll(eventDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(eventDir, "docker-compose.yml"), []byte("services: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ops := New(store)
	ops.Docker = "crld-worldops-test-binary-that-does-not-exist"

	// deploy still fails (no docker binary), but the world descriptor and
	// peer config must have been written before that point is reached.
	if ok := ops.Create(context.Background(), "demo", "alice"); ok {
		t.Fatal("Create succeeded despite missing docker binary")
	}

	worldDescriptor := store.WorldDescriptorPath("demo", "alice")
	content, err := os.ReadFile(worldDescriptor)
	if err != nil {
		t.Fatalf("world descriptor was not seeded: %v", err)
	}
	if string(content) != "services: {}\n" {
		t.Fatalf("seeded descriptor content = %q", content)
	}

	if !store.PeerConfigExists("demo", "alice") {
		t.Fatal("peer config was not written")
	}
}

func TestCreateFailsWhenEventDescriptorMissingButWorldDescriptorMissingToo(t *testing.T) {
	root := t.TempDir()
	store := configstore.New(root)
	ops := New(store)

	if ok := ops.Create(context.Background(), "demo", "alice"); ok {
		t.Fatal("Create succeeded despite no event or world descriptor on disk")
	}
	if store.PeerConfigExists("demo", "alice") {
		t.Fatal("peer config should not be written when seeding fails")
	}
}

func TestWritePeerConfigIsIdempotent(t *testing.T) {
	root := t.TempDir()
	store := configstore.New(root)
	ops := New(store)

	if err := ops.writePeerConfig("demo", "alice"); err != nil {
		t.Fatalf("first writePeerConfig: %v", err)
	}
	first, ok := store.ReadPeerConfig("demo", "alice")
	if !ok {
		t.Fatal("peer config was not written")
	}

	if err := ops.writePeerConfig("demo", "alice"); err != nil {
		t.Fatalf("second writePeerConfig: %v", err)
	}
	second, ok := store.ReadPeerConfig("demo", "alice")
	if !ok {
		t.Fatal("peer config missing after second write")
	}

	if first != second {
		t.Fatal("writePeerConfig regenerated an existing peer config")
	}
}

func TestPeerAddressStableAndWithinVPNRange(t *testing.T) {
	a1 := peerAddress("demo", "alice")
	a2 := peerAddress("demo", "alice")
	if a1 != a2 {
		t.Fatalf("peerAddress is not stable: %q != %q", a1, a2)
	}

	b := peerAddress("demo", "bob")
	if a1 == b {
		t.Fatal("peerAddress collided for two different users")
	}

	if !strings.HasPrefix(a1, "10.") {
		t.Fatalf("peerAddress %q is not in the 10.0.0.0/8 range", a1)
	}
}
