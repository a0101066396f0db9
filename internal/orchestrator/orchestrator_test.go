package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestShortName(t *testing.T) {
	cases := []struct {
		stack, rendered, want string
	}{
		{"crl-demo-alice", "crl-demo-alice_wireguard.1.abc123xyz", "wireguard"},
		{"crl-demo-alice", "crl-demo-alice_chall1.1.def456uvw", "chall1"},
	}
	for _, c := range cases {
		got := shortName(c.stack, c.rendered)
		if got != c.want {
			t.Errorf("shortName(%q, %q) = %q; want %q", c.stack, c.rendered, got, c.want)
		}
	}
}

func TestListStackTasksParsesUpFlag(t *testing.T) {
	docker := filepath.Join(t.TempDir(), "docker")
	script := `#!/bin/sh
printf '%s\n' '{"Name":"crl-demo-alice_wireguard.1.abc123xyz","ID":"abc123xyz","DesiredState":"Running","CurrentState":"Running 2 minutes ago","Error":""}'
`
	if err := os.WriteFile(docker, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	a := &Adapter{Docker: docker}
	tasks := a.ListStackTasks(context.Background(), "crl-demo-alice")
	if len(tasks) != 1 {
		t.Fatalf("ListStackTasks = %v; want exactly one task", tasks)
	}
	if tasks[0].ServiceName != "wireguard" {
		t.Fatalf("ServiceName = %q; want wireguard", tasks[0].ServiceName)
	}
	if !tasks[0].Up {
		t.Fatal("expected synthetic entry to compute up=true")
	}
}

func TestAdapterNoDockerBinary(t *testing.T) {
	a := &Adapter{Docker: "crld-orchestrator-test-binary-that-does-not-exist"}
	if tasks := a.ListStackTasks(context.Background(), "crl-demo-alice"); tasks != nil {
		t.Fatalf("ListStackTasks with missing binary = %v; want nil", tasks)
	}
}
