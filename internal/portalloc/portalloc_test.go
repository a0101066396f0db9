package portalloc

import "testing"

func TestAllocateNoBlacklist(t *testing.T) {
	port, err := Allocate(nil)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if port <= 0 || port > 65535 {
		t.Fatalf("Allocate returned out-of-range port %d", port)
	}
}

func TestAllocateAvoidsBlacklistedPort(t *testing.T) {
	first, err := Allocate(nil)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	blacklist := map[int]struct{}{first: {}}
	second, err := Allocate(blacklist)
	if err != nil {
		t.Fatalf("Allocate with blacklist failed: %v", err)
	}
	if second == first {
		t.Fatalf("Allocate returned blacklisted port %d again", first)
	}
}

func TestAllocateExhaustedBlacklist(t *testing.T) {
	blacklist := make(map[int]struct{})
	for p := 0; p <= 65535; p++ {
		blacklist[p] = struct{}{}
	}
	if _, err := Allocate(blacklist); err == nil {
		t.Fatal("expected Allocate to fail against an all-ports blacklist")
	}
}
