package options

import "testing"

func TestRegistrySetClampsSpinRange(t *testing.T) {
	opts := Default()
	r := NewRegistry(&opts)

	if err := r.Set("Threads", "9999"); err != nil {
		t.Fatalf("Set Threads: %v", err)
	}
	if opts.Threads != 512 {
		t.Fatalf("expected Threads clamped to 512, got %d", opts.Threads)
	}

	if err := r.Set("threads", "0"); err != nil {
		t.Fatalf("Set threads (lowercase): %v", err)
	}
	if opts.Threads != 1 {
		t.Fatalf("expected Threads clamped to 1, got %d", opts.Threads)
	}
}

func TestRegistrySetUnknownOption(t *testing.T) {
	opts := Default()
	r := NewRegistry(&opts)
	if err := r.Set("NoSuchOption", "1"); err == nil {
		t.Fatalf("expected an error for an unknown option name")
	}
}

func TestRegistrySetCheckAndString(t *testing.T) {
	opts := Default()
	r := NewRegistry(&opts)

	if err := r.Set("ProofNumberSearch", "true"); err != nil {
		t.Fatalf("Set ProofNumberSearch: %v", err)
	}
	if !opts.ProofNumberSearch {
		t.Fatalf("expected ProofNumberSearch true")
	}

	if err := r.Set("SyzygyPath", "/tmp/tb"); err != nil {
		t.Fatalf("Set SyzygyPath: %v", err)
	}
	if opts.SyzygyPath != "/tmp/tb" {
		t.Fatalf("expected SyzygyPath /tmp/tb, got %q", opts.SyzygyPath)
	}
}

func TestAnnounceCoversEveryOption(t *testing.T) {
	opts := Default()
	r := NewRegistry(&opts)
	lines := r.Announce()
	if len(lines) != 12 {
		t.Fatalf("expected 12 announced options, got %d", len(lines))
	}
}
