package vectorindex

import "testing"

func TestPointIDForPreservesUUIDs(t *testing.T) {
	const id = "3fa85f64-5717-4562-b3fc-2c963f66afa6"
	pid, original := pointIDFor(id)
	if original != "" {
		t.Fatalf("expected no remap for a valid uuid, got original=%q", original)
	}
	if pid.GetUuid() != id {
		t.Fatalf("expected uuid passthrough, got %q", pid.GetUuid())
	}
}

func TestPointIDForRemapsNonUUID(t *testing.T) {
	pid, original := pointIDFor("doc-123-chunk-4")
	if original != "doc-123-chunk-4" {
		t.Fatalf("expected original id preserved, got %q", original)
	}
	if pid.GetUuid() == "" {
		t.Fatal("expected a deterministic uuid to be generated")
	}

	pid2, _ := pointIDFor("doc-123-chunk-4")
	if pid.GetUuid() != pid2.GetUuid() {
		t.Fatal("expected remap to be deterministic across calls")
	}
}

func TestDistanceForKnownMetrics(t *testing.T) {
	cases := map[string]bool{
		"cosine":    true,
		"":          true,
		"euclid":    true,
		"euclidean": true,
		"l2":        true,
		"dot":       true,
		"ip":        true,
		"manhattan": true,
	}
	for metric := range cases {
		_ = distanceFor(metric) // must not panic for any known alias
	}
}
