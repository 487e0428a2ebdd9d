package telemetry

import "testing"

func TestNewSessionID_Format(t *testing.T) {
	id := NewSessionID()
	if len(id) != 12 {
		t.Fatalf("len = %d, want 12", len(id))
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Fatalf("id %q contains non-hex character %q", id, c)
		}
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate session id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}
