package ids

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestNewIsSortableAndUnique(t *testing.T) {
	prev := ""
	seen := make(map[string]bool)
	for n := 0; n < 1000; n++ {
		id := New()
		if _, err := ulid.ParseStrict(id); err != nil {
			t.Fatalf("ParseStrict(%q): %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		if id <= prev {
			t.Fatalf("id %s not after %s", id, prev)
		}
		seen[id] = true
		prev = id
	}
}
