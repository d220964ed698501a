package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if parts := strings.Split(id, "-"); len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id == prev {
			t.Fatalf("UUIDv7: duplicate at iteration %d", i)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("rs_", Default)()
	if !strings.HasPrefix(id, "rs_") {
		t.Fatalf("Prefixed: got %q", id)
	}
	if len(id) != len("rs_")+36 {
		t.Fatalf("Prefixed: unexpected length %d", len(id))
	}
}
