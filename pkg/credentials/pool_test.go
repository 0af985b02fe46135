package credentials

import "testing"

func TestAPIKeyPoolRoundRobin(t *testing.T) {
	p := NewAPIKeyPool(map[string]string{"a": "key-a", "b": "key-b"})

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		id, key, ok := p.Select()
		if !ok {
			t.Fatalf("expected a key on iteration %d", i)
		}
		if key == "" {
			t.Fatalf("empty key for id %q", id)
		}
		seen[id] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected both keys to be selected over four rounds, got %v", seen)
	}
}

func TestAPIKeyPoolSkipsUnhealthy(t *testing.T) {
	p := NewAPIKeyPool(map[string]string{"a": "key-a", "b": "key-b"})
	p.MarkUnhealthy("a")

	for i := 0; i < 4; i++ {
		id, _, ok := p.Select()
		if !ok {
			t.Fatalf("expected a healthy key on iteration %d", i)
		}
		if id == "a" {
			t.Fatalf("unhealthy key was selected")
		}
	}

	p.MarkHealthy("a")
	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		id, _, _ := p.Select()
		seen[id] = true
	}
	if !seen["a"] {
		t.Fatalf("expected key to return to rotation after MarkHealthy, got %v", seen)
	}
}

func TestAPIKeyPoolAllUnhealthy(t *testing.T) {
	p := NewAPIKeyPool(map[string]string{"a": "key-a"})
	p.MarkUnhealthy("a")

	if _, _, ok := p.Select(); ok {
		t.Fatalf("expected no key when all are unhealthy")
	}
}

func TestAPIKeyPoolEmpty(t *testing.T) {
	p := NewAPIKeyPool(nil)
	if _, _, ok := p.Select(); ok {
		t.Fatalf("expected no key from an empty pool")
	}
}
