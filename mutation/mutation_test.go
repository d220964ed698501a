package mutation

import "testing"

func TestUnmarshalWire(t *testing.T) {
	payload := []byte(`[{"target":[{"id":7,"tag":"p","cls":"a b","parent":3},{"id":3,"tag":"body","parent":2},{"id":2,"tag":"html","parent":1},{"id":1,"tag":""}],
		"text":"x $$y$$","added":[{"id":9,"tag":"span","cls":"MathJax","parent":7}]}]`)

	records, err := UnmarshalWire(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records: got %d, want 1", len(records))
	}
	r := records[0]
	if len(r.Target) != 4 || r.Target[0].ID != 7 || r.Target[0].Parent != 3 {
		t.Errorf("target chain: got %+v", r.Target)
	}
	if len(r.Added) != 1 || r.Added[0].Class != "MathJax" {
		t.Errorf("added: got %+v", r.Added)
	}
	if r.Attr {
		t.Error("attr: expected false")
	}
}

func TestUnmarshalWire_Invalid(t *testing.T) {
	if _, err := UnmarshalWire([]byte(`{`)); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}
