package dom

import (
	"context"
	"testing"
)

const page = `<!DOCTYPE html><html><head><title>t</title></head><body>
<div class="h5p-container">
  <p id="a">first $$x^2$$</p>
  <p id="b" class="ck note">second</p>
  <div class="ck"><span id="inner">\(y\)</span></div>
</div>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestWrap_EqualityAcrossLookups(t *testing.T) {
	doc := mustParse(t)
	a1 := doc.First("#a")
	a2 := doc.Find("p")[0]
	if a1 != a2 {
		t.Fatal("two lookups of the same element must compare equal")
	}
	if Wrap(nil) != nil {
		t.Fatal("Wrap(nil) must be a nil Node")
	}
}

func TestIsAncestor(t *testing.T) {
	doc := mustParse(t)
	container := doc.First(".h5p-container")
	inner := doc.First("#inner")

	if !IsAncestor(container, inner) {
		t.Error("container should be an ancestor of #inner")
	}
	if IsAncestor(inner, container) {
		t.Error("#inner is not an ancestor of container")
	}
	if IsAncestor(inner, inner) {
		t.Error("IsAncestor must be strict")
	}
	if !Covers(inner, inner) {
		t.Error("Covers must include the node itself")
	}
	if !IsAncestor(doc.Root(), inner) {
		t.Error("document should be an ancestor of every element")
	}
}

func TestClassHelpers(t *testing.T) {
	doc := mustParse(t)
	b := doc.First("#b")
	if !HasClass(b, "note") {
		t.Error("#b should have class note")
	}
	if !HasPrefix(b, []string{"no"}) {
		t.Error("#b class note should match prefix no")
	}
	if !HasPrefix(doc.First("#a"), []string{"a"}) {
		t.Error("id should be checked against prefixes")
	}
	if !InsideClass(doc.First("#inner"), []string{"ck"}) {
		t.Error("#inner sits inside .ck")
	}
	if InsideClass(b, []string{"ck"}) {
		t.Error("InsideClass must only look at ancestors")
	}
}

func TestPath(t *testing.T) {
	doc := mustParse(t)
	tests := map[string]string{
		"#a":     "/html/body/div/p[1]",
		"#b":     "/html/body/div/p[2]",
		"#inner": "/html/body/div/div/span",
		"body":   "/html/body",
	}
	for sel, want := range tests {
		if got := doc.First(sel).Path(); got != want {
			t.Errorf("Path(%s): got %q, want %q", sel, got, want)
		}
	}
	if got := doc.Root().Path(); got != "/" {
		t.Errorf("document path: got %q, want /", got)
	}
}

func TestTextContent(t *testing.T) {
	doc := mustParse(t)
	if got := doc.First("#a").TextContent(); got != "first $$x^2$$" {
		t.Errorf("TextContent: got %q", got)
	}
}

func TestInsertAndContainsMarker(t *testing.T) {
	doc := mustParse(t)
	ctx := context.Background()
	a := doc.First("#a")
	classes := []string{"MathJax", "MathJax_Display"}

	found, err := doc.ContainsMarker(ctx, []Node{a}, classes)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("no marker expected before insert")
	}

	added, err := doc.Insert(a, `<span class="MathJax">x</span>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 1 || !HasClass(added[0], "MathJax") {
		t.Fatalf("Insert: got %d nodes", len(added))
	}

	found, _ = doc.ContainsMarker(ctx, []Node{a}, classes)
	if !found {
		t.Error("marker expected in scope after insert")
	}
	found, _ = doc.ContainsMarker(ctx, []Node{doc.First("#b")}, classes)
	if found {
		t.Error("marker must not leak into a sibling scope")
	}
	found, _ = doc.ContainsMarker(ctx, nil, classes)
	if !found {
		t.Error("nil scope means the whole document")
	}

	if n, _ := doc.CountMarkers(ctx, nil, classes); n != 1 {
		t.Errorf("CountMarkers: got %d, want 1", n)
	}
	if _, err := doc.Insert(a, `<div class="MathJax_Display">y</div>`); err != nil {
		t.Fatal(err)
	}
	if n, _ := doc.CountMarkers(ctx, []Node{a}, classes); n != 2 {
		t.Errorf("CountMarkers after second insert: got %d, want 2", n)
	}

	doc.Remove(added[0])
	if n, _ := doc.CountMarkers(ctx, nil, classes); n != 1 {
		t.Errorf("CountMarkers after Remove: got %d, want 1", n)
	}
}
