// Package mutation defines the DOM mutation records consumed by the math
// display controller, both node-level (Record) and as reported over the
// wire by the in-page observer (Wire).
package mutation

import "github.com/hazyhaar/mathdisplay/dom"

// Record is a single observed DOM mutation. It is read-only to the
// controller.
type Record struct {
	Target    dom.Node
	Added     []dom.Node
	Removed   []dom.Node
	Attribute bool // attribute change rather than childList
}

// Inserted builds the childList record for nodes appended to target.
func Inserted(target dom.Node, added ...dom.Node) Record {
	return Record{Target: target, Added: added}
}
