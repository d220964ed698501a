package mutation

// WireNode describes one page node as reported by the injected observer.
// IDs are assigned in the page and stay stable for the node's lifetime.
type WireNode struct {
	ID     int64  `json:"id"`
	Tag    string `json:"tag"`              // lower-case element name, "" for the document
	ElID   string `json:"elid,omitempty"`   // id attribute
	Class  string `json:"cls,omitempty"`    // class attribute
	Parent int64  `json:"parent,omitempty"` // 0 at the document
}

// Wire is a mutation record as reported by the page.
type Wire struct {
	// Target is the ancestor chain of the mutation target, target first,
	// document last.
	Target  []WireNode `json:"target"`
	Text    string     `json:"text,omitempty"` // target textContent
	Added   []WireNode `json:"added,omitempty"`
	Removed []WireNode `json:"removed,omitempty"`
	Attr    bool       `json:"attr,omitempty"`
}
