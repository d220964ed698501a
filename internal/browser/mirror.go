// CLAUDE:SUMMARY Keeps the Go-side view of live page nodes reported by the injected observer, addressed by in-page IDs.
package browser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/mutation"
)

type nodeInfo struct {
	tag    string
	elid   string
	class  string
	parent int64
	text   string
}

// Mirror holds what Go knows about page nodes: tag, id, class, parent and,
// for mutation targets, the last reported text. Nodes are identified by
// the IDs the in-page observer assigns.
type Mirror struct {
	mu    sync.RWMutex
	nodes map[int64]*nodeInfo
}

// NewMirror creates an empty Mirror.
func NewMirror() *Mirror {
	return &Mirror{nodes: make(map[int64]*nodeInfo)}
}

// Len returns the number of known nodes.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Node returns the handle for id, or nil when the observer never reported
// that node or has reported it removed.
func (m *Mirror) Node(id int64) dom.Node {
	if _, ok := m.info(id); !ok {
		return nil
	}
	return RemoteNode{m: m, id: id}
}

// Register records a chain of nodes (a node first, then its ancestors)
// and returns the handle of the first one.
func (m *Mirror) Register(chain []mutation.WireNode) dom.Node {
	if len(chain) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range chain {
		m.putLocked(w)
	}
	return RemoteNode{m: m, id: chain[0].ID}
}

// Records converts wire records to node records, updating the mirror.
// Removed nodes are forgotten once converted.
func (m *Mirror) Records(wires []mutation.Wire) []mutation.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]mutation.Record, 0, len(wires))
	var gone []int64
	for _, w := range wires {
		if len(w.Target) == 0 {
			continue
		}
		for _, n := range w.Target {
			m.putLocked(n)
		}
		m.nodes[w.Target[0].ID].text = w.Text

		rec := mutation.Record{Target: RemoteNode{m: m, id: w.Target[0].ID}, Attribute: w.Attr}
		for _, n := range w.Added {
			m.putLocked(n)
			rec.Added = append(rec.Added, RemoteNode{m: m, id: n.ID})
		}
		for _, n := range w.Removed {
			rec.Removed = append(rec.Removed, RemoteNode{m: m, id: n.ID})
			gone = append(gone, n.ID)
		}
		out = append(out, rec)
	}
	for _, id := range gone {
		delete(m.nodes, id)
	}
	return out
}

func (m *Mirror) putLocked(w mutation.WireNode) {
	info, ok := m.nodes[w.ID]
	if !ok {
		info = &nodeInfo{}
		m.nodes[w.ID] = info
	}
	info.tag = w.Tag
	info.elid = w.ElID
	info.class = w.Class
	info.parent = w.Parent
}

func (m *Mirror) info(id int64) (nodeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.nodes[id]
	if !ok {
		return nodeInfo{}, false
	}
	return *info, true
}

// RemoteNode is a live page node. Two handles on the same page node
// compare equal.
type RemoteNode struct {
	m  *Mirror
	id int64
}

// NodeID returns the in-page ID.
func (n RemoteNode) NodeID() int64 { return n.id }

func (n RemoteNode) Parent() dom.Node {
	info, _ := n.m.info(n.id)
	return n.m.Node(info.parent)
}

func (n RemoteNode) Tag() string {
	info, _ := n.m.info(n.id)
	return info.tag
}

func (n RemoteNode) ID() string {
	info, _ := n.m.info(n.id)
	return info.elid
}

func (n RemoteNode) Classes() []string {
	info, _ := n.m.info(n.id)
	return dom.SplitClasses(info.class)
}

// TextContent is the text last reported for the node as a mutation
// target; empty for nodes never reported as targets.
func (n RemoteNode) TextContent() string {
	info, _ := n.m.info(n.id)
	return info.text
}

// Path is an XPath locator without sibling indexes; an id predicate is
// added where the element has one.
func (n RemoteNode) Path() string {
	var steps []string
	for id := n.id; id != 0; {
		info, ok := n.m.info(id)
		if !ok || info.tag == "" {
			break
		}
		step := info.tag
		if info.elid != "" {
			step += fmt.Sprintf("[@id=%q]", info.elid)
		}
		steps = append(steps, step)
		id = info.parent
	}
	if len(steps) == 0 {
		return "/"
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return "/" + strings.Join(steps, "/")
}

// Script implements page.Scripter.
func (n RemoteNode) Script() string {
	return fmt.Sprintf("window.__mathdisplay.node(%d)", n.id)
}
