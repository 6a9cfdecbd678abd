// Package diffengine implements the semantic differ: a tree of comparators
// that pair two artifacts of the same shape (classes, JAR entries,
// distribution members) and emit a Delta tree, plus the ignore policy
// applied to that tree afterward.
package diffengine

import "encoding/json"

// ChangeKind is the four-state change classification every Delta node
// carries.
type ChangeKind int

const (
	ChangeUnchanged ChangeKind = iota
	ChangeAdded
	ChangeRemoved
	ChangeModified
)

var changeNames = [...]string{"unchanged", "added", "removed", "modified"}

func (c ChangeKind) String() string {
	if int(c) >= 0 && int(c) < len(changeNames) {
		return changeNames[c]
	}
	return "unknown"
}

func (c ChangeKind) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

// NodeKind tags which comparison layer produced a Delta node.
type NodeKind int

const (
	ClassDelta NodeKind = iota
	FieldDelta
	MethodDelta
	CodeDelta
	AttributeDelta
	ManifestDelta
	JarDelta
	DistDelta
	ErrorDelta
)

var nodeNames = [...]string{"class", "field", "method", "code", "attribute", "manifest", "jar", "dist", "error"}

func (k NodeKind) String() string {
	if int(k) >= 0 && int(k) < len(nodeNames) {
		return nodeNames[k]
	}
	return "unknown"
}

func (k NodeKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// Delta is one node of the differ's output tree. It is a pure data
// structure: renderers (HTML, text, JSON) consume it without callbacks.
type Delta struct {
	Kind   NodeKind   `json:"kind"`
	Change ChangeKind `json:"change"`
	ID     string     `json:"id"`
	Label  string     `json:"label"`

	Left  any `json:"left,omitempty"`
	Right any `json:"right,omitempty"`

	Children []*Delta `json:"children,omitempty"`

	// IgnoreToken is the vocabulary token that suppresses this node, or
	// empty if the node is never suppressible. Internal to ApplyIgnores;
	// not part of the wire contract.
	IgnoreToken string `json:"-"`

	// WasIgnored is set once ApplyIgnores suppresses this node, so a
	// "show ignored" render can still find it even though Change has been
	// forced to ChangeUnchanged.
	WasIgnored bool `json:"ignored,omitempty"`

	// Detail carries a unified-diff body for leaf text-resource deltas.
	Detail string `json:"detail,omitempty"`
}

func newDelta(kind NodeKind, id, label string) *Delta {
	return &Delta{Kind: kind, ID: id, Label: label}
}

func filterNil(ds []*Delta) []*Delta {
	out := make([]*Delta, 0, len(ds))
	for _, d := range ds {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// aggregateChange folds a composite node's children into one ChangeKind:
// unchanged only if every child is unchanged (or was ignored down to
// unchanged), modified otherwise. Composite nodes are never themselves
// added/removed purely from child aggregation — that classification is
// reserved for nodes representing an entry absent on one side entirely.
func aggregateChange(children []*Delta) ChangeKind {
	for _, c := range children {
		if c.Change != ChangeUnchanged {
			return ChangeModified
		}
	}
	return ChangeUnchanged
}
