// Package signals turns raw, unreliable platform signals into the canonical
// "user sent a message" stream the trigger engine consumes.
//
// Three detectors watch the same underlying user action from different
// angles: the submit key, the send button, and the conversation DOM. They
// are not mutually exclusive; one physical action can legitimately fire all
// three. Each detector call is an independent vote forwarded as its own
// canonical event, tagged with its source. Over-counting across detectors
// is an accepted approximation of this design, not something the aggregator
// tries to repair with guessed dedup rules.
package signals

import "strings"

// Source tags which detector produced a canonical event.
type Source string

const (
	SourceKeyboard Source = "keyboard"
	SourceClick    Source = "click"
	SourceDOM      Source = "dom"
)

// Node is a flattened view of a DOM element as the platform reports it.
// Ancestors are ordered nearest first; Children are used by the mutation
// detector to look inside inserted subtrees. All fields are optional, and
// absence suppresses a signal rather than erroring.
type Node struct {
	Tag        string `json:"tag,omitempty"`
	Role       string `json:"role,omitempty"`
	Editable   bool   `json:"editable,omitempty"`
	TestID     string `json:"test_id,omitempty"`
	Label      string `json:"label,omitempty"`
	Type       string `json:"type,omitempty"`
	AuthorRole string `json:"author_role,omitempty"`
	Content    string `json:"content,omitempty"`
	Ancestors  []Node `json:"ancestors,omitempty"`
	Children   []Node `json:"children,omitempty"`
}

// Closest walks the node and then its ancestors, nearest first, returning
// the first match.
func (n Node) Closest(match func(Node) bool) (Node, bool) {
	if match(n) {
		return n, true
	}
	for _, a := range n.Ancestors {
		if match(a) {
			return a, true
		}
	}
	return Node{}, false
}

// Contains reports whether the node or any descendant matches.
func (n Node) Contains(match func(Node) bool) bool {
	if match(n) {
		return true
	}
	for _, c := range n.Children {
		if c.Contains(match) {
			return true
		}
	}
	return false
}

// KeyPress is a raw keystroke observed on the page.
type KeyPress struct {
	Key    string
	Shift  bool
	Target Node
}

// Click is a raw pointer activation observed on the page.
type Click struct {
	Target Node
}

// Mutation is a batch of nodes inserted into the observed container.
type Mutation struct {
	Added []Node
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
