package orders

import (
	"strings"

	"github.com/ginjaninja78/payroll-intake/internal/config"
)

// Section of the order ledger.
type Section int

const (
	NoSection Section = iota
	Unordered
	Ordered
)

func (s Section) String() string {
	switch s {
	case Unordered:
		return "unordered"
	case Ordered:
		return "ordered"
	default:
		return "none"
	}
}

// Machine tracks the current section. Markers are case-sensitive; a cell
// that also mentions the product word ("товар") is a caption, not a marker.
type Machine struct {
	vocab   config.OrderVocabulary
	section Section
}

// NewMachine returns a machine outside any section.
func NewMachine(vocab config.OrderVocabulary) *Machine {
	return &Machine{vocab: vocab}
}

// Section returns the current section.
func (m *Machine) Section() Section { return m.section }

// Step consumes the first cell of a row and reports whether it was a
// section marker.
func (m *Machine) Step(cell string) bool {
	cell = strings.TrimSpace(cell)
	if strings.Contains(strings.ToLower(cell), m.vocab.ProductWord) {
		return false
	}
	switch {
	case strings.Contains(cell, m.vocab.UnorderedMarker):
		m.section = Unordered
	case strings.Contains(cell, m.vocab.OrderedMarker):
		m.section = Ordered
	default:
		return false
	}
	return true
}
