package compliance

import (
	"strings"

	"github.com/tphakala/ppewatch/internal/detection"
)

// EquipmentSet is a set of equipment kinds
type EquipmentSet uint8

const (
	setHelmet EquipmentSet = 1 << iota
	setVest
	setGoggles
)

func bitFor(e detection.Equipment) EquipmentSet {
	switch e {
	case detection.Helmet:
		return setHelmet
	case detection.Vest:
		return setVest
	case detection.Goggles:
		return setGoggles
	}
	return 0
}

// NewEquipmentSet builds a set from items
func NewEquipmentSet(items ...detection.Equipment) EquipmentSet {
	var s EquipmentSet
	for _, e := range items {
		s = s.With(e)
	}
	return s
}

// With returns the set plus e
func (s EquipmentSet) With(e detection.Equipment) EquipmentSet {
	return s | bitFor(e)
}

// Has reports whether e is in the set
func (s EquipmentSet) Has(e detection.Equipment) bool {
	b := bitFor(e)
	return b != 0 && s&b != 0
}

// Empty reports whether the set has no members
func (s EquipmentSet) Empty() bool {
	return s == 0
}

// Items lists members in helmet, vest, goggles order
func (s EquipmentSet) Items() []detection.Equipment {
	var out []detection.Equipment
	for _, e := range detection.AllEquipment {
		if s.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// String renders the set as "helmet,vest"
func (s EquipmentSet) String() string {
	items := s.Items()
	parts := make([]string, len(items))
	for i, e := range items {
		parts[i] = string(e)
	}
	return strings.Join(parts, ",")
}

// ParseEquipmentSet parses the String form; unknown names are ignored
func ParseEquipmentSet(s string) EquipmentSet {
	var set EquipmentSet
	for part := range strings.SplitSeq(s, ",") {
		if e, ok := detection.ParseEquipment(strings.TrimSpace(part)); ok {
			set = set.With(e)
		}
	}
	return set
}
