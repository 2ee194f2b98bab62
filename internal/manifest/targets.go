package manifest

import "sort"

// BuildTargets are the targets that should be built for a crate.
type BuildTargets struct {
	// DefaultTarget is used as the home page for the crate.
	//
	// If default-target is unset and targets is non-empty, the first element
	// of targets is used. Otherwise this is HostTarget.
	DefaultTarget string

	// OtherTargets never contains DefaultTarget.
	//
	// If targets is not set, all DefaultTargets are built.
	// If targets is set to an empty array, only the default target is built.
	OtherTargets map[string]struct{}
}

// Targets returns the targets that should be built.
func (m *Metadata) Targets() BuildTargets {
	def := m.DefaultTarget
	if def == "" && len(m.TargetList) > 0 {
		def = m.TargetList[0]
	}
	if def == "" {
		def = HostTarget
	}

	candidates := DefaultTargets
	if m.TargetList != nil {
		candidates = m.TargetList
	}
	others := make(map[string]struct{}, len(candidates))
	for _, t := range candidates {
		others[t] = struct{}{}
	}
	delete(others, def)

	return BuildTargets{DefaultTarget: def, OtherTargets: others}
}

// Sorted returns OtherTargets in lexical order.
func (b BuildTargets) Sorted() []string {
	out := make([]string, 0, len(b.OtherTargets))
	for t := range b.OtherTargets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether target is the default or one of the other targets.
func (b BuildTargets) Contains(target string) bool {
	if target == b.DefaultTarget {
		return true
	}
	_, ok := b.OtherTargets[target]
	return ok
}
