package manifest

// BuildPlan is the fully resolved build configuration for one crate.
type BuildPlan struct {
	DefaultTarget string
	// OtherTargets is sorted and never contains DefaultTarget.
	OtherTargets []string
	CargoArgs    []string
	Env          map[string]string
}

// Plan resolves targets, cargo arguments and environment in one value.
func (m *Metadata) Plan() BuildPlan {
	targets := m.Targets()
	return BuildPlan{
		DefaultTarget: targets.DefaultTarget,
		OtherTargets:  targets.Sorted(),
		CargoArgs:     m.CargoArgs(),
		Env:           m.EnvironmentVariables(),
	}
}

// AllTargets returns the default target followed by the other targets.
func (p BuildPlan) AllTargets() []string {
	return append([]string{p.DefaultTarget}, p.OtherTargets...)
}

// Resolve parses manifest text and returns its build plan.
func Resolve(text string) (BuildPlan, error) {
	md, err := Parse(text)
	if err != nil {
		return BuildPlan{}, err
	}
	return md.Plan(), nil
}
