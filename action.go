package shift

import "github.com/denismitr/shift/database"

type ActionConfigurator func(a *Action)

type Action struct {
	steps  int
	target *database.Version
}

func newAction(cfs []ActionConfigurator) *Action {
	act := new(Action)
	for _, f := range cfs {
		f(act)
	}
	return act
}

func (a *Action) targetOr(v database.Version) database.Version {
	if a.target == nil {
		return v
	}
	return *a.target
}

// WithSteps limits the number of migrations executed
func WithSteps(steps int) ActionConfigurator {
	return func(a *Action) {
		a.steps = steps
	}
}

// ToVersion sets the version a run stops at
func ToVersion(v database.Version) ActionConfigurator {
	return func(a *Action) {
		a.target = &v
	}
}

func CreateConfigurators(steps int, target string) ([]ActionConfigurator, error) {
	var configurators []ActionConfigurator
	if steps > 0 {
		configurators = append(configurators, WithSteps(steps))
	}

	if target != "" {
		v, err := database.VersionFromString(target)
		if err != nil {
			return nil, err
		}

		configurators = append(configurators, ToVersion(v))
	}

	return configurators, nil
}
