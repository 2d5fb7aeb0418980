package detection

import (
	"fmt"
	"sort"
)

var registered = map[string]Factory{}

// Register makes a detector available by name. Detector packages call it
// from init.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	registered[name] = f
}

// Names lists the registered detectors in sorted order.
func Names() []string {
	out := make([]string, 0, len(registered))
	for name := range registered {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build instantiates the named detectors in the given order. An empty list
// builds every registered detector.
func Build(names []string, opt Options) ([]Detector, error) {
	if len(names) == 0 {
		names = Names()
	}
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		f, ok := registered[name]
		if !ok {
			return nil, fmt.Errorf("detection: unknown detector %q", name)
		}
		out = append(out, f(opt))
	}
	return out, nil
}
