// File: clockdrv/spec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package clockdrv

import (
	"fmt"

	"github.com/momentics/hioload-clk/api"
	"github.com/momentics/hioload-clk/control"
)

// Spec is a client requirement. Zero fields mean "any".
type Spec struct {
	FrequencyHz uint32
	AccuracyPPM uint16
	Precision   uint8
}

func (s Spec) String() string {
	return fmt.Sprintf("%dHz/%dppm/p%d", s.FrequencyHz, s.AccuracyPPM, s.Precision)
}

// OptionDesc describes one hardware mode.
type OptionDesc struct {
	Name            string
	Spec            Spec
	ForceMainDomain bool
}

// satisfies reports whether the option meets want.
func (o OptionDesc) satisfies(want Spec) bool {
	if want.FrequencyHz > o.Spec.FrequencyHz {
		return false
	}
	if want.AccuracyPPM != 0 && (o.Spec.AccuracyPPM == 0 || o.Spec.AccuracyPPM > want.AccuracyPPM) {
		return false
	}
	return want.Precision <= o.Spec.Precision
}

// OptionsFromConfig converts configured options into descriptors.
func OptionsFromConfig(specs []control.OptionSpec) []OptionDesc {
	out := make([]OptionDesc, len(specs))
	for i, s := range specs {
		out[i] = OptionDesc{
			Name: s.Name,
			Spec: Spec{
				FrequencyHz: s.FrequencyHz,
				AccuracyPPM: s.AccuracyPPM,
				Precision:   s.Precision,
			},
			ForceMainDomain: s.ForceMainDomain,
		}
	}
	return out
}

// ErrNoMatchingOption is returned when no option satisfies a Spec.
var ErrNoMatchingOption = api.NewError(api.ErrCodeNotFound, "clockdrv: no option satisfies spec")

func resolve(options []OptionDesc, want Spec) (int, error) {
	for i, o := range options {
		if o.satisfies(want) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoMatchingOption, want)
}
