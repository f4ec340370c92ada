package integrators

import (
	"fmt"

	"github.com/san-kum/fanctl/internal/dynamo"
)

// Euler is the explicit first-order stepper. Cheap, and accurate enough for
// the rotor model at sub-millisecond steps.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	next := make(dynamo.State, len(x))
	for i := range x {
		next[i] = x[i] + dt*dx[i]
	}
	return next
}

// New returns the integrator registered under name.
func New(name string) (dynamo.Integrator, error) {
	switch name {
	case "", "rk4":
		return NewRK4(), nil
	case "euler":
		return NewEuler(), nil
	}
	return nil, fmt.Errorf("integrators: unknown integrator %q", name)
}

// Names lists the available integrators.
func Names() []string {
	return []string{"euler", "rk4"}
}
