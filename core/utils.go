package core

import (
	"reflect"

	"github.com/encodeous/ripple/state"
)

// AddCost adds two costs, saturating at state.INF. Any sum involving state.INF is state.INF.
func AddCost(a, b state.Cost) state.Cost {
	if a == state.INF || b == state.INF {
		return state.INF
	} else {
		return state.Cost(min(uint64(state.INF), uint64(a)+uint64(b)))
	}
}

func Get[T state.NyModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
