// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"errors"
	"fmt"

	"github.com/mrepack/mrepack/internal/dag"
	"github.com/mrepack/mrepack/pkg/repackfile"
)

// Sequence orders group indexes so every group follows the groups it
// depends on. Ties keep configuration order. A cycle is reported as a
// *CircularDependencyError naming the groups by label.
func Sequence(cfg *repackfile.Configuration, graph *dag.Graph) ([]int, error) {
	byKey := make(map[string]int, len(cfg.Groups))
	for i := range cfg.Groups {
		byKey[cfg.Groups[i].Key()] = i
	}

	keys, err := graph.Sort()
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			labels := make([]string, len(cycle.Cycle))
			for i, key := range cycle.Cycle {
				labels[i] = cfg.Groups[byKey[key]].Label()
			}
			return nil, &CircularDependencyError{Cycle: labels}
		}
		return nil, err
	}

	order := make([]int, 0, len(keys))
	for _, key := range keys {
		i, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("dependency graph node %q is not a configured group", key)
		}
		order = append(order, i)
	}
	return order, nil
}
