package resolver

import (
	"strconv"
	"strings"

	"scrum/internal/models"
)

// CycleError reports one dependency cycle. Path starts and ends with the same
// task id and follows depends-on edges.
type CycleError struct {
	Path []int64
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Path))
	for _, id := range e.Path {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return models.ErrCyclicDependency.Error() + ": " + strings.Join(parts, " -> ")
}

func (e *CycleError) Unwrap() error { return models.ErrCyclicDependency }
