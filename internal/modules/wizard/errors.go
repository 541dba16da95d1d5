package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrFirstStep   = errors.New("already at the first step")
	ErrLastStep    = errors.New("already at the last step")
	ErrUnknownStep = errors.New("unknown step")
)

// ValidationError lists the fields that block a transition, keyed by their
// wire name, with the rule each one failed.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name, rule := range e.Fields {
		names = append(names, name+"="+rule)
	}
	sort.Strings(names)
	return fmt.Sprintf("step %s is invalid: %s", e.Step, strings.Join(names, ", "))
}
