package session

import (
	"fmt"
	"strings"
)

// unitOfWork stages the multi-record writes of a completion so they run as
// one block. Steps apply in order; the first failure aborts the rest and the
// returned error names both the failed step and the steps already applied,
// since the store cannot roll those back.
type unitOfWork struct {
	steps   []uowStep
	applied []string
}

type uowStep struct {
	name  string
	apply func() error
}

func (u *unitOfWork) add(name string, apply func() error) {
	u.steps = append(u.steps, uowStep{name: name, apply: apply})
}

func (u *unitOfWork) commit() error {
	for _, step := range u.steps {
		if err := step.apply(); err != nil {
			if len(u.applied) == 0 {
				return fmt.Errorf("completion step %q failed: %w", step.name, err)
			}
			return fmt.Errorf("completion step %q failed after applying [%s]: %w",
				step.name, strings.Join(u.applied, ", "), err)
		}
		u.applied = append(u.applied, step.name)
	}
	return nil
}
