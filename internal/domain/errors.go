package domain

import "fmt"

// GraphCheck names the structural rule a family graph violated
type GraphCheck string

const (
	CheckEmptyName     GraphCheck = "empty_name"
	CheckDuplicateName GraphCheck = "duplicate_name"
	CheckSingleParent  GraphCheck = "single_parent"
	CheckUnknownParent GraphCheck = "unknown_parent"
	CheckSelfParent    GraphCheck = "self_parent"
	CheckCycle         GraphCheck = "cycle"
)

// GraphError reports a malformed family structure. Inference cannot start
// until every GraphError is fixed.
type GraphError struct {
	Individual string
	Check      GraphCheck
	Detail     string
}

func (e *GraphError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid family graph: %s: %s", e.Individual, e.Check)
	}
	return fmt.Sprintf("invalid family graph: %s: %s: %s", e.Individual, e.Check, e.Detail)
}
