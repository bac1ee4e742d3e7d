package step

import "strings"

// Strategy is a set of behaviour flags produced by evaluating one result.
// The empty set means: drop the result and continue.
type Strategy uint8

const (
	RegisterResult Strategy = 1 << iota
	ExitPipeline
	DiscardCurrent
	DiscardAll
	StopCurrent
	StopAll
)

// Presets.
const (
	Skip                  Strategy = 0
	Continue                       = RegisterResult
	DiscardAndContinue             = RegisterResult | DiscardCurrent
	DiscardAllAndContinue          = RegisterResult | DiscardAll
	StopStep                       = RegisterResult | StopCurrent
	Abort                          = RegisterResult | StopAll
	Exit                           = RegisterResult | ExitPipeline
)

var flagNames = []struct {
	flag Strategy
	name string
}{
	{RegisterResult, "REGISTER_RESULT"},
	{ExitPipeline, "EXIT_PIPELINE"},
	{DiscardCurrent, "DISCARD_CURRENT"},
	{DiscardAll, "DISCARD_ALL"},
	{StopCurrent, "STOP_CURRENT"},
	{StopAll, "STOP_ALL"},
}

// Has reports whether every flag of f is set in s.
func (s Strategy) Has(f Strategy) bool {
	return s&f == f
}

// String lists the set flags, e.g. "REGISTER_RESULT|STOP_ALL".
func (s Strategy) String() string {
	if s == 0 {
		return "NONE"
	}
	var parts []string
	for _, fn := range flagNames {
		if s.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Outcome tells the orchestrator how the step loop ended.
type Outcome int

const (
	// OutcomeContinue: proceed with sink dispatch.
	OutcomeContinue Outcome = iota + 1
	// OutcomeExit: a result asked to exit the pipeline; skip sinks.
	OutcomeExit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeExit:
		return "exit"
	default:
		return "unknown"
	}
}
