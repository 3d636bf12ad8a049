package evmbridge

import "fmt"

// Status is the variant of a remote view or call outcome.
type Status uint8

// The order matches the engine's wire tags.
const (
	StatusSucceeded Status = iota
	StatusReverted
	StatusOutOfResource
	StatusOutOfFunds
	StatusOutOfRange
	StatusRecursionTooDeep
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusReverted:
		return "reverted"
	case StatusOutOfResource:
		return "out of resource"
	case StatusOutOfFunds:
		return "out of funds"
	case StatusOutOfRange:
		return "out of range"
	case StatusRecursionTooDeep:
		return "recursion too deep"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// carriesData reports whether the variant has a byte payload on the wire.
func (s Status) carriesData() bool {
	return s == StatusSucceeded || s == StatusReverted
}

// Outcome is the result of a remote view or call. Only a succeeded outcome
// carries usable return data; Data of a reverted outcome is the revert
// reason. The bridge treats every non-success variant as a failure, but the
// variant is kept so callers can tell them apart.
type Outcome struct {
	Status Status
	Data   []byte
}

// Succeeded creates a success outcome.
func Succeeded(data []byte) Outcome {
	return Outcome{Status: StatusSucceeded, Data: data}
}

// Reverted creates a revert outcome.
func Reverted(reason []byte) Outcome {
	return Outcome{Status: StatusReverted, Data: reason}
}

// Failed creates a data-less failure outcome such as StatusOutOfResource.
func Failed(status Status) Outcome {
	return Outcome{Status: status}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Status == StatusSucceeded
}
