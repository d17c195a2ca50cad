package subscription

// Outcome is the result of applying one inbound request.
type Outcome int

const (
	// OutcomeApplied means state changed (or an idempotent request was honoured and acknowledged).
	OutcomeApplied Outcome = iota
	// OutcomeUnchanged means the request was valid but there was nothing to do.
	OutcomeUnchanged
	// OutcomeRejectedUnknownSymbol means the symbol is outside the supported set.
	OutcomeRejectedUnknownSymbol
	// OutcomeUnknownConnection means the connection id is not (or no longer) registered.
	OutcomeUnknownConnection
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeRejectedUnknownSymbol:
		return "rejected_unknown_symbol"
	case OutcomeUnknownConnection:
		return "unknown_connection"
	default:
		return "unknown"
	}
}
