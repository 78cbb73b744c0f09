package relay

/* Outcome is how a relayed request ended
 * Queued is the terminal outcome of fire-and-forget deliveries
 */
type Outcome int

const (
	Delivered Outcome = iota + 1
	TimedOut
	Unavailable
	Rejected
	Cancelled
	Queued
	Failed
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case TimedOut:
		return "timed_out"
	case Unavailable:
		return "unavailable"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	case Queued:
		return "queued"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// NewOutcome creates an Outcome from a string
func NewOutcome(s string) Outcome {
	switch s {
	case "delivered":
		return Delivered
	case "timed_out":
		return TimedOut
	case "unavailable":
		return Unavailable
	case "rejected":
		return Rejected
	case "cancelled":
		return Cancelled
	case "queued":
		return Queued
	default:
		return Failed
	}
}
