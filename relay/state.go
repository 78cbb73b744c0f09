package relay

/* ConnectionState tracks a delivery channel's lifecycle
 * Follows the lifecycle: Connected -> Disconnected
 */
type ConnectionState int

const (
	Connected ConnectionState = iota + 1
	Disconnected
)

// String returns the string representation of the state
func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
