package network

import "errors"

var (
	// ErrUnknownAddress is returned when a packet names an address that is
	// not in the node set.
	ErrUnknownAddress = errors.New("unknown address")

	// ErrBufferFull is the backpressure signal: the sender's buffer is at
	// capacity.
	ErrBufferFull = errors.New("buffer full")

	// ErrDuplicateAddress is returned when adding a node whose address is
	// already taken.
	ErrDuplicateAddress = errors.New("duplicate address")

	// ErrInvalidCapacity is returned for a non-positive node capacity.
	ErrInvalidCapacity = errors.New("capacity must be positive")

	// ErrEmptyAddress is returned when a node is created without an address.
	ErrEmptyAddress = errors.New("address must not be empty")
)

// DropReason turns a routing error into the short reason recorded with a
// dropped packet.
func DropReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBufferFull):
		return "buffer-full"
	case errors.Is(err, ErrUnknownAddress):
		return "unknown-address"
	default:
		return "error"
	}
}
