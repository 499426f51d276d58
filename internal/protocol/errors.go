package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Level input.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrMalformedWorld = "E_MALFORMED_WORLD"

	// Search outcome.
	ErrNoSolution = "E_NO_SOLUTION"
	ErrLimit      = "E_LIMIT"
	ErrBusy       = "E_BUSY"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrMalformedWorld:  {},
	ErrNoSolution:      {},
	ErrLimit:           {},
	ErrBusy:            {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
