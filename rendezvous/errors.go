package rendezvous

import "errors"

var (
	ErrInvalidWindow      = errors.New("rendezvous: valid_from must precede valid_until")
	ErrNoTransportHints   = errors.New("rendezvous: at least one transport hint is required")
	ErrMissingCommitment  = errors.New("rendezvous: psk_commitment must not be all-zero")
	ErrMissingNonce       = errors.New("rendezvous: nonce must not be all-zero")
	ErrNotFound           = errors.New("rendezvous: no descriptor published for that context and authority")
	ErrExpired            = errors.New("rendezvous: descriptor is outside its validity window")
)
