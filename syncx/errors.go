package syncx

import "errors"

// ErrByzantineReveal is returned when a peer's revealed vector clock does
// not hash to the commitment it published (spec §4.7: "commitment/reveal
// mismatch is treated as byzantine behaviour"; spec §8 scenario 6: "peer
// added to suspect set, sync aborted for this round; journal state
// unchanged").
var ErrByzantineReveal = errors.New("syncx: revealed heads do not match commitment")
