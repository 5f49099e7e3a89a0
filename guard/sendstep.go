package guard

import (
	"context"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/transport"
)

// SendStep is step 4: hands the payload to the transport (spec §4.4
// step 4).
type SendStep struct {
	Transport transport.Transport
	Self      aid.DeviceId
}

func (s *SendStep) Apply(ctx context.Context, send *Send) error {
	if err := s.Transport.Open(send.Channel, send.Peer); err != nil {
		return err
	}
	return s.Transport.Send(send.Channel, send.Peer, send.Payload)
}
