package recovery

import (
	"fmt"
	"time"

	"filippo.io/edwards25519"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/choreo"
	"github.com/aura-network/aura/frost"
	domain "github.com/aura-network/aura/recovery"
)

const (
	TagRequest  = "recovery.request"
	TagApproval = "recovery.approval"
)

// RequestMsg is the recovering device's broadcast to every guardian in
// its set, carrying the request each guardian must validate and sign
// over (spec §4.8: "the recovering device collects guardian_threshold
// signed approvals").
type RequestMsg struct {
	Request domain.RecoveryRequest
}

func (m RequestMsg) Tag() string { return TagRequest }

func (m RequestMsg) Encode() []byte {
	var emergency uint64
	if m.Request.IsEmergency {
		emergency = 1
	}
	var buf []byte
	buf = protowire.AppendBytes(buf, m.Request.RequestingDevice[:])
	buf = protowire.AppendBytes(buf, m.Request.Account[:])
	buf = protowire.AppendString(buf, string(m.Request.Operation))
	buf = protowire.AppendString(buf, m.Request.Justification)
	buf = protowire.AppendVarint(buf, emergency)
	buf = protowire.AppendVarint(buf, uint64(m.Request.RequestedAt.UnixNano()))
	buf = protowire.AppendVarint(buf, uint64(m.Request.DisputeWindow))
	return buf
}

func decodeRequest(body []byte) (choreo.Message, error) {
	deviceBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(deviceBytes) != 32 {
		return nil, fmt.Errorf("recovery: malformed request device")
	}
	body = body[n:]
	var device aid.ID256
	copy(device[:], deviceBytes)

	accountBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(accountBytes) != 32 {
		return nil, fmt.Errorf("recovery: malformed request account")
	}
	body = body[n:]
	var account aid.ID256
	copy(account[:], accountBytes)

	op, n := protowire.ConsumeString(body)
	if n < 0 {
		return nil, fmt.Errorf("recovery: malformed request operation")
	}
	body = body[n:]

	justification, n := protowire.ConsumeString(body)
	if n < 0 {
		return nil, fmt.Errorf("recovery: malformed request justification")
	}
	body = body[n:]

	emergency, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("recovery: malformed request emergency flag")
	}
	body = body[n:]

	requestedAt, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("recovery: malformed request timestamp")
	}
	body = body[n:]

	disputeWindow, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, fmt.Errorf("recovery: malformed request dispute window")
	}

	return RequestMsg{Request: domain.RecoveryRequest{
		RequestingDevice: device,
		Account:          account,
		Operation:        domain.OperationType(op),
		Justification:    justification,
		IsEmergency:      emergency != 0,
		RequestedAt:      time.Unix(0, int64(requestedAt)),
		DisputeWindow:    time.Duration(disputeWindow),
	}}, nil
}

// ApprovalMsg is one guardian's signed vote, sent back to the
// recovering device.
type ApprovalMsg struct {
	Approval domain.Approval
}

func (m ApprovalMsg) Tag() string { return TagApproval }

func (m ApprovalMsg) Encode() []byte {
	var buf []byte
	buf = protowire.AppendBytes(buf, m.Approval.Guardian[:])
	buf = protowire.AppendBytes(buf, m.Approval.Signature.Bytes())
	return buf
}

func decodeApproval(body []byte) (choreo.Message, error) {
	guardianBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(guardianBytes) != 32 {
		return nil, fmt.Errorf("recovery: malformed approval guardian")
	}
	body = body[n:]
	var guardian aid.ID256
	copy(guardian[:], guardianBytes)

	sigBytes, n := protowire.ConsumeBytes(body)
	if n < 0 || len(sigBytes) != 64 {
		return nil, fmt.Errorf("recovery: malformed approval signature")
	}

	r, err := edwards25519.NewIdentityPoint().SetBytes(sigBytes[:32])
	if err != nil {
		return nil, fmt.Errorf("recovery: invalid approval signature R: %w", err)
	}
	z, err := edwards25519.NewScalar().SetCanonicalBytes(sigBytes[32:])
	if err != nil {
		return nil, fmt.Errorf("recovery: invalid approval signature Z: %w", err)
	}

	return ApprovalMsg{Approval: domain.Approval{
		Guardian:  guardian,
		Signature: frost.Signature{R: r, Z: z},
	}}, nil
}

// RegisterMessages installs this package's message decoders into
// registry, required before running a recovery round over an adapter
// built with it.
func RegisterMessages(registry *choreo.MessageRegistry) {
	registry.Register(TagRequest, decodeRequest)
	registry.Register(TagApproval, decodeApproval)
}
