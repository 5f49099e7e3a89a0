package journal

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/aura-network/aura/aid"
)

// Canonical binary encodings for journal snapshots, built on
// protowire's low-level varint/length-delimited primitives (the same
// building blocks google.golang.org/protobuf generates code around) rather
// than a hand-rolled framing format — grounded on the teacher's habit of
// using a shared wire-encoding library rather than bespoke byte packing
// (codec/ in the teacher tree).

func encodeFacts(f Facts) []byte {
	var buf []byte
	for _, key := range f.Keys() {
		buf = protowire.AppendString(buf, string(key.Kind))
		buf = protowire.AppendBytes(buf, key.Subject[:])
		entries := f.Get(key).Entries()
		buf = protowire.AppendVarint(buf, uint64(len(entries)))
		for _, e := range entries {
			buf = protowire.AppendBytes(buf, e.Value)
		}
	}
	return buf
}

func decodeFacts(data []byte) Facts {
	f := NewFacts()
	for len(data) > 0 {
		kind, n := protowire.ConsumeString(data)
		if n < 0 {
			return f
		}
		data = data[n:]

		subjectBytes, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return f
		}
		data = data[n:]
		var subject aid.ID256
		copy(subject[:], subjectBytes)

		count, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return f
		}
		data = data[n:]

		key := FactKey{Kind: FactKind(kind), Subject: subject}
		for i := uint64(0); i < count; i++ {
			value, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return f
			}
			data = data[n:]
			f = f.With(key, value)
		}
	}
	return f
}

func encodeCaps(c Caps) []byte {
	var buf []byte
	for _, g := range c.Grants() {
		buf = protowire.AppendBytes(buf, g.Subject[:])
		buf = protowire.AppendString(buf, string(g.Action))
	}
	return buf
}

func decodeCaps(data []byte) Caps {
	var grants []Grant
	for len(data) > 0 {
		subjectBytes, n := protowire.ConsumeBytes(data)
		if n < 0 {
			break
		}
		data = data[n:]
		action, n := protowire.ConsumeString(data)
		if n < 0 {
			break
		}
		data = data[n:]
		var subject aid.ID256
		copy(subject[:], subjectBytes)
		grants = append(grants, Grant{Subject: subject, Action: Action(action)})
	}
	return CapsFrom(grants...)
}

func encodeFlow(f FlowBudgets) []byte {
	var buf []byte
	for _, key := range f.Keys() {
		b := f.Get(key)
		buf = protowire.AppendBytes(buf, key.Context[:])
		buf = protowire.AppendBytes(buf, key.Authority[:])
		buf = protowire.AppendVarint(buf, b.Limit)
		buf = protowire.AppendVarint(buf, b.Spent)
		buf = protowire.AppendVarint(buf, b.Epoch)
	}
	return buf
}

func decodeFlow(data []byte) FlowBudgets {
	out := NewFlowBudgets()
	for len(data) > 0 {
		ctxBytes, n := protowire.ConsumeBytes(data)
		if n < 0 {
			break
		}
		data = data[n:]
		authBytes, n := protowire.ConsumeBytes(data)
		if n < 0 {
			break
		}
		data = data[n:]
		limit, n := protowire.ConsumeVarint(data)
		if n < 0 {
			break
		}
		data = data[n:]
		spent, n := protowire.ConsumeVarint(data)
		if n < 0 {
			break
		}
		data = data[n:]
		epoch, n := protowire.ConsumeVarint(data)
		if n < 0 {
			break
		}
		data = data[n:]

		var ctx, auth aid.ID256
		copy(ctx[:], ctxBytes)
		copy(auth[:], authBytes)
		out = out.With(BudgetKey{Context: ctx, Authority: auth}, Budget{Limit: limit, Spent: spent, Epoch: epoch})
	}
	return out
}

func encodeTree(t TreeCommitments) []byte {
	var buf []byte
	for _, epoch := range t.Epochs() {
		h, _ := t.Get(epoch)
		buf = protowire.AppendVarint(buf, epoch)
		buf = protowire.AppendBytes(buf, h[:])
	}
	return buf
}

func decodeTree(data []byte) TreeCommitments {
	out := NewTreeCommitments()
	for len(data) > 0 {
		epoch, n := protowire.ConsumeVarint(data)
		if n < 0 {
			break
		}
		data = data[n:]
		hashBytes, n := protowire.ConsumeBytes(data)
		if n < 0 {
			break
		}
		data = data[n:]
		var h aid.Hash32
		copy(h[:], hashBytes)
		out = out.With(epoch, h)
	}
	return out
}
