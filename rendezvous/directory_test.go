package rendezvous

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aura-network/aura/aid"
	"github.com/aura-network/aura/effects"
)

func sampleDescriptor(authority aid.AuthorityId, ctx aid.ContextId, from, until time.Time) Descriptor {
	d := Descriptor{
		AuthorityID:    authority,
		ContextID:      ctx,
		TransportHints: []string{"tcp://203.0.113.1:7000"},
		ValidFrom:      from,
		ValidUntil:     until,
	}
	d.PSKCommitment[0] = 1
	d.Nonce[0] = 2
	return d
}

func TestPublishThenResolveByContextAndAuthority(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(1000, 0))
	dir := NewDirectory(clock)

	authority := aid.AuthorityId{1}
	ctx := aid.Derive("CTX", []byte("alice-bob"))
	desc := sampleDescriptor(authority, ctx, time.Unix(0, 0), time.Unix(2000, 0))

	require.NoError(t, dir.Publish(desc))

	got, err := dir.Resolve(ctx, authority)
	require.NoError(t, err)
	require.Equal(t, desc, got)
}

func TestResolveMissingAuthorityReturnsNotFound(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(1000, 0))
	dir := NewDirectory(clock)

	ctx := aid.Derive("CTX", []byte("alice-bob"))
	_, err := dir.Resolve(ctx, aid.AuthorityId{9})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveExpiredDescriptorReturnsExpired(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(1000, 0))
	dir := NewDirectory(clock)

	authority := aid.AuthorityId{1}
	ctx := aid.Derive("CTX", []byte("alice-bob"))
	desc := sampleDescriptor(authority, ctx, time.Unix(0, 0), time.Unix(500, 0))
	require.NoError(t, dir.Publish(desc))

	_, err := dir.Resolve(ctx, authority)
	require.ErrorIs(t, err, ErrExpired)
}

func TestPublishRejectsStructurallyInvalidDescriptor(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(1000, 0))
	dir := NewDirectory(clock)

	desc := sampleDescriptor(aid.AuthorityId{1}, aid.Derive("CTX", []byte("x")), time.Unix(100, 0), time.Unix(50, 0))
	require.ErrorIs(t, dir.Publish(desc), ErrInvalidWindow)
}

func TestResolveAllReturnsOnlyValidDescriptors(t *testing.T) {
	clock := effects.NewFrozenClock(time.Unix(1000, 0))
	dir := NewDirectory(clock)
	ctx := aid.Derive("CTX", []byte("shared"))

	live := sampleDescriptor(aid.AuthorityId{1}, ctx, time.Unix(0, 0), time.Unix(2000, 0))
	expired := sampleDescriptor(aid.AuthorityId{2}, ctx, time.Unix(0, 0), time.Unix(500, 0))
	require.NoError(t, dir.Publish(live))
	require.NoError(t, dir.Publish(expired))

	all := dir.ResolveAll(ctx)
	require.Len(t, all, 1)
	require.Equal(t, aid.AuthorityId{1}, all[0].AuthorityID)
}
