package frost

import (
	"fmt"
	"io"

	"filippo.io/edwards25519"
)

var oneLE = func() [32]byte {
	var b [32]byte
	b[0] = 1
	return b
}()

// scalarOne returns the multiplicative identity of the scalar field.
func scalarOne() *edwards25519.Scalar {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(oneLE[:])
	if err != nil {
		panic("frost: canonical encoding of 1 rejected: " + err.Error())
	}
	return s
}

// Polynomial is a degree (threshold-1) polynomial over the Ed25519 scalar
// field, the secret-sharing primitive behind Aura's dealer-free DKG. The
// retrieved original_source pack did not include aura-consensus/src/dkg.rs,
// so this is grounded on the standard Pedersen/Feldman verifiable secret
// sharing construction (the scheme draft-irtf-cfrg-frost's DKG specializes),
// generalizing the teacher's polynomial-shaped confidence tracking in
// threshold/poly_threshold.go from vote weights to field coefficients.
type Polynomial struct {
	Coefficients []*edwards25519.Scalar // Coefficients[0] is the dealer's secret share of the joint secret.
}

// DealerPackage is one participant's contribution to a joint DKG round:
// public commitments to its polynomial (Feldman VSS) plus the secret share
// it privately sends each other participant over an authenticated channel
// (in Aura, a guard-chain-wrapped choreography send, see protocols/dkg).
type DealerPackage struct {
	Dealer      Identifier
	Commitments []*edwards25519.Point // Commitments[i] = Coefficients[i]*G
	SharesFor   map[Identifier]*edwards25519.Scalar
}

// NewPolynomial samples a fresh random polynomial of the given degree.
func NewPolynomial(degree int, rng io.Reader) (Polynomial, error) {
	coeffs := make([]*edwards25519.Scalar, degree+1)
	for i := range coeffs {
		s, err := randomScalar(rng)
		if err != nil {
			return Polynomial{}, err
		}
		coeffs[i] = s
	}
	return Polynomial{Coefficients: coeffs}, nil
}

// Evaluate computes f(x) for the participant identifier x, treated as a
// nonzero scalar field element (see identifierToNat).
func (p Polynomial) Evaluate(id Identifier) *edwards25519.Scalar {
	x := natToScalar(identifierToNat(id))
	acc := edwards25519.NewScalar()
	for i := len(p.Coefficients) - 1; i >= 0; i-- {
		acc.Multiply(acc, x)
		acc.Add(acc, p.Coefficients[i])
	}
	return acc
}

// NewPolynomialWithSecret samples a random polynomial of the given degree
// whose constant term is fixed to secret rather than random, the
// building block for proactive resharing: an old share-holder sub-deals
// its own (Lagrange-reweighted) share to a new committee instead of a
// fresh joint secret.
func NewPolynomialWithSecret(secret *edwards25519.Scalar, degree int, rng io.Reader) (Polynomial, error) {
	poly, err := NewPolynomial(degree, rng)
	if err != nil {
		return Polynomial{}, err
	}
	poly.Coefficients[0] = secret
	return poly, nil
}

// Deal produces this dealer's DealerPackage: Feldman commitments to its
// polynomial and a private share for every participant (including itself),
// ready to distribute over the DKG choreography.
func Deal(dealer Identifier, threshold int, participants []Identifier, rng io.Reader) (Polynomial, DealerPackage, error) {
	poly, err := NewPolynomial(threshold-1, rng)
	if err != nil {
		return Polynomial{}, DealerPackage{}, err
	}
	return poly, DealWithPolynomial(dealer, poly, participants), nil
}

// DealWithPolynomial packages an already-sampled polynomial into a
// DealerPackage: Feldman commitments plus one share per participant.
// Used directly by Deal (a fresh random polynomial) and by proactive
// resharing (a polynomial whose constant term is a reweighted existing
// share, see NewPolynomialWithSecret).
func DealWithPolynomial(dealer Identifier, poly Polynomial, participants []Identifier) DealerPackage {
	commitments := make([]*edwards25519.Point, len(poly.Coefficients))
	for i, c := range poly.Coefficients {
		commitments[i] = edwards25519.NewIdentityPoint().ScalarBaseMult(c)
	}

	shares := make(map[Identifier]*edwards25519.Scalar, len(participants))
	for _, p := range participants {
		shares[p] = poly.Evaluate(p)
	}

	return DealerPackage{
		Dealer:      dealer,
		Commitments: commitments,
		SharesFor:   shares,
	}
}

// VerifyDealerShare checks a received share s against the dealer's Feldman
// commitments: s*G == sum_i commitments[i] * x^i. A mismatch means the
// dealer is byzantine and must be excluded from the joint key (spec §7,
// Byzantine class: "invalid share; suspects recorded; never silently
// retried").
func VerifyDealerShare(id Identifier, share *edwards25519.Scalar, pkg DealerPackage) bool {
	x := natToScalar(identifierToNat(id))

	lhs := edwards25519.NewIdentityPoint().ScalarBaseMult(share)

	rhs := edwards25519.NewIdentityPoint()
	xPow := scalarOne()
	for _, c := range pkg.Commitments {
		term := edwards25519.NewIdentityPoint().ScalarMult(xPow, c)
		rhs.Add(rhs, term)
		xPow.Multiply(xPow, x)
	}
	return lhs.Equal(rhs) == 1
}

// CombineShares sums the verified per-dealer shares this participant
// received into its final joint-secret share, and sums every dealer's
// constant-term commitment into the group public key, completing a
// dealer-free (n-of-n dealers, t-of-n signers) DKG round.
func CombineShares(id Identifier, received map[Identifier]*edwards25519.Scalar, packages map[Identifier]DealerPackage, epoch uint64) (KeyShare, GroupPublicKey, error) {
	if len(received) != len(packages) {
		return KeyShare{}, GroupPublicKey{}, fmt.Errorf("frost: dkg combine requires a share from every dealer")
	}

	secret := edwards25519.NewScalar()
	groupKey := edwards25519.NewIdentityPoint()
	for dealer, share := range received {
		pkg, ok := packages[dealer]
		if !ok {
			return KeyShare{}, GroupPublicKey{}, fmt.Errorf("frost: no dealer package from %s", dealer)
		}
		if !VerifyDealerShare(id, share, pkg) {
			return KeyShare{}, GroupPublicKey{}, fmt.Errorf("frost: share from dealer %s failed Feldman verification", dealer)
		}
		secret.Add(secret, share)
		groupKey.Add(groupKey, pkg.Commitments[0])
	}

	public := edwards25519.NewIdentityPoint().ScalarBaseMult(secret)

	return KeyShare{
			Identifier: id,
			Secret:     secret,
			Public:     public,
			Epoch:      epoch,
		}, GroupPublicKey{
			Point: groupKey,
		}, nil
}
