package settlement

// ProofVerifier checks evidence that an off-ledger payment happened.
type ProofVerifier interface {
	Verify(p *Payment, proof []byte) bool
}

// NonEmptyProof accepts any non-empty proof. It stands in until a real
// payment gateway is connected.
type NonEmptyProof struct{}

func (NonEmptyProof) Verify(_ *Payment, proof []byte) bool { return len(proof) > 0 }
