package domain

import "powsign/pkg/pow/hashcash"

// ProtocolVersion tags the challenge frame.
const ProtocolVersion byte = 0x01

// Challenge is what the verifier asks of a prover.
type Challenge struct {
	Version    byte
	Difficulty uint64
}

// Proof is a proof-of-work solution signed by the prover's session key.
type Proof struct {
	Identity  string
	Nonce     uint64
	Signature []byte
	PublicKey []byte // PKIX DER
}

// Message rebuilds the signed message, identity ++ decimal(nonce).
func (p *Proof) Message() hashcash.Message {
	return hashcash.BuildMessage(p.Identity, p.Nonce)
}

// Receipt is returned for an accepted proof.
type Receipt struct {
	Digest      string
	Fingerprint string
}
