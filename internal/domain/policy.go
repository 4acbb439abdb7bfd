package domain

// PolicyInput is what the optional acceptance policy evaluates. The policy
// can only overlay the structured result; it never changes the core
// signature verdict.
type PolicyInput struct {
	Result SignatureVerificationResult `json:"result"`
	Record CanonicalAttestationData    `json:"record"`
}
