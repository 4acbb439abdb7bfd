package domain

// VerificationDetails reports the individual checks resolved before
// verification short-circuited. A missing Details on a failed result means
// verification stopped before any check ran.
type VerificationDetails struct {
	KeyFound       bool `json:"keyFound"`
	SignatureMatch bool `json:"signatureMatch"`
	TimestampValid bool `json:"timestampValid"`
}

type PolicyReceipt map[string]any

// SignatureVerificationResult is a value object built fresh per verification.
// Expected failures are encoded here, never raised as errors; only
// repository or infrastructure faults surface as hard errors so callers can
// distinguish "forged" from "verification indeterminate".
type SignatureVerificationResult struct {
	IsValid     bool                 `json:"isValid"`
	PublicKeyID string               `json:"publicKeyId"`
	Timestamp   string               `json:"timestamp"`
	Identity    Identity             `json:"identity"`
	Error       string               `json:"error,omitempty"`
	Details     *VerificationDetails `json:"details,omitempty"`
	Policy      PolicyReceipt        `json:"policy,omitempty"`
}
