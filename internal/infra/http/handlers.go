package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"time"

	"docseal/internal/domain"
	"docseal/internal/infra/crypto"
	"docseal/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttestationLog is the read surface of the issuance audit trail.
type AttestationLog interface {
	ListByKey(ctx context.Context, keyID string) ([]domain.AttestationRecord, error)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type signRequest struct {
	Attestation domain.AttestationPackage `json:"attestation"`
}

type signResponse struct {
	Timestamp       string                          `json:"timestamp"`
	Signature       string                          `json:"signature"`
	PublicKey       string                          `json:"publicKey"`
	PublicKeyID     string                          `json:"publicKeyId"`
	AttestationData domain.CanonicalAttestationData `json:"attestationData"`
}

type verifyRequest struct {
	AttestationData domain.CanonicalAttestationData `json:"attestationData"`
}

type adminKeyRequest struct {
	ID            string `json:"id,omitempty"`
	PublicKeyPEM  string `json:"publicKeyPem"`
	PrivateKeyPEM string `json:"privateKeyPem,omitempty"`
	IsActive      bool   `json:"isActive"`
	ExpiresAt     string `json:"expiresAt,omitempty"`
}

// keyResponse never carries private key material.
type keyResponse struct {
	ID         string `json:"id"`
	Algorithm  string `json:"algorithm"`
	PublicKey  string `json:"publicKeyPem"`
	IsActive   bool   `json:"isActive"`
	KeyPurpose string `json:"keyPurpose"`
	CreatedAt  string `json:"createdAt"`
	ExpiresAt  string `json:"expiresAt,omitempty"`
	CanSign    bool   `json:"canSign"`
}

func (s *Server) handleSign(c *gin.Context) {
	if s.signUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	resp, err := s.signUC.Execute(c.Request.Context(), req.Attestation)
	if err != nil {
		writeError(c, err)
		return
	}
	s.recordIssuance(c, resp)
	c.JSON(http.StatusOK, signResponse{
		Timestamp:       resp.Timestamp,
		Signature:       resp.Signature,
		PublicKey:       resp.PublicKey,
		PublicKeyID:     resp.PublicKeyID,
		AttestationData: resp.Record,
	})
}

// recordIssuance is audit only. A failed insert never fails the sign call;
// the signature already exists and the caller is entitled to it.
func (s *Server) recordIssuance(c *gin.Context, resp *usecase.SignAttestationResponse) {
	if s.attestations == nil {
		return
	}
	signedAt, err := time.Parse(time.RFC3339Nano, resp.Timestamp)
	if err != nil {
		signedAt = time.Now().UTC()
	}
	rec := domain.AttestationRecord{
		ID:           uuid.NewString(),
		KeyID:        resp.PublicKeyID,
		ProviderCode: resp.Record.I.P,
		DocumentHash: resp.Record.H.C,
		SignedAt:     signedAt,
	}
	if err := s.attestations.Record(c.Request.Context(), rec); err != nil {
		log.Printf("attestation audit insert failed for key %s: %v", resp.PublicKeyID, err)
	}
}

func (s *Server) handleVerify(c *gin.Context) {
	if s.verifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.verifyUC.Execute(c.Request.Context(), req.AttestationData)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		switch c.Request.URL.Path {
		case "/v1/attestations:sign":
			if !s.enforceRateLimit(c, routeAttestationsSign) {
				return
			}
			s.handleSign(c)
			return
		case "/v1/attestations:verify":
			if !s.enforceRateLimit(c, routeAttestationsVerify) {
				return
			}
			s.handleVerify(c)
			return
		case "/v1/keys:rotate":
			s.handleAdminRotateKey(c)
			return
		}
	}
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func (s *Server) handleAdminListKeys(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.keys == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	keys, err := s.keys.ListByPurpose(c.Request.Context(), s.purpose())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]keyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, buildKeyResponse(key))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAdminRegisterKey(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.keys == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req adminKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.PublicKeyPEM == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_KEY_MATERIAL", "publicKeyPem is required")
		return
	}
	if _, err := crypto.ParsePublicKeyPEM(req.PublicKeyPEM); err != nil {
		writeError(c, err)
		return
	}
	if req.PrivateKeyPEM != "" {
		if _, err := crypto.ParsePrivateKeyPEM(req.PrivateKeyPEM); err != nil {
			writeError(c, err)
			return
		}
	}
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_KEY_MATERIAL", "invalid expiresAt")
			return
		}
		parsed = parsed.UTC()
		expiresAt = &parsed
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	key := domain.SigningKey{
		ID:            id,
		Algorithm:     domain.AlgorithmEd25519,
		PrivateKeyPEM: req.PrivateKeyPEM,
		PublicKeyPEM:  req.PublicKeyPEM,
		IsActive:      req.IsActive,
		KeyPurpose:    s.purpose(),
		CreatedAt:     time.Now().UTC(),
		ExpiresAt:     expiresAt,
	}
	if err := s.keys.Create(c.Request.Context(), key); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeErrorCode(c, http.StatusConflict, "ALREADY_EXISTS", "key already exists")
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildKeyResponse(key))
}

type attestationResponse struct {
	ID           string `json:"id"`
	KeyID        string `json:"keyId"`
	ProviderCode string `json:"providerCode"`
	DocumentHash string `json:"documentHash"`
	SignedAt     string `json:"signedAt"`
}

func (s *Server) handleAdminListAttestations(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.attestationLog == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	keyID := c.Query("keyId")
	if keyID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_QUERY", "keyId is required")
		return
	}
	recs, err := s.attestationLog.ListByKey(c.Request.Context(), keyID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]attestationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, attestationResponse{
			ID:           rec.ID,
			KeyID:        rec.KeyID,
			ProviderCode: rec.ProviderCode,
			DocumentHash: rec.DocumentHash,
			SignedAt:     rec.SignedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAdminRotateKey(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.rotation == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	key, err := s.rotation.Rotate(c.Request.Context(), s.purpose())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildKeyResponse(key))
}

func (s *Server) purpose() domain.KeyPurpose {
	if s.cfg.KeyPurpose != "" {
		return domain.KeyPurpose(s.cfg.KeyPurpose)
	}
	return domain.KeyPurposeAttestation
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func buildKeyResponse(key domain.SigningKey) keyResponse {
	out := keyResponse{
		ID:         key.ID,
		Algorithm:  key.Algorithm,
		PublicKey:  key.PublicKeyPEM,
		IsActive:   key.IsActive,
		KeyPurpose: string(key.KeyPurpose),
		CreatedAt:  key.CreatedAt.UTC().Format(time.RFC3339Nano),
		CanSign:    key.PrivateKeyPEM != "",
	}
	if key.ExpiresAt != nil {
		out.ExpiresAt = key.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		status, code = http.StatusBadRequest, "UNKNOWN_PROVIDER"
	case errors.Is(err, domain.ErrInvalidGeometry):
		status, code = http.StatusBadRequest, "INVALID_GEOMETRY"
	case errors.Is(err, domain.ErrInvalidKeyMaterial):
		status, code = http.StatusBadRequest, "INVALID_KEY_MATERIAL"
	case errors.Is(err, domain.ErrNoActiveKey):
		status, code = http.StatusServiceUnavailable, "NO_ACTIVE_KEY"
	case errors.Is(err, domain.ErrAmbiguousActiveKey):
		status, code = http.StatusInternalServerError, "KEY_AMBIGUOUS"
	case errors.Is(err, domain.ErrKeyRepository):
		status, code = http.StatusServiceUnavailable, "KEY_REPOSITORY"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
