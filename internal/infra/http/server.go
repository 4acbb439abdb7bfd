package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"docseal/internal/config"
	"docseal/internal/domain"
	"docseal/internal/infra/cachemem"
	"docseal/internal/infra/crypto"
	"docseal/internal/infra/db"
	"docseal/internal/infra/keyring"
	"docseal/internal/infra/policyopa"
	"docseal/internal/infra/ratelimit"
	"docseal/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	signUC   *usecase.SignAttestation
	verifyUC *usecase.VerifyAttestation
	rotation *usecase.KeyRotationService

	keys           usecase.KeyLifecycleStore
	attestations   usecase.AttestationRecorder
	attestationLog AttestationLog

	adminAPIKey string

	policyInitErr error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

// ServerDeps lets tests and embedders swap any collaborator.
type ServerDeps struct {
	Sign         *usecase.SignAttestation
	Verify       *usecase.VerifyAttestation
	Rotation     *usecase.KeyRotationService
	Keys           usecase.KeyLifecycleStore
	Attestations   usecase.AttestationRecorder
	AttestationLog AttestationLog
	AdminAPIKey    string
	RateLimiter    domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:          cfg,
		r:            r,
		signUC:       deps.Sign,
		verifyUC:     deps.Verify,
		rotation:     deps.Rotation,
		keys:           deps.Keys,
		attestations:   deps.Attestations,
		attestationLog: deps.AttestationLog,
		adminAPIKey:    deps.AdminAPIKey,
	}
	if s.rotation == nil && s.keys != nil {
		s.rotation = usecase.NewKeyRotationService(s.keys, nil)
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey

	cryptoSvc := crypto.NewService()

	var keys usecase.KeyLifecycleStore
	if s.store != nil && s.store.DB != nil {
		keys = db.NewSigningKeyRepository(s.store.DB)
		attestationRepo := db.NewAttestationRepository(s.store.DB)
		s.attestations = attestationRepo
		s.attestationLog = attestationRepo
	} else if s.cfg.SigningPrivateKeyPEM != "" || s.cfg.SigningPrivateKeySeedHex != "" {
		seeded, err := keyring.NewMemoryFromSeed(
			s.cfg.SigningPrivateKeyPEM,
			s.cfg.SigningPrivateKeySeedHex,
			domain.KeyPurpose(s.cfg.KeyPurpose),
		)
		if err != nil {
			log.Printf("keyring: rejecting configured key material: %v", err)
			keys = keyring.NewMemory()
		} else {
			keys = seeded
		}
	} else {
		keys = keyring.NewMemory()
	}
	s.keys = keys

	var policy usecase.PolicyEngine
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, s.cfg.PolicyBundleID)
		if err != nil {
			s.policyInitErr = err
		} else {
			policy = engine
		}
	}

	var cache usecase.VerificationCache
	if s.cfg.VerifyCacheTTLSeconds > 0 {
		cache = cachemem.New()
	}

	s.signUC = &usecase.SignAttestation{
		Keys:        keys,
		Crypto:      cryptoSvc,
		ServiceName: s.cfg.ServiceName,
		Purpose:     domain.KeyPurpose(s.cfg.KeyPurpose),
	}
	s.verifyUC = &usecase.VerifyAttestation{
		Keys:      keys,
		Crypto:    cryptoSvc,
		Cache:     cache,
		Policy:    policy,
		ClockSkew: s.cfg.ClockSkew(),
		CacheTTL:  s.cfg.VerifyCacheTTL(),
	}
	s.rotation = usecase.NewKeyRotationService(keys, nil)

	s.initRateLimit(nil)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisLimiterConfig{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			})
			if err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.GET("/keys", s.handleAdminListKeys)
		v1.POST("/keys", s.handleAdminRegisterKey)
		v1.GET("/attestations", s.handleAdminListAttestations)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	if s.policyInitErr != nil {
		return s.policyInitErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
