package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/crypto"
	"github.com/modelrelay/relay-api/internal/store"
	"github.com/modelrelay/relay-api/internal/store/cache"
	"github.com/modelrelay/relay-api/internal/store/model"
	"github.com/modelrelay/relay-api/pkg/api"
)

// Defaults applied to fields a caller leaves empty.
const (
	DefaultName     = "Untitled Model"
	DefaultProtocol = "openai"
	DefaultPath     = "/v1/chat/completions"
)

const (
	listCacheKey = "models:list"
	listCacheTTL = 30 * time.Second
)

// ErrEncryptionUnavailable is returned by Upsert when a plaintext credential
// was supplied but no encryption key is configured. Nothing is persisted.
var ErrEncryptionUnavailable = errors.New("credential encryption unavailable")

// Service manages the stored model configurations.
type Service interface {
	// List returns every configuration with the stored credential redacted.
	List(ctx context.Context) ([]model.ModelConfig, error)
	// Upsert inserts or fully replaces a configuration and returns its id.
	Upsert(ctx context.Context, req *api.ModelUpsertRequest) (string, error)
	// Delete removes a configuration; missing ids succeed.
	Delete(ctx context.Context, id string) error
	// Get returns the full record including the encrypted credential. It is
	// relay-internal and must never feed an HTTP response.
	Get(ctx context.Context, id string) (*model.ModelConfig, error)
}

type service struct {
	logger *zap.Logger
	repo   store.Repository
	cipher *crypto.Cipher
	cache  cache.CacheService
}

func NewService(logger *zap.Logger, repo store.Repository, cipher *crypto.Cipher, cache cache.CacheService) Service {
	return &service{
		logger: logger,
		repo:   repo,
		cipher: cipher,
		cache:  cache,
	}
}

func (s *service) List(ctx context.Context) ([]model.ModelConfig, error) {
	var cached []model.ModelConfig
	if err := s.cache.Get(ctx, listCacheKey, &cached); err == nil {
		return cached, nil
	}

	configs, err := s.repo.Models().List(ctx)
	if err != nil {
		return nil, err
	}

	// Redact before anything leaves this package. The struct also excludes
	// the credential from JSON, so the cached copy is clean either way.
	for i := range configs {
		configs[i].APIKeyEnc = ""
	}

	if err := s.cache.Set(ctx, listCacheKey, configs, listCacheTTL); err != nil {
		s.logger.Warn("failed to cache model list", zap.Error(err))
	}

	return configs, nil
}

func (s *service) Upsert(ctx context.Context, req *api.ModelUpsertRequest) (string, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	var apiKeyEnc string
	if req.APIKey != "" {
		blob, err := s.cipher.Encrypt(req.APIKey)
		if err != nil {
			return "", ErrEncryptionUnavailable
		}
		apiKeyEnc = blob
	}

	cfg := &model.ModelConfig{
		ID:        id,
		Name:      req.Name,
		Protocol:  req.Protocol,
		BaseURL:   req.BaseURL,
		Path:      req.Path,
		Model:     req.Model,
		Params:    req.Params,
		Stream:    req.Stream == nil || *req.Stream,
		Headers:   req.Headers,
		APIKeyEnc: apiKeyEnc,
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Protocol == "" {
		cfg.Protocol = DefaultProtocol
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	if err := s.repo.Models().Upsert(ctx, cfg); err != nil {
		return "", err
	}

	s.invalidate(ctx)
	return id, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Models().Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*model.ModelConfig, error) {
	return s.repo.Models().Get(ctx, id)
}

func (s *service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, listCacheKey); err != nil {
		s.logger.Warn("failed to invalidate model list cache", zap.Error(err))
	}
}
