package hipaa

import (
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"
)

// EncryptionService wraps a FieldEncryptor and adds a disabled mode for
// deployments where no key is configured.
type EncryptionService struct {
	encryptor FieldEncryptor
}

// NewEncryptionService builds the service from a 64-character hex key.
// An empty key disables encryption; a malformed one is an error so the
// server refuses to start.
func NewEncryptionService(key string, logger zerolog.Logger) (*EncryptionService, error) {
	if key == "" {
		logger.Warn().Msg("record encryption disabled: RECORD_ENCRYPTION_KEY is not set")
		return &EncryptionService{}, nil
	}

	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("RECORD_ENCRYPTION_KEY is not valid hex: %w", err)
	}

	enc, err := NewPHIEncryptor(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("create PHI encryptor: %w", err)
	}

	logger.Info().Msg("record field encryption enabled")
	return &EncryptionService{encryptor: enc}, nil
}

// Disabled returns a service that stores values as-is.
func Disabled() *EncryptionService {
	return &EncryptionService{}
}

func (s *EncryptionService) Encrypt(value string) (string, error) {
	if s == nil || s.encryptor == nil {
		return value, nil
	}
	return s.encryptor.Encrypt(value)
}

func (s *EncryptionService) Decrypt(value string) (string, error) {
	if s == nil || s.encryptor == nil {
		return value, nil
	}
	return s.encryptor.Decrypt(value)
}

func (s *EncryptionService) IsEnabled() bool {
	return s != nil && s.encryptor != nil
}
