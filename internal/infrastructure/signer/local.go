package signer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"wallet_monitor/internal/domain/entity"
)

// LocalKeySigner implements port.Signer with a locally held private key.
// It is the signing capability wired in when the service runs with its
// own funding wallet; browser-wallet deployments supply their own signer
// and this type stays out of the picture.
type LocalKeySigner struct {
	key    solana.PrivateKey
	logger *zap.Logger
}

// NewLocalKeySigner creates a signer from a base58-encoded private key.
func NewLocalKeySigner(privateKeyBase58 string, logger *zap.Logger) (*LocalKeySigner, error) {
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("parse signer private key: %w", err)
	}
	return &LocalKeySigner{key: key, logger: logger.Named("LocalKeySigner")}, nil
}

// NewLocalKeySignerFromFile reads the base58 key from a file.
func NewLocalKeySignerFromFile(path string, logger *zap.Logger) (*LocalKeySigner, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signer key file %s: %w", path, err)
	}
	return NewLocalKeySigner(string(raw), logger)
}

// PublicKey returns the signer's funding address.
func (s *LocalKeySigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// SignTransfer signs the serialized transaction message.
func (s *LocalKeySigner) SignTransfer(ctx context.Context, message []byte) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", entity.ErrSignerUnavailable, err)
	}
	sig, err := s.key.Sign(message)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", entity.ErrSignerDeclined, err)
	}
	return sig, nil
}
