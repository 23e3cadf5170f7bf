package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"

	"legitid/internal/platform/config"
	dErrors "legitid/pkg/domain-errors"
)

// loadSigner builds transact options from the configured private key.
// An empty key is not an error: the service then runs read-only and
// write operations report the missing-signer condition to callers.
func loadSigner(cfg config.ChainConfig) (*bind.TransactOpts, error) {
	if cfg.PrivateKeyHex == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid chain private key")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "build chain transactor")
	}
	return opts, nil
}

// HasSigner reports whether write operations are available. Pages use this
// to show the optional registration step as disabled rather than failing.
func (s *Service) HasSigner() bool {
	return s.signer != nil
}
