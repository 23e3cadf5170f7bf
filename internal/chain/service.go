// Package chain is the facade over the identity-registry contract: register
// an identity hash on chain, flip or read its verified flag, and compute
// content hashes for documents. The portal treats the chain as optional; an
// unconfigured service stays usable and reports "not initialized" on use.
package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/crypto/sha3"

	"legitid/internal/platform/config"
	"legitid/internal/platform/metrics"
	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
	"legitid/pkg/platform/circuit"
	"legitid/pkg/platform/sentinel"
)

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
	TxUnknown   TxStatus = "unknown"
)

// Service wraps the JSON-RPC client and the bound registry contract.
// client and contract are nil when no RPC URL is configured; signer is nil
// when no private key is configured (read-only mode).
type Service struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	signer   *bind.TransactOpts
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New connects to the configured RPC endpoint and binds the registry
// contract. With no RPC URL configured it returns a service whose chain
// operations report "not initialized"; hashing still works.
func New(ctx context.Context, cfg config.ChainConfig, m *metrics.Metrics, logger *slog.Logger) (*Service, error) {
	s := &Service{
		breaker: circuit.New("chain-rpc", circuit.WithFailureThreshold(5)),
		metrics: m,
		logger:  logger,
	}
	if cfg.RPCURL == "" {
		logger.Info("chain facade disabled, no RPC URL configured")
		return s, nil
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "dial chain RPC")
	}

	parsed, err := abi.JSON(strings.NewReader(identityRegistryABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse registry ABI: %w", err)
	}

	signer, err := loadSigner(cfg)
	if err != nil {
		client.Close()
		return nil, err
	}

	s.client = client
	s.contract = bind.NewBoundContract(
		common.HexToAddress(cfg.ContractAddr), parsed, client, client, client)
	s.signer = signer

	logger.Info("chain facade initialized",
		"contract", cfg.ContractAddr,
		"chain_id", cfg.ChainID,
		"read_only", signer == nil,
	)
	return s, nil
}

func (s *Service) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *Service) checkRead() error {
	if s.contract == nil {
		return dErrors.Wrap(sentinel.ErrNotInitialized, dErrors.CodeInvalidState,
			"blockchain service not initialized")
	}
	return nil
}

func (s *Service) checkWrite() error {
	if s.contract == nil || s.signer == nil {
		return dErrors.Wrap(sentinel.ErrNotInitialized, dErrors.CodeInvalidState,
			"blockchain service not initialized or no signer available")
	}
	return nil
}

// record feeds the breaker and the transaction counter with one outcome.
func (s *Service) record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.Warn("chain RPC circuit opened")
		}
	} else {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.Info("chain RPC circuit closed")
		}
	}
	if s.metrics != nil {
		s.metrics.ChainTransactions.WithLabelValues(operation, outcome).Inc()
	}
}

func (s *Service) guard() error {
	if s.breaker.IsOpen() {
		return dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable,
			"chain RPC unavailable")
	}
	return nil
}

// transact submits a state-changing call and waits for it to be mined.
func (s *Service) transact(ctx context.Context, operation string, args ...any) (string, error) {
	if err := s.checkWrite(); err != nil {
		return "", err
	}
	if err := s.guard(); err != nil {
		return "", err
	}

	opts := *s.signer
	opts.Context = ctx
	tx, err := s.contract.Transact(&opts, operation, args...)
	if err != nil {
		s.record(operation, err)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable,
			fmt.Sprintf("failed to %s on blockchain", operationVerb(operation)))
	}

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		s.record(operation, err)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable,
			fmt.Sprintf("failed to %s on blockchain", operationVerb(operation)))
	}
	if receipt.Status != 1 {
		err := fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
		s.record(operation, err)
		return "", dErrors.Wrap(err, dErrors.CodeInvalidState,
			fmt.Sprintf("failed to %s on blockchain", operationVerb(operation)))
	}

	s.record(operation, nil)
	return tx.Hash().Hex(), nil
}

func operationVerb(operation string) string {
	switch operation {
	case "registerIdentity":
		return "register identity"
	case "verifyIdentity":
		return "verify identity"
	case "revokeIdentity":
		return "revoke identity"
	default:
		return operation
	}
}

// RegisterIdentity stores the user's document hash on chain and returns the
// transaction hash.
func (s *Service) RegisterIdentity(ctx context.Context, userID id.UserID, documentHash, verificationLevel string) (string, error) {
	return s.transact(ctx, "registerIdentity", userID.String(), documentHash, verificationLevel)
}

// VerifyIdentity flips the on-chain verified flag for the user.
func (s *Service) VerifyIdentity(ctx context.Context, userID id.UserID) (string, error) {
	return s.transact(ctx, "verifyIdentity", userID.String())
}

// RevokeIdentity clears the on-chain verified flag for the user.
func (s *Service) RevokeIdentity(ctx context.Context, userID id.UserID) (string, error) {
	return s.transact(ctx, "revokeIdentity", userID.String())
}

// GetIdentity reads the on-chain record for a user. A failed call is a
// negative result, not an error: the caller sees "no on-chain identity".
func (s *Service) GetIdentity(ctx context.Context, userID id.UserID) (*IdentityRecord, error) {
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	if err := s.guard(); err != nil {
		return nil, err
	}

	var out []any
	err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getIdentity", userID.String())
	s.record("getIdentity", err)
	if err != nil {
		s.logger.Warn("chain getIdentity failed",
			"user_id", userID,
			"error", err,
		)
		return nil, nil
	}
	if len(out) != 4 {
		return nil, nil
	}

	record := &IdentityRecord{}
	record.DocumentHash, _ = out[0].(string)
	record.VerificationLevel, _ = out[1].(string)
	if ts, ok := out[2].(*big.Int); ok {
		record.Timestamp = ts.Int64()
	}
	record.IsVerified, _ = out[3].(bool)
	return record, nil
}

// IsIdentityVerified reads the verified flag. Call failures report false.
func (s *Service) IsIdentityVerified(ctx context.Context, userID id.UserID) (bool, error) {
	if err := s.checkRead(); err != nil {
		return false, err
	}
	if err := s.guard(); err != nil {
		return false, err
	}

	var out []any
	err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isIdentityVerified", userID.String())
	s.record("isIdentityVerified", err)
	if err != nil {
		s.logger.Warn("chain isIdentityVerified failed",
			"user_id", userID,
			"error", err,
		)
		return false, nil
	}
	verified, _ := out[0].(bool)
	return verified, nil
}

// TransactionStatus resolves the lifecycle state of a submitted transaction.
// A missing receipt means the transaction is still pending; an RPC failure
// maps to unknown rather than an error.
func (s *Service) TransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	if s.client == nil {
		return TxUnknown, dErrors.Wrap(sentinel.ErrNotInitialized, dErrors.CodeInvalidState,
			"blockchain service not initialized")
	}
	if err := s.guard(); err != nil {
		return TxUnknown, err
	}

	receipt, err := s.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		s.record("transactionStatus", nil)
		return TxPending, nil
	}
	s.record("transactionStatus", err)
	if err != nil {
		s.logger.Warn("chain receipt lookup failed",
			"tx_hash", txHash,
			"error", err,
		)
		return TxUnknown, nil
	}
	if receipt.Status == 1 {
		return TxConfirmed, nil
	}
	return TxFailed, nil
}

// GasPrice returns the current suggested gas price, zero on failure.
func (s *Service) GasPrice(ctx context.Context) (*big.Int, error) {
	if s.client == nil {
		return nil, dErrors.Wrap(sentinel.ErrNotInitialized, dErrors.CodeInvalidState,
			"blockchain service not initialized")
	}
	price, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		s.logger.Warn("chain gas price lookup failed", "error", err)
		return big.NewInt(0), nil
	}
	return price, nil
}

// GenerateDocumentHash computes the keccak-256 hash of document data,
// hex-encoded with a 0x prefix. Needs no chain connection.
func GenerateDocumentHash(documentData string) string {
	return crypto.Keccak256Hash([]byte(documentData)).Hex()
}

// GenerateFileHash streams file content through keccak-256 so large uploads
// never need to be held in memory.
func GenerateFileHash(r io.Reader) (string, error) {
	h := sha3.NewLegacyKeccak256()
	if _, err := io.Copy(h, r); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read file")
	}
	return hexutil.Encode(h.Sum(nil)), nil
}
