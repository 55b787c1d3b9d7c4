package service

import (
	"crypto/rand"
	"sync"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// SecretVault custodies swap secrets until the reveal is authorized. Secrets
// never touch durable storage before the order reaches dst_locked; after the
// reveal they become public on-chain anyway and are persisted for audit by
// the revealing transition.
type SecretVault struct {
	log    *logan.Entry
	orders data.Orders

	mu      sync.Mutex
	secrets map[common.Hash][32]byte
}

func NewSecretVault(log *logan.Entry, orders data.Orders) *SecretVault {
	return &SecretVault{
		log:     log,
		orders:  orders,
		secrets: make(map[common.Hash][32]byte),
	}
}

// Generate draws a fresh random secret for the order and returns only its
// hash lock.
func (v *SecretVault) Generate(orderHash common.Hash) (common.Hash, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.secrets[orderHash]; ok {
		return common.Hash{}, errors.Errorf("secret for order %s already generated", orderHash.Hex())
	}

	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to read random bytes")
	}

	v.secrets[orderHash] = secret
	hashLock := crypto.Keccak256Hash(secret[:])
	v.log.WithField("order_hash", orderHash.Hex()).Debug("generated hash lock")
	return hashLock, nil
}

// Forget discards the held secret. Called when the order reaches a terminal
// status, or when order creation failed after the secret was drawn.
func (v *SecretVault) Forget(orderHash common.Hash) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.secrets, orderHash)
}

// Reveal hands out the secret once the order is confirmed locked on both
// chains. Anything earlier is an ordering bug and is rejected.
func (v *SecretVault) Reveal(orderHash common.Hash) ([32]byte, error) {
	o, err := v.orders.Get(orderHash)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "failed to get order")
	}
	if o == nil {
		return [32]byte{}, errors.From(ErrOrderNotFound, logan.F{"order_hash": orderHash.Hex()})
	}

	switch o.Status {
	case data.StatusDstLocked, data.StatusRevealing, data.StatusExecuted, data.StatusStuck:
	default:
		return [32]byte{}, errors.From(ErrRevealNotAuthorized, logan.F{
			"order_hash": orderHash.Hex(),
			"status":     o.Status.String(),
		})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	secret, ok := v.secrets[orderHash]
	if !ok {
		return [32]byte{}, errors.Errorf("no secret held for order %s", orderHash.Hex())
	}
	return secret, nil
}
