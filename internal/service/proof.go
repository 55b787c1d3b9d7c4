package service

import (
	"context"
	"math/big"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/Swapica/relayer-svc/internal/chain/evm"
	"github.com/Swapica/relayer-svc/internal/config"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// ProofRelay extracts a finalized deployment proof from one chain and submits
// it to the verifying contract on the other.
type ProofRelay struct {
	log   *logan.Entry
	store *OrderStore
}

func NewProofRelay(log *logan.Entry, store *OrderStore) *ProofRelay {
	return &ProofRelay{log: log, store: store}
}

// ExtractProof reads the source escrow deployment log out of finalized state.
// It fails when the deployment block is not yet buried under the confirmation
// depth; that failure is transient and the caller retries.
func (p *ProofRelay) ExtractProof(ctx context.Context, src config.Network, orderHash common.Hash) (chain.Proof, error) {
	escrow, err := p.store.Escrow(orderHash, data.EscrowSideSrc)
	if err != nil {
		return chain.Proof{}, err
	}
	if escrow == nil {
		return chain.Proof{}, errors.Errorf("no source escrow recorded for order %s", orderHash.Hex())
	}

	head, err := src.Client.BlockNumber(ctx)
	if err != nil {
		return chain.Proof{}, errors.Wrap(err, "failed to get head block number")
	}
	if head < escrow.DeployedAtBlock+src.ConfirmationDepth {
		return chain.Proof{}, errors.Errorf("deployment block %d not yet final at head %d",
			escrow.DeployedAtBlock, head)
	}

	escrowAbi := evm.EscrowABI()
	q := ethereum.FilterQuery{
		Addresses: []common.Address{src.Contract},
		Topics: [][]common.Hash{
			{escrowAbi.Events["SrcEscrowCreated"].ID},
			{orderHash},
		},
		FromBlock: new(big.Int).SetUint64(escrow.DeployedAtBlock),
		ToBlock:   new(big.Int).SetUint64(escrow.DeployedAtBlock),
	}
	logs, err := src.Client.FilterLogs(ctx, q)
	if err != nil {
		return chain.Proof{}, errors.Wrap(err, "failed to filter deployment logs")
	}
	if len(logs) == 0 {
		return chain.Proof{}, errors.Errorf("deployment log not found for order %s", orderHash.Hex())
	}

	l := logs[0]
	var event escrowCreatedEvent
	if err = escrowAbi.UnpackIntoInterface(&event, "SrcEscrowCreated", l.Data); err != nil {
		return chain.Proof{}, errors.Wrap(err, "failed to unpack deployment event")
	}

	return chain.Proof{
		OrderHash:   orderHash,
		HashLock:    common.Hash(event.HashLock),
		ChainID:     uint64(src.ChainID),
		Escrow:      event.Escrow,
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
	}, nil
}

// SubmitProof is idempotent: a proof the destination verifier already accepted
// is a no-op, not an error. A rejected proof is permanent for that attempt and
// routes the order into the cancellation path.
func (p *ProofRelay) SubmitProof(ctx context.Context, dst config.Network, proof chain.Proof) error {
	log := p.log.WithFields(logan.F{"order_hash": proof.OrderHash.Hex(), "chain": dst.Name})

	accepted, err := dst.Escrow.ProofAccepted(ctx, proof.OrderHash)
	if err != nil {
		return errors.Wrap(err, "failed to check proof acceptance")
	}
	if accepted {
		log.Debug("proof already accepted, skipping submission")
		return nil
	}

	tx, err := dst.Escrow.SubmitProof(ctx, proof)
	if err != nil {
		return errors.Wrap(err, "failed to submit proof")
	}

	receipt, err := dst.Client.AwaitConfirmation(ctx, tx, dst.ConfirmationDepth)
	if err != nil {
		return errors.Wrap(err, "failed to confirm proof submission")
	}
	if !receipt.Success {
		return errors.From(ErrInvalidProof, logan.F{
			"order_hash": proof.OrderHash.Hex(),
			"tx_hash":    tx.Hex(),
		})
	}

	log.Info("proof submitted and accepted")
	return nil
}
