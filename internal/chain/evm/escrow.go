package evm

import (
	"context"
	"math/big"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// Escrow drives the on-chain escrow contract through the ABI. Principal is
// pulled by the contract via allowance; only the safety deposit travels as
// native value.
type Escrow struct {
	client   *Client
	contract common.Address
	abi      abi.ABI
}

func NewEscrow(client *Client, contract common.Address) *Escrow {
	return &Escrow{client: client, contract: contract, abi: EscrowABI()}
}

func (e *Escrow) Address() common.Address {
	return e.contract
}

func (e *Escrow) DeploySrc(ctx context.Context, p chain.DeployParams) (common.Hash, error) {
	data, err := e.abi.Pack("deploySrc", p.OrderHash, p.HashLock, p.Token, p.Amount, p.Maker, new(big.Int).SetUint64(p.Deadline))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack deploySrc call")
	}
	return e.client.SubmitTransaction(ctx, e.contract, data, p.SafetyDeposit)
}

func (e *Escrow) DeployDst(ctx context.Context, p chain.DeployParams, proof chain.Proof) (common.Hash, error) {
	data, err := e.abi.Pack("deployDst", p.OrderHash, p.HashLock, p.Token, p.Amount, p.Maker,
		new(big.Int).SetUint64(p.Deadline), new(big.Int).SetUint64(proof.ChainID), proof.TxHash)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack deployDst call")
	}
	return e.client.SubmitTransaction(ctx, e.contract, data, p.SafetyDeposit)
}

func (e *Escrow) Withdraw(ctx context.Context, orderHash common.Hash, secret [32]byte) (common.Hash, error) {
	data, err := e.abi.Pack("withdraw", orderHash, secret)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack withdraw call")
	}
	return e.client.SubmitTransaction(ctx, e.contract, data, nil)
}

func (e *Escrow) Cancel(ctx context.Context, orderHash common.Hash) (common.Hash, error) {
	data, err := e.abi.Pack("cancel", orderHash)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack cancel call")
	}
	return e.client.SubmitTransaction(ctx, e.contract, data, nil)
}

func (e *Escrow) SubmitProof(ctx context.Context, proof chain.Proof) (common.Hash, error) {
	data, err := e.abi.Pack("submitProof", proof.OrderHash, proof.HashLock,
		new(big.Int).SetUint64(proof.ChainID), proof.Escrow, proof.TxHash, new(big.Int).SetUint64(proof.BlockNumber))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack submitProof call")
	}
	return e.client.SubmitTransaction(ctx, e.contract, data, nil)
}

func (e *Escrow) ProofAccepted(ctx context.Context, orderHash common.Hash) (bool, error) {
	data, err := e.abi.Pack("proofAccepted", orderHash)
	if err != nil {
		return false, errors.Wrap(err, "failed to pack proofAccepted call")
	}

	out, err := e.client.eth.CallContract(ctx, ethereum.CallMsg{To: &e.contract, Data: data}, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to call proofAccepted")
	}

	res, err := e.abi.Unpack("proofAccepted", out)
	if err != nil {
		return false, errors.Wrap(err, "failed to unpack proofAccepted result")
	}
	accepted, ok := res[0].(bool)
	if !ok {
		return false, errors.New("unexpected proofAccepted result type")
	}
	return accepted, nil
}
