package evm

import (
	"context"
	"math/big"
	"time"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const receiptPollPeriod = 2 * time.Second

// Client adapts an EVM-compatible node (either the contract chain or the
// EVM-compatible parachain) to the chain.Client port.
type Client struct {
	eth    ethBackend
	signer *bind.TransactOpts
}

// ethBackend is the subset of ethclient.Client the adapter uses; keeping it
// an interface allows wiring a simulated backend in tests.
type ethBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

func NewClient(eth ethBackend, signer *bind.TransactOpts) *Client {
	return &Client{eth: eth, signer: signer}
}

func (c *Client) SubmitTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.signer.From)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to get pending nonce")
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to get gas price")
	}

	if value == nil {
		value = new(big.Int)
	}
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:     c.signer.From,
		To:       &to,
		Value:    value,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to estimate gas")
	}

	tx := types.NewTransaction(nonce, to, value, gas, gasPrice, data)
	signed, err := c.signer.Signer(c.signer.From, tx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to sign transaction")
	}

	if err = c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to send transaction")
	}

	return signed.Hash(), nil
}

func (c *Client) AwaitConfirmation(ctx context.Context, tx common.Hash, depth uint64) (*chain.Receipt, error) {
	ticker := time.NewTicker(receiptPollPeriod)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, tx)
		if err != nil && err != ethereum.NotFound {
			return nil, errors.Wrap(err, "failed to get transaction receipt")
		}

		if receipt != nil {
			head, err := c.eth.BlockNumber(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to get head block number")
			}
			if head >= receipt.BlockNumber.Uint64()+depth {
				logs := make([]types.Log, 0, len(receipt.Logs))
				for _, l := range receipt.Logs {
					logs = append(logs, *l)
				}
				return &chain.Receipt{
					TxHash:      tx,
					BlockNumber: receipt.BlockNumber.Uint64(),
					Success:     receipt.Status == types.ReceiptStatusSuccessful,
					Logs:        logs,
				}, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "gave up waiting for confirmation")
		case <-ticker.C:
		}
	}
}

func (c *Client) SubscribeLogs(ctx context.Context, q ethereum.FilterQuery, sink chan<- types.Log) (ethereum.Subscription, error) {
	return c.eth.SubscribeFilterLogs(ctx, q, sink)
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.eth.FilterLogs(ctx, q)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}
