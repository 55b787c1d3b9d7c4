package service

import (
	"context"
	"math/big"
	"strconv"
	"sync"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/Swapica/relayer-svc/internal/chain/evm"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type mockSub struct {
	errs chan error
}

func (s *mockSub) Unsubscribe() {}

func (s *mockSub) Err() <-chan error { return s.errs }

// mockClient is a scripted chain: receipts and logs appear as the mock escrow
// executes operations against it.
type mockClient struct {
	mu       sync.Mutex
	height   uint64
	txSeq    int
	receipts map[common.Hash]*chain.Receipt
	logs     []types.Log
}

func newMockClient() *mockClient {
	return &mockClient{height: 100, receipts: make(map[common.Hash]*chain.Receipt)}
}

func (m *mockClient) SubmitTransaction(_ context.Context, _ common.Address, data []byte, _ *big.Int) (common.Hash, error) {
	return crypto.Keccak256Hash(data), nil
}

func (m *mockClient) AwaitConfirmation(_ context.Context, tx common.Hash, _ uint64) (*chain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.receipts[tx]
	if !ok {
		return nil, errors.New("transaction not found")
	}
	return r, nil
}

func (m *mockClient) SubscribeLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- types.Log) (ethereum.Subscription, error) {
	return &mockSub{errs: make(chan error)}, nil
}

func (m *mockClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []types.Log
	for _, l := range m.logs {
		if !topicsMatch(q.Topics, l.Topics) {
			continue
		}
		result = append(result, l)
	}
	return result, nil
}

func topicsMatch(query [][]common.Hash, topics []common.Hash) bool {
	for i, alternatives := range query {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(topics) {
			return false
		}
		found := false
		for _, alt := range alternatives {
			if topics[i] == alt {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *mockClient) BlockNumber(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.height, nil
}

func (m *mockClient) addReceipt(tx common.Hash, success bool) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.height++
	m.receipts[tx] = &chain.Receipt{TxHash: tx, BlockNumber: m.height, Success: success}
	return m.height
}

func (m *mockClient) appendLog(l types.Log) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, l)
}

// mockEscrow scripts the escrow contract of one chain.
type mockEscrow struct {
	client   *mockClient
	contract common.Address
	abi      abi.ABI

	mu               sync.Mutex
	failDeploy       bool
	revertDeploy     bool
	failWithdraw     bool
	revertWithdraw   bool
	revertProof      bool
	accepted         map[common.Hash]bool
	deployCalls      int
	withdrawCalls    int
	cancelCalls      int
	submitProofCalls int
}

func newMockEscrow(client *mockClient, contract common.Address) *mockEscrow {
	return &mockEscrow{
		client:   client,
		contract: contract,
		abi:      evm.EscrowABI(),
		accepted: make(map[common.Hash]bool),
	}
}

func (m *mockEscrow) Address() common.Address { return m.contract }

func (m *mockEscrow) DeploySrc(_ context.Context, p chain.DeployParams) (common.Hash, error) {
	return m.deploy("SrcEscrowCreated", p)
}

func (m *mockEscrow) DeployDst(_ context.Context, p chain.DeployParams, _ chain.Proof) (common.Hash, error) {
	return m.deploy("DstEscrowCreated", p)
}

func (m *mockEscrow) deploy(eventName string, p chain.DeployParams) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deployCalls++
	if m.failDeploy {
		return common.Hash{}, errors.New("rpc unavailable")
	}

	tx := m.nextTx()
	block := m.client.addReceipt(tx, !m.revertDeploy)
	if !m.revertDeploy {
		data, err := m.abi.Events[eventName].Inputs.NonIndexed().Pack(
			m.contract, [32]byte(p.HashLock), p.Amount, p.SafetyDeposit)
		if err != nil {
			return common.Hash{}, err
		}
		m.client.appendLog(types.Log{
			Address:     m.contract,
			Topics:      []common.Hash{m.abi.Events[eventName].ID, p.OrderHash},
			Data:        data,
			BlockNumber: block,
			TxHash:      tx,
		})
	}
	return tx, nil
}

func (m *mockEscrow) Withdraw(_ context.Context, orderHash common.Hash, secret [32]byte) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.withdrawCalls++
	if m.failWithdraw {
		return common.Hash{}, errors.New("rpc unavailable")
	}

	tx := m.nextTx()
	block := m.client.addReceipt(tx, !m.revertWithdraw)
	if !m.revertWithdraw {
		data, err := m.abi.Events["SecretRevealed"].Inputs.NonIndexed().Pack(secret)
		if err != nil {
			return common.Hash{}, err
		}
		m.client.appendLog(types.Log{
			Address:     m.contract,
			Topics:      []common.Hash{m.abi.Events["SecretRevealed"].ID, orderHash},
			Data:        data,
			BlockNumber: block,
			TxHash:      tx,
		})
	}
	return tx, nil
}

func (m *mockEscrow) Cancel(_ context.Context, _ common.Hash) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelCalls++
	tx := m.nextTx()
	m.client.addReceipt(tx, true)
	return tx, nil
}

func (m *mockEscrow) SubmitProof(_ context.Context, proof chain.Proof) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submitProofCalls++
	tx := m.nextTx()
	m.client.addReceipt(tx, !m.revertProof)
	if !m.revertProof {
		m.accepted[proof.OrderHash] = true
	}
	return tx, nil
}

func (m *mockEscrow) ProofAccepted(_ context.Context, orderHash common.Hash) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted[orderHash], nil
}

func (m *mockEscrow) nextTx() common.Hash {
	m.client.mu.Lock()
	m.client.txSeq++
	seq := m.client.txSeq
	m.client.mu.Unlock()
	return crypto.Keccak256Hash(m.contract.Bytes(), []byte(strconv.Itoa(seq)))
}
