package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// escrowABI is the interface of the HTLC escrow contract deployed on both
// chains. Only the members the relayer touches are listed.
const escrowABI = `[
	{"type":"function","name":"deploySrc","stateMutability":"payable","inputs":[
		{"name":"orderHash","type":"bytes32"},
		{"name":"hashLock","type":"bytes32"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"maker","type":"address"},
		{"name":"deadline","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"deployDst","stateMutability":"payable","inputs":[
		{"name":"orderHash","type":"bytes32"},
		{"name":"hashLock","type":"bytes32"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"maker","type":"address"},
		{"name":"deadline","type":"uint256"},
		{"name":"srcChainId","type":"uint256"},
		{"name":"srcTxHash","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[
		{"name":"orderHash","type":"bytes32"},
		{"name":"secret","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[
		{"name":"orderHash","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"submitProof","stateMutability":"nonpayable","inputs":[
		{"name":"orderHash","type":"bytes32"},
		{"name":"hashLock","type":"bytes32"},
		{"name":"srcChainId","type":"uint256"},
		{"name":"srcEscrow","type":"address"},
		{"name":"srcTxHash","type":"bytes32"},
		{"name":"srcBlockNumber","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"proofAccepted","stateMutability":"view","inputs":[
		{"name":"orderHash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"SrcEscrowCreated","anonymous":false,"inputs":[
		{"name":"orderHash","type":"bytes32","indexed":true},
		{"name":"escrow","type":"address","indexed":false},
		{"name":"hashLock","type":"bytes32","indexed":false},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"safetyDeposit","type":"uint256","indexed":false}]},
	{"type":"event","name":"DstEscrowCreated","anonymous":false,"inputs":[
		{"name":"orderHash","type":"bytes32","indexed":true},
		{"name":"escrow","type":"address","indexed":false},
		{"name":"hashLock","type":"bytes32","indexed":false},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"safetyDeposit","type":"uint256","indexed":false}]},
	{"type":"event","name":"SecretRevealed","anonymous":false,"inputs":[
		{"name":"orderHash","type":"bytes32","indexed":true},
		{"name":"secret","type":"bytes32","indexed":false}]},
	{"type":"event","name":"EscrowCancelled","anonymous":false,"inputs":[
		{"name":"orderHash","type":"bytes32","indexed":true}]}
]`

// EscrowABI returns the parsed escrow contract ABI.
func EscrowABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		panic(errors.Wrap(err, "failed to parse escrow ABI"))
	}
	return parsed
}
