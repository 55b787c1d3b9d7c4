package config

import (
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/Swapica/relayer-svc/internal/chain/evm"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// Network is one leg of the swap: an EVM-compatible chain with the escrow
// contract deployed on it.
type Network struct {
	Name              string
	ChainID           int64
	Contract          common.Address
	Client            chain.Client
	Escrow            chain.Escrow
	ConfirmationDepth uint64
	BlockRange        uint64
	RequestTimeout    time.Duration
}

const defaultRequestTimeout = 10 * time.Second
const defaultConfirmationDepth = 6
const maxChainID int64 = math.MaxUint64/2 - 36

func (c *config) ChainA() Network {
	return c.chainAOnce.Do(func() interface{} {
		return c.readNetwork("chain_a")
	}).(Network)
}

func (c *config) ChainB() Network {
	return c.chainBOnce.Do(func() interface{} {
		return c.readNetwork("chain_b")
	}).(Network)
}

func (c *config) readNetwork(key string) Network {
	var cfg struct {
		Name              string         `fig:"name,required"`
		RPC               string         `fig:"rpc,required"`
		Contract          common.Address `fig:"contract,required"`
		ChainID           int64          `fig:"chain_id,required"`
		Signer            string         `fig:"signer,required"`
		ConfirmationDepth uint64         `fig:"confirmation_depth"`
		BlockRange        uint64         `fig:"block_range"`
		RequestTimeout    time.Duration  `fig:"request_timeout"`
	}

	err := figure.Out(&cfg).
		With(figure.EthereumHooks).
		From(kv.MustGetStringMap(c.getter, key)).
		Please()
	if err != nil {
		panic(errors.Wrap(err, "failed to figure out "+key))
	}

	if cfg.ChainID > maxChainID || cfg.ChainID <= 0 {
		panic("chain_id value out of range due to EIP 2294")
	}

	cli, err := ethclient.Dial(cfg.RPC)
	if err != nil {
		panic(errors.Wrap(err, "failed to connect to RPC provider"))
	}

	priv, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Signer, "0x"))
	if err != nil {
		panic(errors.Wrap(err, "failed to parse signer key"))
	}
	signer, err := bind.NewKeyedTransactorWithChainID(priv, big.NewInt(cfg.ChainID))
	if err != nil {
		panic(errors.Wrap(err, "failed to create transactor"))
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ConfirmationDepth == 0 {
		cfg.ConfirmationDepth = defaultConfirmationDepth
	}

	client := evm.NewClient(cli, signer)
	return Network{
		Name:              cfg.Name,
		ChainID:           cfg.ChainID,
		Contract:          cfg.Contract,
		Client:            client,
		Escrow:            evm.NewEscrow(client, cfg.Contract),
		ConfirmationDepth: cfg.ConfirmationDepth,
		BlockRange:        cfg.BlockRange,
		RequestTimeout:    cfg.RequestTimeout,
	}
}
