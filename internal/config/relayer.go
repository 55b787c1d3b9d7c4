package config

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/figure/v3"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// Relayer tunes the coordinator, executor and timeout sweep.
type Relayer struct {
	Resolver       common.Address
	Stake          *big.Int
	SafetyDeposit  *big.Int
	DeployAttempts int
	SweepInterval  time.Duration
}

const defaultSweepInterval = 30 * time.Second
const defaultDeployAttempts = 3

func (c *config) Relayer() Relayer {
	return c.relayerOnce.Do(func() interface{} {
		var cfg struct {
			Resolver       common.Address `fig:"resolver,required"`
			Stake          *big.Int       `fig:"stake,required"`
			SafetyDeposit  *big.Int       `fig:"safety_deposit,required"`
			DeployAttempts int            `fig:"deploy_attempts"`
			SweepInterval  time.Duration  `fig:"sweep_interval"`
		}

		err := figure.Out(&cfg).
			With(figure.EthereumHooks).
			From(kv.MustGetStringMap(c.getter, "relayer")).
			Please()
		if err != nil {
			panic(errors.Wrap(err, "failed to figure out relayer"))
		}

		if cfg.DeployAttempts == 0 {
			cfg.DeployAttempts = defaultDeployAttempts
		}
		if cfg.SweepInterval == 0 {
			cfg.SweepInterval = defaultSweepInterval
		}

		return Relayer{
			Resolver:       cfg.Resolver,
			Stake:          cfg.Stake,
			SafetyDeposit:  cfg.SafetyDeposit,
			DeployAttempts: cfg.DeployAttempts,
			SweepInterval:  cfg.SweepInterval,
		}
	}).(Relayer)
}
