package precompile

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"

	"mirrorevm/core/types"
)

const gasSystemContract uint64 = 100

var errZeroRate = errors.New("exchange rate must be positive")

// ExchangeRate is the hbar price expressed as CentEquivalent cents per
// HbarEquivalent hbars.
type ExchangeRate struct {
	CentEquivalent int64
	HbarEquivalent int64
}

// Validate rejects rates that cannot be used for conversion.
func (r ExchangeRate) Validate() error {
	if r.CentEquivalent <= 0 || r.HbarEquivalent <= 0 {
		return errZeroRate
	}
	return nil
}

// ExchangeRateContract converts between tinycents and tinybars at a fixed
// rate.
type ExchangeRateContract struct {
	rate ExchangeRate
}

func NewExchangeRateContract(rate ExchangeRate) *ExchangeRateContract {
	return &ExchangeRateContract{rate: rate}
}

func (c *ExchangeRateContract) Name() string { return "EXCHANGE_RATE" }

func (c *ExchangeRateContract) RequiredGas([]byte) uint64 { return gasSystemContract }

func (c *ExchangeRateContract) Run(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, vm.ErrExecutionReverted
	}
	method, err := exchangeABI.MethodById(input[:4])
	if err != nil {
		return nil, vm.ErrExecutionReverted
	}
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil || len(values) != 1 {
		return nil, vm.ErrExecutionReverted
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, vm.ErrExecutionReverted
	}
	num, den := c.rate.HbarEquivalent, c.rate.CentEquivalent
	if method.RawName == "tinybarsToTinycents" {
		num, den = den, num
	}
	out := new(big.Int).Mul(amount, big.NewInt(num))
	out.Quo(out, big.NewInt(den))
	return method.Outputs.Pack(out)
}

// PrngContract serves the pseudorandom seed of the pinned block.
type PrngContract struct {
	seed [32]byte
}

// NewPrngContract derives the seed from the block hash, or from the block
// number when the block carries no hash.
func NewPrngContract(block types.BlockContext) *PrngContract {
	var seed common.Hash
	if block.Hash != (common.Hash{}) {
		seed = crypto.Keccak256Hash(block.Hash.Bytes())
	} else {
		var num [8]byte
		binary.BigEndian.PutUint64(num[:], block.Number)
		seed = crypto.Keccak256Hash(num[:])
	}
	return &PrngContract{seed: seed}
}

func (c *PrngContract) Name() string { return "PRNG" }

func (c *PrngContract) RequiredGas([]byte) uint64 { return gasSystemContract }

func (c *PrngContract) Run(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, vm.ErrExecutionReverted
	}
	method, err := prngABI.MethodById(input[:4])
	if err != nil {
		return nil, vm.ErrExecutionReverted
	}
	return method.Outputs.Pack(c.seed)
}
