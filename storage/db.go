package storage

import (
	"context"
	"errors"
)

// AsOf selects which version of a row a lookup returns: the current
// (open-ended) version, or the version whose validity interval contains a
// consensus timestamp.
type AsOf struct {
	Latest    bool
	Timestamp int64
}

// Latest selects current rows.
func Latest() AsOf { return AsOf{Latest: true} }

// At selects rows valid at the nanosecond consensus timestamp ts.
func At(ts int64) AsOf { return AsOf{Timestamp: ts} }

func (a AsOf) matches(v Versioned) bool {
	if a.Latest {
		return v.Current()
	}
	return v.Contains(a.Timestamp)
}

// ErrClosed is returned by accessors used after Close.
var ErrClosed = errors.New("storage: accessor closed")

// Accessor answers point queries against temporally versioned rows. Every
// lookup returns (nil, nil) when no version of the row existed at the
// requested point; errors are reserved for storage failures.
type Accessor interface {
	LatestRecordFile(ctx context.Context) (*RecordFile, error)
	RecordFileByIndex(ctx context.Context, index int64) (*RecordFile, error)
	// RecordFileByTimestamp returns the block whose consensus range contains ts.
	RecordFileByTimestamp(ctx context.Context, ts int64) (*RecordFile, error)

	Entity(ctx context.Context, id int64, at AsOf) (*Entity, error)
	EntityByEvmAddress(ctx context.Context, addr []byte, at AsOf) (*Entity, error)
	EntityByAlias(ctx context.Context, alias []byte, at AsOf) (*Entity, error)

	Token(ctx context.Context, tokenID int64, at AsOf) (*Token, error)
	TokenAccount(ctx context.Context, accountID, tokenID int64, at AsOf) (*TokenAccount, error)
	TokenAllowance(ctx context.Context, owner, spender, tokenID int64, at AsOf) (*TokenAllowance, error)
	Nft(ctx context.Context, tokenID, serial int64, at AsOf) (*Nft, error)
	NftAllowance(ctx context.Context, owner, spender, tokenID int64, at AsOf) (*NftAllowance, error)
	CustomFee(ctx context.Context, tokenID int64, at AsOf) (*CustomFee, error)

	ContractBytecode(ctx context.Context, contractID int64) ([]byte, error)
	ContractState(ctx context.Context, contractID int64, slot []byte, at AsOf) ([]byte, error)

	Transaction(ctx context.Context, payerAccountID, validStartNs int64, nonce int32) (*Transaction, error)
	ContractResult(ctx context.Context, consensusTimestamp int64) (*ContractResult, error)
	ContractTransactionHash(ctx context.Context, hash []byte) (*ContractTransactionHash, error)
	EthereumTransaction(ctx context.Context, consensusTimestamp int64) (*EthereumTransaction, error)

	Close() error
}
