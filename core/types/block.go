package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// BlockTag identifies the block a call executes against: either the literal
// number or "latest".
type BlockTag struct {
	Latest bool
	Number uint64
}

// LatestBlock is the tag for the newest committed block.
var LatestBlock = BlockTag{Latest: true}

// BlockNumber returns a tag pinned to the supplied number.
func BlockNumber(n uint64) BlockTag {
	return BlockTag{Number: n}
}

// ParseBlockTag accepts "latest", a 0x-prefixed hex quantity or a decimal
// number. Everything else ("pending", "safe", hashes, ...) is rejected.
func ParseBlockTag(raw string) (BlockTag, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "" || strings.EqualFold(trimmed, "latest"):
		return LatestBlock, nil
	case strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X"):
		digits := trimmed[2:]
		if digits == "" || len(digits) > 16 {
			return BlockTag{}, fmt.Errorf("%w: %q", ErrInvalidBlockTag, raw)
		}
		n, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return BlockTag{}, fmt.Errorf("%w: %q", ErrInvalidBlockTag, raw)
		}
		return BlockNumber(n), nil
	default:
		n, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return BlockTag{}, fmt.Errorf("%w: %q", ErrInvalidBlockTag, raw)
		}
		return BlockNumber(n), nil
	}
}

// String renders the tag in JSON-RPC form.
func (t BlockTag) String() string {
	if t.Latest {
		return "latest"
	}
	return fmt.Sprintf("0x%x", t.Number)
}

// BlockContext is a resolved block. It is immutable once built.
type BlockContext struct {
	Number uint64
	Hash   common.Hash
	// ConsensusTimestampLowerBound and ConsensusTimestampUpperBound are the
	// nanosecond consensus timestamps of the first and last transaction in
	// the block.
	ConsensusTimestampLowerBound int64
	ConsensusTimestampUpperBound int64
	GasLimit                     uint64
	// Latest is set when the context was resolved from the "latest" tag; reads
	// then use the current (open-ended) row versions.
	Latest bool
}

// TimestampSeconds is the block time used for the TIMESTAMP opcode.
func (b BlockContext) TimestampSeconds() uint64 {
	if b.ConsensusTimestampUpperBound <= 0 {
		return 0
	}
	return uint64(b.ConsensusTimestampUpperBound / 1_000_000_000)
}
