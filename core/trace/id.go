package trace

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"mirrorevm/core/types"
)

// TransactionRef identifies a recorded transaction either by hash or by its
// ledger transaction id.
type TransactionRef struct {
	Hash []byte

	Payer        types.EntityID
	ValidStartNs int64
	Nonce        int32
}

// IsHash reports whether the reference is a hash lookup.
func (r TransactionRef) IsHash() bool { return len(r.Hash) > 0 }

func (r TransactionRef) String() string {
	if r.IsHash() {
		return "0x" + hex.EncodeToString(r.Hash)
	}
	return fmt.Sprintf("%s-%d-%09d", r.Payer, r.ValidStartNs/1_000_000_000, r.ValidStartNs%1_000_000_000)
}

// ParseTransactionRef accepts a 32 or 48 byte 0x-prefixed hash, or a
// transaction id in either "0.0.1001-1700000000-000000123" or
// "0.0.1001@1700000000.000000123" form.
func ParseTransactionRef(raw string) (TransactionRef, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		b, err := hex.DecodeString(raw[2:])
		if err != nil || (len(b) != 32 && len(b) != 48) {
			return TransactionRef{}, fmt.Errorf("invalid transaction hash %q", raw)
		}
		return TransactionRef{Hash: b}, nil
	}
	payer, rest, ok := strings.Cut(raw, "@")
	sep := "."
	if !ok {
		var found bool
		payer, rest, found = cutLast(raw, "-", 2)
		if !found {
			return TransactionRef{}, fmt.Errorf("invalid transaction id %q", raw)
		}
		sep = "-"
	}
	id, err := types.ParseEntityID(payer)
	if err != nil {
		return TransactionRef{}, fmt.Errorf("invalid transaction id %q: %w", raw, err)
	}
	secs, nanos, ok := strings.Cut(rest, sep)
	if !ok || len(nanos) == 0 || len(nanos) > 9 {
		return TransactionRef{}, fmt.Errorf("invalid transaction id %q", raw)
	}
	s, err := strconv.ParseInt(secs, 10, 64)
	if err != nil || s < 0 {
		return TransactionRef{}, fmt.Errorf("invalid transaction id %q", raw)
	}
	n, err := strconv.ParseInt(nanos+strings.Repeat("0", 9-len(nanos)), 10, 64)
	if err != nil {
		return TransactionRef{}, fmt.Errorf("invalid transaction id %q", raw)
	}
	return TransactionRef{Payer: id, ValidStartNs: s*1_000_000_000 + n}, nil
}

// cutLast splits s before the n-th separator counted from the end.
func cutLast(s, sep string, n int) (string, string, bool) {
	idx := len(s)
	for range n {
		i := strings.LastIndex(s[:idx], sep)
		if i < 0 {
			return "", "", false
		}
		idx = i
	}
	return s[:idx], s[idx+len(sep):], true
}
