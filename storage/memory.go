package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrOutOfOrder rejects a version whose lower bound does not follow the
// current version of the same row.
var ErrOutOfOrder = errors.New("storage: version out of order")

type versionedRow[T any] interface {
	*T
	span() *Versioned
}

// timeline is the arena of immutable versions of one row, ordered by lower
// bound. Appending a version closes the previous open-ended one.
type timeline[T any, P versionedRow[T]] struct {
	rows []T
}

func (t *timeline[T, P]) append(row T) error {
	next := P(&row).span()
	if n := len(t.rows); n > 0 {
		last := P(&t.rows[n-1]).span()
		if next.TimestampLower <= last.TimestampLower {
			return fmt.Errorf("%w: lower %d <= %d", ErrOutOfOrder, next.TimestampLower, last.TimestampLower)
		}
		if last.TimestampUpper == nil || *last.TimestampUpper > next.TimestampLower {
			upper := next.TimestampLower
			last.TimestampUpper = &upper
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

func (t *timeline[T, P]) find(at AsOf) (T, bool) {
	var zero T
	if len(t.rows) == 0 {
		return zero, false
	}
	if at.Latest {
		last := t.rows[len(t.rows)-1]
		if P(&last).span().Current() {
			return last, true
		}
		return zero, false
	}
	i := sort.Search(len(t.rows), func(i int) bool {
		return P(&t.rows[i]).span().TimestampLower > at.Timestamp
	}) - 1
	if i < 0 {
		return zero, false
	}
	row := t.rows[i]
	if !P(&row).span().Contains(at.Timestamp) {
		return zero, false
	}
	return row, true
}

func putVersion[K comparable, T any, P versionedRow[T]](m map[K]*timeline[T, P], key K, row T) error {
	tl, ok := m[key]
	if !ok {
		tl = &timeline[T, P]{}
		m[key] = tl
	}
	return tl.append(row)
}

func getVersion[K comparable, T any, P versionedRow[T]](m map[K]*timeline[T, P], key K, at AsOf) *T {
	tl, ok := m[key]
	if !ok {
		return nil
	}
	row, found := tl.find(at)
	if !found {
		return nil
	}
	return &row
}

type pairKey [2]int64
type tripleKey [3]int64

type slotKey struct {
	contract int64
	slot     string
}

type txKey struct {
	payer      int64
	validStart int64
	nonce      int32
}

// Memory is an in-memory Accessor. It keeps every version of every row, so
// concurrent writers never disturb readers pinned to an earlier timestamp.
type Memory struct {
	mu sync.RWMutex

	entities        map[int64]*timeline[Entity, *Entity]
	byEvmAddress    map[string]int64
	byAlias         map[string]int64
	tokens          map[int64]*timeline[Token, *Token]
	tokenAccounts   map[pairKey]*timeline[TokenAccount, *TokenAccount]
	tokenAllowances map[tripleKey]*timeline[TokenAllowance, *TokenAllowance]
	nfts            map[pairKey]*timeline[Nft, *Nft]
	nftAllowances   map[tripleKey]*timeline[NftAllowance, *NftAllowance]
	customFees      map[int64]*timeline[CustomFee, *CustomFee]
	contractState   map[slotKey]*timeline[ContractState, *ContractState]
	bytecode        map[int64][]byte

	recordFiles     []RecordFile
	transactions    map[txKey]Transaction
	contractResults map[int64]ContractResult
	txHashes        map[string]ContractTransactionHash
	ethTxs          map[int64]EthereumTransaction

	closed bool
}

// NewMemory returns an empty in-memory accessor.
func NewMemory() *Memory {
	return &Memory{
		entities:        make(map[int64]*timeline[Entity, *Entity]),
		byEvmAddress:    make(map[string]int64),
		byAlias:         make(map[string]int64),
		tokens:          make(map[int64]*timeline[Token, *Token]),
		tokenAccounts:   make(map[pairKey]*timeline[TokenAccount, *TokenAccount]),
		tokenAllowances: make(map[tripleKey]*timeline[TokenAllowance, *TokenAllowance]),
		nfts:            make(map[pairKey]*timeline[Nft, *Nft]),
		nftAllowances:   make(map[tripleKey]*timeline[NftAllowance, *NftAllowance]),
		customFees:      make(map[int64]*timeline[CustomFee, *CustomFee]),
		contractState:   make(map[slotKey]*timeline[ContractState, *ContractState]),
		bytecode:        make(map[int64][]byte),
		transactions:    make(map[txKey]Transaction),
		contractResults: make(map[int64]ContractResult),
		txHashes:        make(map[string]ContractTransactionHash),
		ethTxs:          make(map[int64]EthereumTransaction),
	}
}

// PutEntity appends a version of an entity.
func (m *Memory) PutEntity(row Entity) error {
	row.fillEvmAddress()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := putVersion(m.entities, row.ID, row); err != nil {
		return fmt.Errorf("entity %d: %w", row.ID, err)
	}
	if len(row.EvmAddress) > 0 {
		m.byEvmAddress[string(row.EvmAddress)] = row.ID
	}
	if len(row.Alias) > 0 {
		m.byAlias[string(row.Alias)] = row.ID
	}
	return nil
}

// PutToken appends a version of a token.
func (m *Memory) PutToken(row Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return putVersion(m.tokens, row.TokenID, row)
}

// PutTokenAccount appends a version of a token relationship.
func (m *Memory) PutTokenAccount(row TokenAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return putVersion(m.tokenAccounts, pairKey{row.AccountID, row.TokenID}, row)
}

// PutTokenAllowance appends a version of a fungible allowance.
func (m *Memory) PutTokenAllowance(row TokenAllowance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return putVersion(m.tokenAllowances, tripleKey{row.Owner, row.Spender, row.TokenID}, row)
}

// PutNft appends a version of an NFT serial.
func (m *Memory) PutNft(row Nft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return putVersion(m.nfts, pairKey{row.TokenID, row.SerialNumber}, row)
}

// PutNftAllowance appends a version of an approve-for-all grant.
func (m *Memory) PutNftAllowance(row NftAllowance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return putVersion(m.nftAllowances, tripleKey{row.Owner, row.Spender, row.TokenID}, row)
}

// PutCustomFee appends a version of a token fee schedule.
func (m *Memory) PutCustomFee(row CustomFee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return putVersion(m.customFees, row.TokenID, row)
}

// PutContractState appends a version of a storage slot.
func (m *Memory) PutContractState(row ContractState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return putVersion(m.contractState, slotKey{row.ContractID, string(row.Slot)}, row)
}

// PutContract stores contract bytecode.
func (m *Memory) PutContract(row Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytecode[row.ID] = append([]byte(nil), row.RuntimeBytecode...)
}

// PutRecordFile appends a block. Blocks must be added in index order.
func (m *Memory) PutRecordFile(row RecordFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.recordFiles); n > 0 && row.Index <= m.recordFiles[n-1].Index {
		return fmt.Errorf("%w: record file %d", ErrOutOfOrder, row.Index)
	}
	m.recordFiles = append(m.recordFiles, row)
	return nil
}

// PutTransaction stores a consensus transaction.
func (m *Memory) PutTransaction(row Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[txKey{row.PayerAccountID, row.ValidStartNs, row.Nonce}] = row
}

// PutContractResult stores a contract result.
func (m *Memory) PutContractResult(row ContractResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contractResults[row.ConsensusTimestamp] = row
}

// PutContractTransactionHash stores a hash mapping.
func (m *Memory) PutContractTransactionHash(row ContractTransactionHash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txHashes[string(row.Hash)] = row
}

// PutEthereumTransaction stores an ethereum transaction.
func (m *Memory) PutEthereumTransaction(row EthereumTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ethTxs[row.ConsensusTimestamp] = row
}

func (m *Memory) readLock() error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

func (m *Memory) LatestRecordFile(ctx context.Context) (*RecordFile, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	if len(m.recordFiles) == 0 {
		return nil, nil
	}
	row := m.recordFiles[len(m.recordFiles)-1]
	return &row, nil
}

func (m *Memory) RecordFileByIndex(ctx context.Context, index int64) (*RecordFile, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	i := sort.Search(len(m.recordFiles), func(i int) bool { return m.recordFiles[i].Index >= index })
	if i == len(m.recordFiles) || m.recordFiles[i].Index != index {
		return nil, nil
	}
	row := m.recordFiles[i]
	return &row, nil
}

func (m *Memory) RecordFileByTimestamp(ctx context.Context, ts int64) (*RecordFile, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	i := sort.Search(len(m.recordFiles), func(i int) bool { return m.recordFiles[i].ConsensusEnd >= ts })
	if i == len(m.recordFiles) || m.recordFiles[i].ConsensusStart > ts {
		return nil, nil
	}
	row := m.recordFiles[i]
	return &row, nil
}

func (m *Memory) Entity(ctx context.Context, id int64, at AsOf) (*Entity, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	return getVersion(m.entities, id, at), nil
}

func (m *Memory) EntityByEvmAddress(ctx context.Context, addr []byte, at AsOf) (*Entity, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	id, ok := m.byEvmAddress[string(addr)]
	if !ok {
		return nil, nil
	}
	row := getVersion(m.entities, id, at)
	if row == nil || string(row.EvmAddress) != string(addr) {
		return nil, nil
	}
	return row, nil
}

func (m *Memory) EntityByAlias(ctx context.Context, alias []byte, at AsOf) (*Entity, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	id, ok := m.byAlias[string(alias)]
	if !ok {
		return nil, nil
	}
	row := getVersion(m.entities, id, at)
	if row == nil || string(row.Alias) != string(alias) {
		return nil, nil
	}
	return row, nil
}

func (m *Memory) Token(ctx context.Context, tokenID int64, at AsOf) (*Token, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	return getVersion(m.tokens, tokenID, at), nil
}

func (m *Memory) TokenAccount(ctx context.Context, accountID, tokenID int64, at AsOf) (*TokenAccount, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	return getVersion(m.tokenAccounts, pairKey{accountID, tokenID}, at), nil
}

func (m *Memory) TokenAllowance(ctx context.Context, owner, spender, tokenID int64, at AsOf) (*TokenAllowance, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	return getVersion(m.tokenAllowances, tripleKey{owner, spender, tokenID}, at), nil
}

func (m *Memory) Nft(ctx context.Context, tokenID, serial int64, at AsOf) (*Nft, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	return getVersion(m.nfts, pairKey{tokenID, serial}, at), nil
}

func (m *Memory) NftAllowance(ctx context.Context, owner, spender, tokenID int64, at AsOf) (*NftAllowance, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	return getVersion(m.nftAllowances, tripleKey{owner, spender, tokenID}, at), nil
}

func (m *Memory) CustomFee(ctx context.Context, tokenID int64, at AsOf) (*CustomFee, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	return getVersion(m.customFees, tokenID, at), nil
}

func (m *Memory) ContractBytecode(ctx context.Context, contractID int64) ([]byte, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	code, ok := m.bytecode[contractID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), code...), nil
}

func (m *Memory) ContractState(ctx context.Context, contractID int64, slot []byte, at AsOf) ([]byte, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	row := getVersion(m.contractState, slotKey{contractID, string(slot)}, at)
	if row == nil {
		return nil, nil
	}
	return append([]byte(nil), row.Value...), nil
}

func (m *Memory) Transaction(ctx context.Context, payerAccountID, validStartNs int64, nonce int32) (*Transaction, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	row, ok := m.transactions[txKey{payerAccountID, validStartNs, nonce}]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *Memory) ContractResult(ctx context.Context, consensusTimestamp int64) (*ContractResult, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	row, ok := m.contractResults[consensusTimestamp]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *Memory) ContractTransactionHash(ctx context.Context, hash []byte) (*ContractTransactionHash, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	row, ok := m.txHashes[string(hash)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *Memory) EthereumTransaction(ctx context.Context, consensusTimestamp int64) (*EthereumTransaction, error) {
	if err := m.readLock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()
	row, ok := m.ethTxs[consensusTimestamp]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

// Close marks the accessor closed. Nothing is released.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
