package storage

import (
	"gorm.io/gorm"
)

// Versioned is embedded in every temporally versioned row. A row is valid for
// consensus timestamps in [TimestampLower, TimestampUpper); a nil upper bound
// marks the current version.
type Versioned struct {
	TimestampLower int64  `gorm:"column:timestamp_lower;primaryKey;autoIncrement:false"`
	TimestampUpper *int64 `gorm:"column:timestamp_upper;index"`
}

// Contains reports whether ts falls inside the validity interval.
func (v Versioned) Contains(ts int64) bool {
	if ts < v.TimestampLower {
		return false
	}
	return v.TimestampUpper == nil || ts < *v.TimestampUpper
}

// Current reports whether this is the open-ended version.
func (v Versioned) Current() bool {
	return v.TimestampUpper == nil
}

func (v *Versioned) span() *Versioned { return v }

// Entity is an account, contract or token entity row.
type Entity struct {
	ID                  int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	Shard               int64  `gorm:"column:shard"`
	Realm               int64  `gorm:"column:realm"`
	Num                 int64  `gorm:"column:num"`
	Type                string `gorm:"column:type;size:16"`
	EvmAddress          []byte `gorm:"column:evm_address;index"`
	Alias               []byte `gorm:"column:alias;index"`
	Key                 []byte `gorm:"column:key"`
	Balance             int64  `gorm:"column:balance"`
	EthereumNonce       int64  `gorm:"column:ethereum_nonce"`
	ExpirationTimestamp *int64 `gorm:"column:expiration_timestamp"`
	AutoRenewAccountID  *int64 `gorm:"column:auto_renew_account_id"`
	AutoRenewPeriod     *int64 `gorm:"column:auto_renew_period"`
	Memo                string `gorm:"column:memo"`
	Deleted             bool   `gorm:"column:deleted"`
	Versioned
}

func (Entity) TableName() string { return "entity" }

// Token holds the token specific columns; expiry and deletion live on the
// token's entity row.
type Token struct {
	TokenID           int64  `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	Name              string `gorm:"column:name"`
	Symbol            string `gorm:"column:symbol"`
	Metadata          []byte `gorm:"column:metadata"`
	Decimals          int32  `gorm:"column:decimals"`
	TotalSupply       int64  `gorm:"column:total_supply"`
	MaxSupply         int64  `gorm:"column:max_supply"`
	InitialSupply     int64  `gorm:"column:initial_supply"`
	SupplyType        string `gorm:"column:supply_type;size:16"`
	Type              string `gorm:"column:type;size:32"`
	TreasuryAccountID int64  `gorm:"column:treasury_account_id"`
	FreezeDefault     bool   `gorm:"column:freeze_default"`
	KycDefault        bool   `gorm:"column:kyc_default"`
	PauseStatus       string `gorm:"column:pause_status;size:16"`
	AdminKey          []byte `gorm:"column:admin_key"`
	KycKey            []byte `gorm:"column:kyc_key"`
	FreezeKey         []byte `gorm:"column:freeze_key"`
	WipeKey           []byte `gorm:"column:wipe_key"`
	SupplyKey         []byte `gorm:"column:supply_key"`
	FeeScheduleKey    []byte `gorm:"column:fee_schedule_key"`
	PauseKey          []byte `gorm:"column:pause_key"`
	CreatedTimestamp  int64  `gorm:"column:created_timestamp"`
	Versioned
}

func (Token) TableName() string { return "token" }

// TokenAccount is the relationship between an account and a token.
type TokenAccount struct {
	AccountID        int64 `gorm:"column:account_id;primaryKey;autoIncrement:false"`
	TokenID          int64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	Balance          int64 `gorm:"column:balance"`
	Associated       bool  `gorm:"column:associated"`
	FreezeStatus     int16 `gorm:"column:freeze_status"`
	KycStatus        int16 `gorm:"column:kyc_status"`
	CreatedTimestamp int64 `gorm:"column:created_timestamp"`
	Versioned
}

func (TokenAccount) TableName() string { return "token_account" }

// TokenAllowance is a fungible allowance.
type TokenAllowance struct {
	Owner         int64 `gorm:"column:owner;primaryKey;autoIncrement:false"`
	Spender       int64 `gorm:"column:spender;primaryKey;autoIncrement:false"`
	TokenID       int64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	AmountGranted int64 `gorm:"column:amount_granted"`
	Amount        int64 `gorm:"column:amount"`
	Versioned
}

func (TokenAllowance) TableName() string { return "token_allowance" }

// Nft is one serial of a non-fungible token.
type Nft struct {
	TokenID          int64  `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	SerialNumber     int64  `gorm:"column:serial_number;primaryKey;autoIncrement:false"`
	AccountID        *int64 `gorm:"column:account_id"`
	Spender          *int64 `gorm:"column:spender"`
	Metadata         []byte `gorm:"column:metadata"`
	CreatedTimestamp int64  `gorm:"column:created_timestamp"`
	Deleted          bool   `gorm:"column:deleted"`
	Versioned
}

func (Nft) TableName() string { return "nft" }

// NftAllowance is an approve-for-all grant.
type NftAllowance struct {
	Owner          int64 `gorm:"column:owner;primaryKey;autoIncrement:false"`
	Spender        int64 `gorm:"column:spender;primaryKey;autoIncrement:false"`
	TokenID        int64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	ApprovedForAll bool  `gorm:"column:approved_for_all"`
	Versioned
}

func (NftAllowance) TableName() string { return "nft_allowance" }

// CustomFee stores the fee schedule of a token as three JSON arrays whose
// element order is the ledger insertion order.
type CustomFee struct {
	TokenID        int64  `gorm:"column:entity_id;primaryKey;autoIncrement:false"`
	FixedFees      string `gorm:"column:fixed_fees;type:text"`
	FractionalFees string `gorm:"column:fractional_fees;type:text"`
	RoyaltyFees    string `gorm:"column:royalty_fees;type:text"`
	Versioned
}

func (CustomFee) TableName() string { return "custom_fee" }

// ContractState is one storage slot of a contract.
type ContractState struct {
	ContractID int64  `gorm:"column:contract_id;primaryKey;autoIncrement:false"`
	Slot       []byte `gorm:"column:slot;primaryKey"`
	Value      []byte `gorm:"column:value"`
	Versioned
}

func (ContractState) TableName() string { return "contract_state" }

// Contract holds the runtime bytecode of a deployed contract. Visibility at a
// timestamp follows the contract's entity row.
type Contract struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	RuntimeBytecode []byte `gorm:"column:runtime_bytecode"`
}

func (Contract) TableName() string { return "contract" }

// RecordFile is a block.
type RecordFile struct {
	Index          int64  `gorm:"column:index;primaryKey;autoIncrement:false"`
	ConsensusStart int64  `gorm:"column:consensus_start;index"`
	ConsensusEnd   int64  `gorm:"column:consensus_end;index"`
	Hash           []byte `gorm:"column:hash"`
	GasUsed        int64  `gorm:"column:gas_used"`
}

func (RecordFile) TableName() string { return "record_file" }

// Transaction is a consensus transaction.
type Transaction struct {
	ConsensusTimestamp int64 `gorm:"column:consensus_timestamp;primaryKey;autoIncrement:false"`
	PayerAccountID     int64 `gorm:"column:payer_account_id;index:idx_transaction_id"`
	ValidStartNs       int64 `gorm:"column:valid_start_ns;index:idx_transaction_id"`
	Nonce              int32 `gorm:"column:nonce"`
	EntityID           int64 `gorm:"column:entity_id"`
	Type               int32 `gorm:"column:type"`
	Result             int32 `gorm:"column:result"`
}

func (Transaction) TableName() string { return "transaction" }

// ContractResult is the persisted outcome of a contract call.
type ContractResult struct {
	ConsensusTimestamp int64  `gorm:"column:consensus_timestamp;primaryKey;autoIncrement:false"`
	ContractID         int64  `gorm:"column:contract_id"`
	PayerAccountID     int64  `gorm:"column:payer_account_id"`
	SenderID           int64  `gorm:"column:sender_id"`
	Amount             int64  `gorm:"column:amount"`
	GasLimit           int64  `gorm:"column:gas_limit"`
	GasUsed            int64  `gorm:"column:gas_used"`
	FunctionParameters []byte `gorm:"column:function_parameters"`
	CallResult         []byte `gorm:"column:call_result"`
	ErrorMessage       string `gorm:"column:error_message"`
	TransactionHash    []byte `gorm:"column:transaction_hash"`
	TransactionResult  int32  `gorm:"column:transaction_result"`
}

func (ContractResult) TableName() string { return "contract_result" }

// ContractTransactionHash maps an ethereum or transaction hash to its
// consensus timestamp.
type ContractTransactionHash struct {
	Hash               []byte `gorm:"column:hash;primaryKey"`
	ConsensusTimestamp int64  `gorm:"column:consensus_timestamp"`
	PayerAccountID     int64  `gorm:"column:payer_account_id"`
	EntityID           int64  `gorm:"column:entity_id"`
	TransactionResult  int32  `gorm:"column:transaction_result"`
}

func (ContractTransactionHash) TableName() string { return "contract_transaction_hash" }

// EthereumTransaction is the raw ethereum transaction wrapped by a consensus
// transaction.
type EthereumTransaction struct {
	ConsensusTimestamp int64  `gorm:"column:consensus_timestamp;primaryKey;autoIncrement:false"`
	Hash               []byte `gorm:"column:hash;index"`
	PayerAccountID     int64  `gorm:"column:payer_account_id"`
	FromAddress        []byte `gorm:"column:from_address"`
	ToAddress          []byte `gorm:"column:to_address"`
	Value              []byte `gorm:"column:value"`
	CallData           []byte `gorm:"column:call_data"`
	GasLimit           int64  `gorm:"column:gas_limit"`
	Nonce              int64  `gorm:"column:nonce"`
}

func (EthereumTransaction) TableName() string { return "ethereum_transaction" }

// AutoMigrate creates or updates every table used by the accessor.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Entity{},
		&Token{},
		&TokenAccount{},
		&TokenAllowance{},
		&Nft{},
		&NftAllowance{},
		&CustomFee{},
		&ContractState{},
		&Contract{},
		&RecordFile{},
		&Transaction{},
		&ContractResult{},
		&ContractTransactionHash{},
		&EthereumTransaction{},
	)
}
