package precompile

import "strconv"

// ResponseCode is the ledger status returned as the leading int64 of every
// token-service response.
type ResponseCode int64

const (
	InvalidExpirationTime       ResponseCode = 4
	InvalidSignature            ResponseCode = 7
	BadEncoding                 ResponseCode = 10
	NotSupported                ResponseCode = 13
	InvalidAccountID            ResponseCode = 15
	Success                     ResponseCode = 22
	ContractRevertExecuted      ResponseCode = 33
	AccountFrozenForToken       ResponseCode = 165
	InvalidTokenID              ResponseCode = 167
	InvalidTokenDecimals        ResponseCode = 168
	InvalidTokenInitialSupply   ResponseCode = 169
	InvalidTreasuryAccount      ResponseCode = 170
	TokenHasNoFreezeKey         ResponseCode = 172
	MissingTokenSymbol          ResponseCode = 174
	TokenSymbolTooLong          ResponseCode = 175
	AccountKycNotGranted        ResponseCode = 176
	TokenHasNoKycKey            ResponseCode = 177
	InsufficientTokenBalance    ResponseCode = 178
	TokenWasDeleted             ResponseCode = 179
	TokenHasNoSupplyKey         ResponseCode = 180
	TokenHasNoWipeKey           ResponseCode = 181
	InvalidTokenMintAmount      ResponseCode = 182
	InvalidTokenBurnAmount      ResponseCode = 183
	TokenNotAssociated          ResponseCode = 184
	InvalidWipingAmount         ResponseCode = 187
	MissingTokenName            ResponseCode = 190
	TokenNameTooLong            ResponseCode = 191
	TokenAlreadyAssociated      ResponseCode = 194
	TokenIsImmutable            ResponseCode = 197
	RequiresZeroTokenBalances   ResponseCode = 201
	TransfersNotZeroSum         ResponseCode = 203
	FungibleOnlyTransfer        ResponseCode = 211
	InvalidRenewalPeriod        ResponseCode = 225
	InvalidNftID                ResponseCode = 226
	SenderDoesNotOwnNft         ResponseCode = 237
	TokenMaxSupplyReached       ResponseCode = 246
	TokenHasNoPauseKey          ResponseCode = 261
	TokenIsPaused               ResponseCode = 263
	SpenderDoesNotHaveAllowance ResponseCode = 292
	AmountExceedsAllowance      ResponseCode = 293
	InvalidAllowanceOwnerID     ResponseCode = 294
	InvalidAllowanceSpenderID   ResponseCode = 295
)

var codeNames = map[ResponseCode]string{
	InvalidExpirationTime:       "INVALID_EXPIRATION_TIME",
	InvalidSignature:            "INVALID_SIGNATURE",
	BadEncoding:                 "BAD_ENCODING",
	NotSupported:                "NOT_SUPPORTED",
	InvalidAccountID:            "INVALID_ACCOUNT_ID",
	Success:                     "SUCCESS",
	ContractRevertExecuted:      "CONTRACT_REVERT_EXECUTED",
	AccountFrozenForToken:       "ACCOUNT_FROZEN_FOR_TOKEN",
	InvalidTokenID:              "INVALID_TOKEN_ID",
	InvalidTokenDecimals:        "INVALID_TOKEN_DECIMALS",
	InvalidTokenInitialSupply:   "INVALID_TOKEN_INITIAL_SUPPLY",
	InvalidTreasuryAccount:      "INVALID_TREASURY_ACCOUNT_FOR_TOKEN",
	TokenHasNoFreezeKey:         "TOKEN_HAS_NO_FREEZE_KEY",
	MissingTokenSymbol:          "MISSING_TOKEN_SYMBOL",
	TokenSymbolTooLong:          "TOKEN_SYMBOL_TOO_LONG",
	AccountKycNotGranted:        "ACCOUNT_KYC_NOT_GRANTED_FOR_TOKEN",
	TokenHasNoKycKey:            "TOKEN_HAS_NO_KYC_KEY",
	InsufficientTokenBalance:    "INSUFFICIENT_TOKEN_BALANCE",
	TokenWasDeleted:             "TOKEN_WAS_DELETED",
	TokenHasNoSupplyKey:         "TOKEN_HAS_NO_SUPPLY_KEY",
	TokenHasNoWipeKey:           "TOKEN_HAS_NO_WIPE_KEY",
	InvalidTokenMintAmount:      "INVALID_TOKEN_MINT_AMOUNT",
	InvalidTokenBurnAmount:      "INVALID_TOKEN_BURN_AMOUNT",
	TokenNotAssociated:          "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT",
	InvalidWipingAmount:         "INVALID_WIPING_AMOUNT",
	MissingTokenName:            "MISSING_TOKEN_NAME",
	TokenNameTooLong:            "TOKEN_NAME_TOO_LONG",
	TokenAlreadyAssociated:      "TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT",
	TokenIsImmutable:            "TOKEN_IS_IMMUTABLE",
	RequiresZeroTokenBalances:   "TRANSACTION_REQUIRES_ZERO_TOKEN_BALANCES",
	TransfersNotZeroSum:         "TRANSFERS_NOT_ZERO_SUM_FOR_TOKEN",
	FungibleOnlyTransfer:        "ACCOUNT_AMOUNT_TRANSFERS_ONLY_ALLOWED_FOR_FUNGIBLE_COMMON",
	InvalidRenewalPeriod:        "INVALID_RENEWAL_PERIOD",
	InvalidNftID:                "INVALID_NFT_ID",
	SenderDoesNotOwnNft:         "SENDER_DOES_NOT_OWN_NFT_SERIAL_NO",
	TokenMaxSupplyReached:       "TOKEN_MAX_SUPPLY_REACHED",
	TokenHasNoPauseKey:          "TOKEN_HAS_NO_PAUSE_KEY",
	TokenIsPaused:               "TOKEN_IS_PAUSED",
	SpenderDoesNotHaveAllowance: "SPENDER_DOES_NOT_HAVE_ALLOWANCE",
	AmountExceedsAllowance:      "AMOUNT_EXCEEDS_ALLOWANCE",
	InvalidAllowanceOwnerID:     "INVALID_ALLOWANCE_OWNER_ID",
	InvalidAllowanceSpenderID:   "INVALID_ALLOWANCE_SPENDER_ID",
}

func (c ResponseCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "RESPONSE_CODE_" + strconv.FormatInt(int64(c), 10)
}

// codeError is a domain failure raised by an operation handler. The
// dispatcher turns it into a revert; it never escapes as a Go error.
type codeError struct {
	code ResponseCode
}

func (e *codeError) Error() string { return e.code.String() }

func fail(code ResponseCode) error { return &codeError{code: code} }
