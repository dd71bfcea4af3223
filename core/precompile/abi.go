package precompile

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Tuple types of the token-service ABI. Field names follow the ABI component
// names so the codec can map them in both directions.

type KeyValue struct {
	InheritAccountKey     bool           `abi:"inheritAccountKey"`
	ContractId            common.Address `abi:"contractId"`
	Ed25519               []byte         `abi:"ed25519"`
	ECDSASecp256k1        []byte         `abi:"ECDSA_secp256k1"`
	DelegatableContractId common.Address `abi:"delegatableContractId"`
}

type TokenKey struct {
	KeyType *big.Int `abi:"keyType"`
	Key     KeyValue `abi:"key"`
}

type Expiry struct {
	Second           int64          `abi:"second"`
	AutoRenewAccount common.Address `abi:"autoRenewAccount"`
	AutoRenewPeriod  int64          `abi:"autoRenewPeriod"`
}

type HederaToken struct {
	Name            string         `abi:"name"`
	Symbol          string         `abi:"symbol"`
	Treasury        common.Address `abi:"treasury"`
	Memo            string         `abi:"memo"`
	TokenSupplyType bool           `abi:"tokenSupplyType"`
	MaxSupply       int64          `abi:"maxSupply"`
	FreezeDefault   bool           `abi:"freezeDefault"`
	TokenKeys       []TokenKey     `abi:"tokenKeys"`
	Expiry          Expiry         `abi:"expiry"`
}

type FixedFee struct {
	Amount                    int64          `abi:"amount"`
	TokenId                   common.Address `abi:"tokenId"`
	UseHbarsForPayment        bool           `abi:"useHbarsForPayment"`
	UseCurrentTokenForPayment bool           `abi:"useCurrentTokenForPayment"`
	FeeCollector              common.Address `abi:"feeCollector"`
}

type FractionalFee struct {
	Numerator      int64          `abi:"numerator"`
	Denominator    int64          `abi:"denominator"`
	MinimumAmount  int64          `abi:"minimumAmount"`
	MaximumAmount  int64          `abi:"maximumAmount"`
	NetOfTransfers bool           `abi:"netOfTransfers"`
	FeeCollector   common.Address `abi:"feeCollector"`
}

type RoyaltyFee struct {
	Numerator    int64          `abi:"numerator"`
	Denominator  int64          `abi:"denominator"`
	FallbackFee  FixedFee       `abi:"fallbackFee"`
	FeeCollector common.Address `abi:"feeCollector"`
}

type TokenInfo struct {
	Token            HederaToken     `abi:"token"`
	TotalSupply      int64           `abi:"totalSupply"`
	Deleted          bool            `abi:"deleted"`
	DefaultKycStatus bool            `abi:"defaultKycStatus"`
	PauseStatus      bool            `abi:"pauseStatus"`
	FixedFees        []FixedFee      `abi:"fixedFees"`
	FractionalFees   []FractionalFee `abi:"fractionalFees"`
	RoyaltyFees      []RoyaltyFee    `abi:"royaltyFees"`
	LedgerId         string          `abi:"ledgerId"`
}

type FungibleTokenInfo struct {
	TokenInfo TokenInfo `abi:"tokenInfo"`
	Decimals  int32     `abi:"decimals"`
}

type NonFungibleTokenInfo struct {
	TokenInfo    TokenInfo      `abi:"tokenInfo"`
	SerialNumber int64          `abi:"serialNumber"`
	OwnerId      common.Address `abi:"ownerId"`
	CreationTime int64          `abi:"creationTime"`
	Metadata     []byte         `abi:"metadata"`
	SpenderId    common.Address `abi:"spenderId"`
}

var (
	htsABI      = mustParseABI(htsABIJSON)
	ercABI      = mustParseABI(ercABIJSON)
	exchangeABI = mustParseABI(exchangeRateABIJSON)
	prngABI     = mustParseABI(prngABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("precompile: invalid abi: " + err.Error())
	}
	return parsed
}

const htsABIJSON = `[
{"type":"function","name":"isToken","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"isToken","type":"bool"}],"stateMutability":"view"},
{"type":"function","name":"isFrozen","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"frozen","type":"bool"}],"stateMutability":"view"},
{"type":"function","name":"isKyc","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"kycGranted","type":"bool"}],"stateMutability":"view"},
{"type":"function","name":"getTokenDefaultFreezeStatus","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"defaultFreezeStatus","type":"bool"}],"stateMutability":"view"},
{"type":"function","name":"getTokenDefaultKycStatus","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"defaultKycStatus","type":"bool"}],"stateMutability":"view"},
{"type":"function","name":"getTokenType","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"tokenType","type":"int32"}],"stateMutability":"view"},
{"type":"function","name":"getTokenInfo","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"tokenInfo","type":"tuple","components":[{"name":"token","type":"tuple","components":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"treasury","type":"address"},{"name":"memo","type":"string"},{"name":"tokenSupplyType","type":"bool"},{"name":"maxSupply","type":"int64"},{"name":"freezeDefault","type":"bool"},{"name":"tokenKeys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}]},{"name":"totalSupply","type":"int64"},{"name":"deleted","type":"bool"},{"name":"defaultKycStatus","type":"bool"},{"name":"pauseStatus","type":"bool"},{"name":"fixedFees","type":"tuple[]","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"fractionalFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"minimumAmount","type":"int64"},{"name":"maximumAmount","type":"int64"},{"name":"netOfTransfers","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"royaltyFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"fallbackFee","type":"tuple","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"feeCollector","type":"address"}]},{"name":"ledgerId","type":"string"}]}],"stateMutability":"view"},
{"type":"function","name":"getFungibleTokenInfo","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"fungibleTokenInfo","type":"tuple","components":[{"name":"tokenInfo","type":"tuple","components":[{"name":"token","type":"tuple","components":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"treasury","type":"address"},{"name":"memo","type":"string"},{"name":"tokenSupplyType","type":"bool"},{"name":"maxSupply","type":"int64"},{"name":"freezeDefault","type":"bool"},{"name":"tokenKeys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}]},{"name":"totalSupply","type":"int64"},{"name":"deleted","type":"bool"},{"name":"defaultKycStatus","type":"bool"},{"name":"pauseStatus","type":"bool"},{"name":"fixedFees","type":"tuple[]","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"fractionalFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"minimumAmount","type":"int64"},{"name":"maximumAmount","type":"int64"},{"name":"netOfTransfers","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"royaltyFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"fallbackFee","type":"tuple","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"feeCollector","type":"address"}]},{"name":"ledgerId","type":"string"}]},{"name":"decimals","type":"int32"}]}],"stateMutability":"view"},
{"type":"function","name":"getNonFungibleTokenInfo","inputs":[{"name":"token","type":"address"},{"name":"serialNumber","type":"int64"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"nonFungibleTokenInfo","type":"tuple","components":[{"name":"tokenInfo","type":"tuple","components":[{"name":"token","type":"tuple","components":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"treasury","type":"address"},{"name":"memo","type":"string"},{"name":"tokenSupplyType","type":"bool"},{"name":"maxSupply","type":"int64"},{"name":"freezeDefault","type":"bool"},{"name":"tokenKeys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}]},{"name":"totalSupply","type":"int64"},{"name":"deleted","type":"bool"},{"name":"defaultKycStatus","type":"bool"},{"name":"pauseStatus","type":"bool"},{"name":"fixedFees","type":"tuple[]","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"fractionalFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"minimumAmount","type":"int64"},{"name":"maximumAmount","type":"int64"},{"name":"netOfTransfers","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"royaltyFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"fallbackFee","type":"tuple","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"feeCollector","type":"address"}]},{"name":"ledgerId","type":"string"}]},{"name":"serialNumber","type":"int64"},{"name":"ownerId","type":"address"},{"name":"creationTime","type":"int64"},{"name":"metadata","type":"bytes"},{"name":"spenderId","type":"address"}]}],"stateMutability":"view"},
{"type":"function","name":"getTokenKey","inputs":[{"name":"token","type":"address"},{"name":"keyType","type":"uint256"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}],"stateMutability":"view"},
{"type":"function","name":"getTokenCustomFees","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"fixedFees","type":"tuple[]","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"fractionalFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"minimumAmount","type":"int64"},{"name":"maximumAmount","type":"int64"},{"name":"netOfTransfers","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"royaltyFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"fallbackFee","type":"tuple","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"feeCollector","type":"address"}]}],"stateMutability":"view"},
{"type":"function","name":"getTokenExpiryInfo","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}],"stateMutability":"view"},
{"type":"function","name":"allowance","inputs":[{"name":"token","type":"address"},{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"allowance","type":"uint256"}],"stateMutability":"view"},
{"type":"function","name":"getApproved","inputs":[{"name":"token","type":"address"},{"name":"serialNumber","type":"uint256"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"approved","type":"address"}],"stateMutability":"view"},
{"type":"function","name":"isApprovedForAll","inputs":[{"name":"token","type":"address"},{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"approved","type":"bool"}],"stateMutability":"view"},
{"type":"function","name":"mintToken","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"int64"},{"name":"metadata","type":"bytes[]"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"newTotalSupply","type":"int64"},{"name":"serialNumbers","type":"int64[]"}],"stateMutability":"nonpayable"},
{"type":"function","name":"burnToken","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"int64"},{"name":"serialNumbers","type":"int64[]"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"newTotalSupply","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"wipeTokenAccount","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"},{"name":"amount","type":"int64"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"wipeTokenAccountNFT","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"},{"name":"serialNumbers","type":"int64[]"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"freezeToken","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"unfreezeToken","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"grantTokenKyc","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"revokeTokenKyc","inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"pauseToken","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"unpauseToken","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"deleteToken","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"associateToken","inputs":[{"name":"account","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"associateTokens","inputs":[{"name":"account","type":"address"},{"name":"tokens","type":"address[]"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"dissociateToken","inputs":[{"name":"account","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"dissociateTokens","inputs":[{"name":"account","type":"address"},{"name":"tokens","type":"address[]"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"transferToken","inputs":[{"name":"token","type":"address"},{"name":"sender","type":"address"},{"name":"recipient","type":"address"},{"name":"amount","type":"int64"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"transferTokens","inputs":[{"name":"token","type":"address"},{"name":"accountId","type":"address[]"},{"name":"amount","type":"int64[]"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"transferNFT","inputs":[{"name":"token","type":"address"},{"name":"sender","type":"address"},{"name":"recipient","type":"address"},{"name":"serialNumber","type":"int64"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"transferNFTs","inputs":[{"name":"token","type":"address"},{"name":"sender","type":"address[]"},{"name":"receiver","type":"address[]"},{"name":"serialNumber","type":"int64[]"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"transferFrom","inputs":[{"name":"token","type":"address"},{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"transferFromNFT","inputs":[{"name":"token","type":"address"},{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"serialNumber","type":"uint256"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"approve","inputs":[{"name":"token","type":"address"},{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"approveNFT","inputs":[{"name":"token","type":"address"},{"name":"approved","type":"address"},{"name":"serialNumber","type":"uint256"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"setApprovalForAll","inputs":[{"name":"token","type":"address"},{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"createFungibleToken","inputs":[{"name":"token","type":"tuple","components":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"treasury","type":"address"},{"name":"memo","type":"string"},{"name":"tokenSupplyType","type":"bool"},{"name":"maxSupply","type":"int64"},{"name":"freezeDefault","type":"bool"},{"name":"tokenKeys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}]},{"name":"initialTotalSupply","type":"int64"},{"name":"decimals","type":"int32"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"tokenAddress","type":"address"}],"stateMutability":"payable"},
{"type":"function","name":"createNonFungibleToken","inputs":[{"name":"token","type":"tuple","components":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"treasury","type":"address"},{"name":"memo","type":"string"},{"name":"tokenSupplyType","type":"bool"},{"name":"maxSupply","type":"int64"},{"name":"freezeDefault","type":"bool"},{"name":"tokenKeys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}]}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"tokenAddress","type":"address"}],"stateMutability":"payable"},
{"type":"function","name":"createFungibleTokenWithCustomFees","inputs":[{"name":"token","type":"tuple","components":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"treasury","type":"address"},{"name":"memo","type":"string"},{"name":"tokenSupplyType","type":"bool"},{"name":"maxSupply","type":"int64"},{"name":"freezeDefault","type":"bool"},{"name":"tokenKeys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}]},{"name":"initialTotalSupply","type":"int64"},{"name":"decimals","type":"int32"},{"name":"fixedFees","type":"tuple[]","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"fractionalFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"minimumAmount","type":"int64"},{"name":"maximumAmount","type":"int64"},{"name":"netOfTransfers","type":"bool"},{"name":"feeCollector","type":"address"}]}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"tokenAddress","type":"address"}],"stateMutability":"payable"},
{"type":"function","name":"createNonFungibleTokenWithCustomFees","inputs":[{"name":"token","type":"tuple","components":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"treasury","type":"address"},{"name":"memo","type":"string"},{"name":"tokenSupplyType","type":"bool"},{"name":"maxSupply","type":"int64"},{"name":"freezeDefault","type":"bool"},{"name":"tokenKeys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}]},{"name":"fixedFees","type":"tuple[]","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"royaltyFees","type":"tuple[]","components":[{"name":"numerator","type":"int64"},{"name":"denominator","type":"int64"},{"name":"fallbackFee","type":"tuple","components":[{"name":"amount","type":"int64"},{"name":"tokenId","type":"address"},{"name":"useHbarsForPayment","type":"bool"},{"name":"useCurrentTokenForPayment","type":"bool"},{"name":"feeCollector","type":"address"}]},{"name":"feeCollector","type":"address"}]}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"tokenAddress","type":"address"}],"stateMutability":"payable"},
{"type":"function","name":"updateTokenInfo","inputs":[{"name":"token","type":"address"},{"name":"tokenInfo","type":"tuple","components":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"treasury","type":"address"},{"name":"memo","type":"string"},{"name":"tokenSupplyType","type":"bool"},{"name":"maxSupply","type":"int64"},{"name":"freezeDefault","type":"bool"},{"name":"tokenKeys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]},{"name":"expiry","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"updateTokenKeys","inputs":[{"name":"token","type":"address"},{"name":"keys","type":"tuple[]","components":[{"name":"keyType","type":"uint256"},{"name":"key","type":"tuple","components":[{"name":"inheritAccountKey","type":"bool"},{"name":"contractId","type":"address"},{"name":"ed25519","type":"bytes"},{"name":"ECDSA_secp256k1","type":"bytes"},{"name":"delegatableContractId","type":"address"}]}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"updateTokenExpiryInfo","inputs":[{"name":"token","type":"address"},{"name":"expiryInfo","type":"tuple","components":[{"name":"second","type":"int64"},{"name":"autoRenewAccount","type":"address"},{"name":"autoRenewPeriod","type":"int64"}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"redirectForToken","inputs":[{"name":"token","type":"address"},{"name":"encodedFunctionSelector","type":"bytes"}],"outputs":[{"name":"responseCode","type":"int64"},{"name":"response","type":"bytes"}],"stateMutability":"nonpayable"},
{"type":"function","name":"cryptoTransfer","inputs":[{"name":"tokenTransfers","type":"tuple[]","components":[{"name":"token","type":"address"},{"name":"transfers","type":"tuple[]","components":[{"name":"accountID","type":"address"},{"name":"amount","type":"int64"}]},{"name":"nftTransfers","type":"tuple[]","components":[{"name":"senderAccountID","type":"address"},{"name":"receiverAccountID","type":"address"},{"name":"serialNumber","type":"int64"}]}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"cryptoTransfer","inputs":[{"name":"transferList","type":"tuple","components":[{"name":"transfers","type":"tuple[]","components":[{"name":"accountID","type":"address"},{"name":"amount","type":"int64"},{"name":"isApproval","type":"bool"}]}]},{"name":"tokenTransfers","type":"tuple[]","components":[{"name":"token","type":"address"},{"name":"transfers","type":"tuple[]","components":[{"name":"accountID","type":"address"},{"name":"amount","type":"int64"},{"name":"isApproval","type":"bool"}]},{"name":"nftTransfers","type":"tuple[]","components":[{"name":"senderAccountID","type":"address"},{"name":"receiverAccountID","type":"address"},{"name":"serialNumber","type":"int64"},{"name":"isApproval","type":"bool"}]}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"airdropTokens","inputs":[{"name":"tokenTransfers","type":"tuple[]","components":[{"name":"token","type":"address"},{"name":"transfers","type":"tuple[]","components":[{"name":"accountID","type":"address"},{"name":"amount","type":"int64"},{"name":"isApproval","type":"bool"}]},{"name":"nftTransfers","type":"tuple[]","components":[{"name":"senderAccountID","type":"address"},{"name":"receiverAccountID","type":"address"},{"name":"serialNumber","type":"int64"},{"name":"isApproval","type":"bool"}]}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"claimAirdrops","inputs":[{"name":"pendingAirdrops","type":"tuple[]","components":[{"name":"sender","type":"address"},{"name":"receiver","type":"address"},{"name":"token","type":"address"},{"name":"serial","type":"int64"}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"cancelAirdrops","inputs":[{"name":"pendingAirdrops","type":"tuple[]","components":[{"name":"sender","type":"address"},{"name":"receiver","type":"address"},{"name":"token","type":"address"},{"name":"serial","type":"int64"}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"},
{"type":"function","name":"rejectTokens","inputs":[{"name":"rejectingAddress","type":"address"},{"name":"ftAddresses","type":"address[]"},{"name":"nftIds","type":"tuple[]","components":[{"name":"nft","type":"address"},{"name":"serial","type":"int64"}]}],"outputs":[{"name":"responseCode","type":"int64"}],"stateMutability":"nonpayable"}
]`

const ercABIJSON = `[
{"type":"function","name":"name","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
{"type":"function","name":"symbol","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
{"type":"function","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
{"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
{"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
{"type":"function","name":"ownerOf","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
{"type":"function","name":"tokenURI","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
{"type":"function","name":"allowance","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
{"type":"function","name":"getApproved","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
{"type":"function","name":"isApprovedForAll","inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
{"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
{"type":"function","name":"setApprovalForAll","inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"associate","inputs":[],"outputs":[{"name":"responseCode","type":"uint256"}],"stateMutability":"nonpayable"},
{"type":"function","name":"dissociate","inputs":[],"outputs":[{"name":"responseCode","type":"uint256"}],"stateMutability":"nonpayable"},
{"type":"function","name":"isAssociated","inputs":[],"outputs":[{"name":"associated","type":"bool"}],"stateMutability":"view"}
]`

const exchangeRateABIJSON = `[
{"type":"function","name":"tinycentsToTinybars","inputs":[{"name":"tinycents","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable"},
{"type":"function","name":"tinybarsToTinycents","inputs":[{"name":"tinybars","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable"}
]`

const prngABIJSON = `[
{"type":"function","name":"getPseudorandomSeed","inputs":[],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"nonpayable"}
]`
