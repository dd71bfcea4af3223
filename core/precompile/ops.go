package precompile

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Op enumerates every token-service operation the dispatcher recognises.
// Redirect operations are the ERC-20/721 and HRC calls addressed to a token.
type Op int

const (
	OpUnknown Op = iota

	OpIsToken
	OpIsFrozen
	OpIsKyc
	OpGetTokenDefaultFreezeStatus
	OpGetTokenDefaultKycStatus
	OpGetTokenType
	OpGetTokenInfo
	OpGetFungibleTokenInfo
	OpGetNonFungibleTokenInfo
	OpGetTokenKey
	OpGetTokenCustomFees
	OpGetTokenExpiryInfo
	OpAllowance
	OpGetApproved
	OpIsApprovedForAll

	OpMintToken
	OpBurnToken
	OpWipeTokenAccount
	OpWipeTokenAccountNFT
	OpFreezeToken
	OpUnfreezeToken
	OpGrantTokenKyc
	OpRevokeTokenKyc
	OpPauseToken
	OpUnpauseToken
	OpDeleteToken
	OpAssociateToken
	OpAssociateTokens
	OpDissociateToken
	OpDissociateTokens
	OpTransferToken
	OpTransferTokens
	OpTransferNFT
	OpTransferNFTs
	OpTransferFrom
	OpTransferFromNFT
	OpApprove
	OpApproveNFT
	OpSetApprovalForAll
	OpCreateFungibleToken
	OpCreateNonFungibleToken
	OpUpdateTokenInfo
	OpUpdateTokenKeys
	OpUpdateTokenExpiryInfo

	OpRedirectForToken

	OpCryptoTransfer
	OpCryptoTransferV2
	OpCreateFungibleTokenWithCustomFees
	OpCreateNonFungibleTokenWithCustomFees
	OpAirdropTokens
	OpClaimAirdrops
	OpCancelAirdrops
	OpRejectTokens

	OpName
	OpSymbol
	OpDecimals
	OpTotalSupply
	OpBalanceOf
	OpOwnerOf
	OpTokenURI
	OpRedirectAllowance
	OpRedirectGetApproved
	OpRedirectIsApprovedForAll
	OpTransfer
	OpRedirectTransferFrom
	OpRedirectApprove
	OpRedirectSetApprovalForAll
	OpAssociate
	OpDissociate
	OpIsAssociated
)

type opKind uint8

const (
	kindView opKind = iota
	kindMutation
	kindUnsupported
	kindRedirect
)

type opDef struct {
	sig  string
	kind opKind
	gas  uint64
}

// Gas charged per operation class. Operations are priced independently of
// the state they touch so that estimates are reproducible.
const (
	gasView        uint64 = 100
	gasTransfer    uint64 = 10_000
	gasAssociate   uint64 = 12_000
	gasSupply      uint64 = 20_000
	gasAdmin       uint64 = 8_000
	gasApprove     uint64 = 6_000
	gasCreate      uint64 = 100_000
	gasUpdate      uint64 = 15_000
	gasUnsupported uint64 = 100
)

var htsOps = map[Op]opDef{
	OpIsToken:                     {"isToken(address)", kindView, gasView},
	OpIsFrozen:                    {"isFrozen(address,address)", kindView, gasView},
	OpIsKyc:                       {"isKyc(address,address)", kindView, gasView},
	OpGetTokenDefaultFreezeStatus: {"getTokenDefaultFreezeStatus(address)", kindView, gasView},
	OpGetTokenDefaultKycStatus:    {"getTokenDefaultKycStatus(address)", kindView, gasView},
	OpGetTokenType:                {"getTokenType(address)", kindView, gasView},
	OpGetTokenInfo:                {"getTokenInfo(address)", kindView, gasView},
	OpGetFungibleTokenInfo:        {"getFungibleTokenInfo(address)", kindView, gasView},
	OpGetNonFungibleTokenInfo:     {"getNonFungibleTokenInfo(address,int64)", kindView, gasView},
	OpGetTokenKey:                 {"getTokenKey(address,uint256)", kindView, gasView},
	OpGetTokenCustomFees:          {"getTokenCustomFees(address)", kindView, gasView},
	OpGetTokenExpiryInfo:          {"getTokenExpiryInfo(address)", kindView, gasView},
	OpAllowance:                   {"allowance(address,address,address)", kindView, gasView},
	OpGetApproved:                 {"getApproved(address,uint256)", kindView, gasView},
	OpIsApprovedForAll:            {"isApprovedForAll(address,address,address)", kindView, gasView},

	OpMintToken:              {"mintToken(address,int64,bytes[])", kindMutation, gasSupply},
	OpBurnToken:              {"burnToken(address,int64,int64[])", kindMutation, gasSupply},
	OpWipeTokenAccount:       {"wipeTokenAccount(address,address,int64)", kindMutation, gasSupply},
	OpWipeTokenAccountNFT:    {"wipeTokenAccountNFT(address,address,int64[])", kindMutation, gasSupply},
	OpFreezeToken:            {"freezeToken(address,address)", kindMutation, gasAdmin},
	OpUnfreezeToken:          {"unfreezeToken(address,address)", kindMutation, gasAdmin},
	OpGrantTokenKyc:          {"grantTokenKyc(address,address)", kindMutation, gasAdmin},
	OpRevokeTokenKyc:         {"revokeTokenKyc(address,address)", kindMutation, gasAdmin},
	OpPauseToken:             {"pauseToken(address)", kindMutation, gasAdmin},
	OpUnpauseToken:           {"unpauseToken(address)", kindMutation, gasAdmin},
	OpDeleteToken:            {"deleteToken(address)", kindMutation, gasAdmin},
	OpAssociateToken:         {"associateToken(address,address)", kindMutation, gasAssociate},
	OpAssociateTokens:        {"associateTokens(address,address[])", kindMutation, gasAssociate},
	OpDissociateToken:        {"dissociateToken(address,address)", kindMutation, gasAssociate},
	OpDissociateTokens:       {"dissociateTokens(address,address[])", kindMutation, gasAssociate},
	OpTransferToken:          {"transferToken(address,address,address,int64)", kindMutation, gasTransfer},
	OpTransferTokens:         {"transferTokens(address,address[],int64[])", kindMutation, gasTransfer},
	OpTransferNFT:            {"transferNFT(address,address,address,int64)", kindMutation, gasTransfer},
	OpTransferNFTs:           {"transferNFTs(address,address[],address[],int64[])", kindMutation, gasTransfer},
	OpTransferFrom:           {"transferFrom(address,address,address,uint256)", kindMutation, gasTransfer},
	OpTransferFromNFT:        {"transferFromNFT(address,address,address,uint256)", kindMutation, gasTransfer},
	OpApprove:                {"approve(address,address,uint256)", kindMutation, gasApprove},
	OpApproveNFT:             {"approveNFT(address,address,uint256)", kindMutation, gasApprove},
	OpSetApprovalForAll:      {"setApprovalForAll(address,address,bool)", kindMutation, gasApprove},
	OpCreateFungibleToken:    {createFungibleSig, kindMutation, gasCreate},
	OpCreateNonFungibleToken: {createNonFungibleSig, kindMutation, gasCreate},
	OpUpdateTokenInfo:        {updateTokenInfoSig, kindMutation, gasUpdate},
	OpUpdateTokenKeys:        {updateTokenKeysSig, kindMutation, gasUpdate},
	OpUpdateTokenExpiryInfo:  {"updateTokenExpiryInfo(address,(int64,address,int64))", kindMutation, gasUpdate},

	OpRedirectForToken: {"redirectForToken(address,bytes)", kindRedirect, 0},

	OpCryptoTransfer:                       {"cryptoTransfer((address,(address,int64)[],(address,address,int64)[])[])", kindUnsupported, gasUnsupported},
	OpCryptoTransferV2:                     {"cryptoTransfer(((address,int64,bool)[]),(address,(address,int64,bool)[],(address,address,int64,bool)[])[])", kindUnsupported, gasUnsupported},
	OpCreateFungibleTokenWithCustomFees:    {createFungibleWithFeesSig, kindUnsupported, gasUnsupported},
	OpCreateNonFungibleTokenWithCustomFees: {createNonFungibleWithFeesSig, kindUnsupported, gasUnsupported},
	OpAirdropTokens:                        {"airdropTokens((address,(address,int64,bool)[],(address,address,int64,bool)[])[])", kindUnsupported, gasUnsupported},
	OpClaimAirdrops:                        {"claimAirdrops((address,address,address,int64)[])", kindUnsupported, gasUnsupported},
	OpCancelAirdrops:                       {"cancelAirdrops((address,address,address,int64)[])", kindUnsupported, gasUnsupported},
	OpRejectTokens:                         {"rejectTokens(address,address[],(address,int64)[])", kindUnsupported, gasUnsupported},
}

var ercOps = map[Op]opDef{
	OpName:                      {"name()", kindView, gasView},
	OpSymbol:                    {"symbol()", kindView, gasView},
	OpDecimals:                  {"decimals()", kindView, gasView},
	OpTotalSupply:               {"totalSupply()", kindView, gasView},
	OpBalanceOf:                 {"balanceOf(address)", kindView, gasView},
	OpOwnerOf:                   {"ownerOf(uint256)", kindView, gasView},
	OpTokenURI:                  {"tokenURI(uint256)", kindView, gasView},
	OpRedirectAllowance:         {"allowance(address,address)", kindView, gasView},
	OpRedirectGetApproved:       {"getApproved(uint256)", kindView, gasView},
	OpRedirectIsApprovedForAll:  {"isApprovedForAll(address,address)", kindView, gasView},
	OpTransfer:                  {"transfer(address,uint256)", kindMutation, gasTransfer},
	OpRedirectTransferFrom:      {"transferFrom(address,address,uint256)", kindMutation, gasTransfer},
	OpRedirectApprove:           {"approve(address,uint256)", kindMutation, gasApprove},
	OpRedirectSetApprovalForAll: {"setApprovalForAll(address,bool)", kindMutation, gasApprove},
	OpAssociate:                 {"associate()", kindMutation, gasAssociate},
	OpDissociate:                {"dissociate()", kindMutation, gasAssociate},
	OpIsAssociated:              {"isAssociated()", kindView, gasView},
}

const (
	hederaTokenTuple = "(string,string,address,string,bool,int64,bool,(uint256,(bool,address,bytes,bytes,address))[],(int64,address,int64))"
	fixedFeeTuple    = "(int64,address,bool,bool,address)"
	fractionalTuple  = "(int64,int64,int64,int64,bool,address)"
	royaltyTuple     = "(int64,int64," + fixedFeeTuple + ",address)"

	createFungibleSig            = "createFungibleToken(" + hederaTokenTuple + ",int64,int32)"
	createNonFungibleSig         = "createNonFungibleToken(" + hederaTokenTuple + ")"
	createFungibleWithFeesSig    = "createFungibleTokenWithCustomFees(" + hederaTokenTuple + ",int64,int32," + fixedFeeTuple + "[]," + fractionalTuple + "[])"
	createNonFungibleWithFeesSig = "createNonFungibleTokenWithCustomFees(" + hederaTokenTuple + "," + fixedFeeTuple + "[]," + royaltyTuple + "[])"
	updateTokenInfoSig           = "updateTokenInfo(address," + hederaTokenTuple + ")"
	updateTokenKeysSig           = "updateTokenKeys(address,(uint256,(bool,address,bytes,bytes,address))[])"
)

type boundOp struct {
	op     Op
	def    opDef
	method *abi.Method
}

var (
	htsBySelector = bindOps(htsABI, htsOps)
	ercBySelector = bindOps(ercABI, ercOps)
	opNames       = map[Op]string{}
)

// bindOps pairs every operation with its ABI method through the canonical
// signature. A missing or unbound method is a programming error.
func bindOps(parsed abi.ABI, defs map[Op]opDef) map[[4]byte]boundOp {
	bySig := make(map[string]*abi.Method, len(parsed.Methods))
	for name := range parsed.Methods {
		m := parsed.Methods[name]
		bySig[m.Sig] = &m
	}
	out := make(map[[4]byte]boundOp, len(defs))
	for op, def := range defs {
		m, ok := bySig[def.sig]
		if !ok {
			panic(fmt.Sprintf("precompile: no abi method for %s", def.sig))
		}
		var sel [4]byte
		copy(sel[:], m.ID)
		out[sel] = boundOp{op: op, def: def, method: m}
		opNames[op] = m.RawName
	}
	if len(out) != len(parsed.Methods) {
		panic(fmt.Sprintf("precompile: %d abi methods but %d operations", len(parsed.Methods), len(out)))
	}
	return out
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Mutating reports whether the operation changes ledger state.
func (op Op) Mutating() bool {
	if def, ok := htsOps[op]; ok {
		return def.kind == kindMutation
	}
	if def, ok := ercOps[op]; ok {
		return def.kind == kindMutation
	}
	return false
}
