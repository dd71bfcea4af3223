package precompile

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mirrorevm/core/types"
)

var errMalformedRedirect = errors.New("malformed redirect")

// parseRedirect splits a redirectForToken call into the token address and
// the wrapped ERC call. Two encodings are accepted: the packed form token
// proxies emit (selector, 20-byte token, raw call data) and the ABI form
// redirectForToken(address,bytes). The ABI form is only recognised when
// every length field agrees with the input size.
func parseRedirect(input []byte) (common.Address, []byte, error) {
	if len(input) < 4 || !bytes.Equal(input[:4], RedirectSelector[:]) {
		return common.Address{}, nil, errMalformedRedirect
	}
	if token, data, ok := parseABIRedirect(input[4:]); ok {
		return token, data, nil
	}
	if len(input) < 4+common.AddressLength {
		return common.Address{}, nil, errMalformedRedirect
	}
	return common.BytesToAddress(input[4 : 4+common.AddressLength]), input[4+common.AddressLength:], nil
}

func parseABIRedirect(body []byte) (common.Address, []byte, bool) {
	if len(body) < 96 {
		return common.Address{}, nil, false
	}
	if !isZero(body[:12]) {
		return common.Address{}, nil, false
	}
	offset := new(big.Int).SetBytes(body[32:64])
	if offset.Cmp(big.NewInt(64)) != 0 {
		return common.Address{}, nil, false
	}
	if !isZero(body[64:88]) {
		return common.Address{}, nil, false
	}
	length := new(big.Int).SetBytes(body[88:96]).Uint64()
	padded := (length + 31) / 32 * 32
	if uint64(len(body)) != 96+padded {
		return common.Address{}, nil, false
	}
	return common.BytesToAddress(body[12:32]), body[96 : 96+length], true
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// PackRedirect builds the packed redirect a token proxy forwards.
func PackRedirect(token common.Address, data []byte) []byte {
	out := make([]byte, 0, 4+common.AddressLength+len(data))
	out = append(out, RedirectSelector[:]...)
	out = append(out, token.Bytes()...)
	return append(out, data...)
}

type ercAccountArg struct {
	Account common.Address `abi:"account"`
}

type ercTokenIDArg struct {
	TokenId *big.Int `abi:"tokenId"`
}

type ercAllowanceArgs struct {
	Owner   common.Address `abi:"owner"`
	Spender common.Address `abi:"spender"`
}

type ercOperatorArgs struct {
	Owner    common.Address `abi:"owner"`
	Operator common.Address `abi:"operator"`
}

type ercTransferArgs struct {
	To     common.Address `abi:"to"`
	Amount *big.Int       `abi:"amount"`
}

type ercTransferFromArgs struct {
	From   common.Address `abi:"from"`
	To     common.Address `abi:"to"`
	Amount *big.Int       `abi:"amount"`
}

type ercApproveArgs struct {
	Spender common.Address `abi:"spender"`
	Amount  *big.Int       `abi:"amount"`
}

type ercSetApprovalArgs struct {
	Operator common.Address `abi:"operator"`
	Approved bool           `abi:"approved"`
}

func (d *Dispatcher) ercMetadata(c *call) ([]byte, error) {
	t, err := d.redirectToken(c)
	if err != nil {
		return nil, err
	}
	switch c.op {
	case OpName:
		return c.pack(t.Name)
	case OpSymbol:
		return c.pack(t.Symbol)
	case OpDecimals:
		if t.Type != types.FungibleCommon {
			return nil, fail(NotSupported)
		}
		if t.Decimals < 0 || t.Decimals > 255 {
			return nil, types.Internalf("token %s has decimals %d", t.ID, t.Decimals)
		}
		return c.pack(uint8(t.Decimals))
	}
	return c.pack(cloneInt(t.TotalSupply))
}

// ercBalanceOf reports zero for addresses that are not accounts or never
// associated with the token.
func (d *Dispatcher) ercBalanceOf(c *call) ([]byte, error) {
	var a ercAccountArg
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.redirectToken(c)
	if err != nil {
		return nil, err
	}
	account, ok, err := d.optionalAccount(a.Account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.pack(new(big.Int))
	}
	rel, err := d.ledger.Relationship(d.ctx, account, t.ID)
	if err != nil {
		return nil, err
	}
	if rel == nil || !rel.Associated {
		return c.pack(new(big.Int))
	}
	return c.pack(cloneInt(rel.Balance))
}

func (d *Dispatcher) ercSerial(c *call) (*types.TokenView, *types.NftView, error) {
	var a ercTokenIDArg
	if err := c.args(&a); err != nil {
		return nil, nil, err
	}
	t, err := d.redirectToken(c)
	if err != nil {
		return nil, nil, err
	}
	if t.Type != types.NonFungibleUnique {
		return nil, nil, fail(NotSupported)
	}
	if !a.TokenId.IsInt64() {
		return nil, nil, fail(InvalidNftID)
	}
	nft, err := d.nft(t, a.TokenId.Int64())
	if err != nil {
		return nil, nil, err
	}
	return t, nft, nil
}

func (d *Dispatcher) ercOwnerOf(c *call) ([]byte, error) {
	_, nft, err := d.ercSerial(c)
	if err != nil {
		return nil, err
	}
	owner, err := d.evmAddress(nft.Owner)
	if err != nil {
		return nil, err
	}
	return c.pack(owner)
}

func (d *Dispatcher) ercTokenURI(c *call) ([]byte, error) {
	_, nft, err := d.ercSerial(c)
	if err != nil {
		return nil, err
	}
	return c.pack(string(nft.Metadata))
}

func (d *Dispatcher) ercAllowance(c *call) ([]byte, error) {
	var a ercAllowanceArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.redirectToken(c)
	if err != nil {
		return nil, err
	}
	amount, err := d.allowanceOf(t, a.Owner, a.Spender)
	if err != nil {
		return nil, err
	}
	return c.pack(amount)
}

func (d *Dispatcher) ercGetApproved(c *call) ([]byte, error) {
	var a ercTokenIDArg
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.redirectToken(c)
	if err != nil {
		return nil, err
	}
	approved, err := d.approvedOf(t, a.TokenId)
	if err != nil {
		return nil, err
	}
	return c.pack(approved)
}

func (d *Dispatcher) ercIsApprovedForAll(c *call) ([]byte, error) {
	var a ercOperatorArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.redirectToken(c)
	if err != nil {
		return nil, err
	}
	approved, err := d.approvedForAll(t, a.Owner, a.Operator)
	if err != nil {
		return nil, err
	}
	return c.pack(approved)
}

func (d *Dispatcher) ercTransfer(c *call) ([]byte, error) {
	var a ercTransferArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(c.token)
	if err != nil {
		return nil, err
	}
	from, to, err := d.parties(c.frame.Sender, a.To)
	if err != nil {
		return nil, err
	}
	if err := d.moveFungible(t, from, to, a.Amount, nil); err != nil {
		return nil, err
	}
	return c.pack(true)
}

// ercTransferFrom serves both standards; ERC-721 transfers return no data.
func (d *Dispatcher) ercTransferFrom(c *call) ([]byte, error) {
	var a ercTransferFromArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(c.token)
	if err != nil {
		return nil, err
	}
	if t.Type == types.NonFungibleUnique {
		if !a.Amount.IsInt64() {
			return nil, fail(InvalidNftID)
		}
		if err := d.transferSerial(c, c.token, a.From, a.To, a.Amount.Int64()); err != nil {
			return nil, err
		}
		return []byte{}, nil
	}
	if err := d.spendFungible(c, t, a.From, a.To, a.Amount); err != nil {
		return nil, err
	}
	return c.pack(true)
}

func (d *Dispatcher) ercApprove(c *call) ([]byte, error) {
	var a ercApproveArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(c.token)
	if err != nil {
		return nil, err
	}
	if t.Type == types.NonFungibleUnique {
		if err := d.approveSerial(c, t, a.Spender, a.Amount); err != nil {
			return nil, err
		}
		return []byte{}, nil
	}
	if err := d.grantAllowance(c, t, a.Spender, a.Amount); err != nil {
		return nil, err
	}
	return c.pack(true)
}

func (d *Dispatcher) ercSetApprovalForAll(c *call) ([]byte, error) {
	var a ercSetApprovalArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(c.token)
	if err != nil {
		return nil, err
	}
	if err := d.setOperator(c, t, a.Operator, a.Approved); err != nil {
		return nil, err
	}
	return c.pack()
}

func (d *Dispatcher) hrcAssociate(c *call, associate bool) ([]byte, error) {
	account, err := d.sender(c)
	if err != nil {
		return nil, err
	}
	if err := d.setAssociation(account, c.token, associate); err != nil {
		return nil, err
	}
	return c.pack(big.NewInt(int64(Success)))
}

func (d *Dispatcher) hrcIsAssociated(c *call) ([]byte, error) {
	t, err := d.redirectToken(c)
	if err != nil {
		return nil, err
	}
	account, ok, err := d.optionalAccount(c.frame.Sender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.pack(false)
	}
	rel, err := d.ledger.Relationship(d.ctx, account, t.ID)
	if err != nil {
		return nil, err
	}
	return c.pack(rel != nil && rel.Associated)
}
