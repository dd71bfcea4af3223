package precompile

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mirrorevm/core/types"
)

type mintArgs struct {
	Token    common.Address `abi:"token"`
	Amount   int64          `abi:"amount"`
	Metadata [][]byte       `abi:"metadata"`
}

type burnArgs struct {
	Token         common.Address `abi:"token"`
	Amount        int64          `abi:"amount"`
	SerialNumbers []int64        `abi:"serialNumbers"`
}

type wipeArgs struct {
	Token   common.Address `abi:"token"`
	Account common.Address `abi:"account"`
	Amount  int64          `abi:"amount"`
}

type wipeNFTArgs struct {
	Token         common.Address `abi:"token"`
	Account       common.Address `abi:"account"`
	SerialNumbers []int64        `abi:"serialNumbers"`
}

type associateManyArgs struct {
	Account common.Address   `abi:"account"`
	Tokens  []common.Address `abi:"tokens"`
}

type transferTokenArgs struct {
	Token     common.Address `abi:"token"`
	Sender    common.Address `abi:"sender"`
	Recipient common.Address `abi:"recipient"`
	Amount    int64          `abi:"amount"`
}

type transferTokensArgs struct {
	Token     common.Address   `abi:"token"`
	AccountId []common.Address `abi:"accountId"`
	Amount    []int64          `abi:"amount"`
}

type transferNFTArgs struct {
	Token        common.Address `abi:"token"`
	Sender       common.Address `abi:"sender"`
	Recipient    common.Address `abi:"recipient"`
	SerialNumber int64          `abi:"serialNumber"`
}

type transferNFTsArgs struct {
	Token        common.Address   `abi:"token"`
	Sender       []common.Address `abi:"sender"`
	Receiver     []common.Address `abi:"receiver"`
	SerialNumber []int64          `abi:"serialNumber"`
}

type transferFromArgs struct {
	Token  common.Address `abi:"token"`
	From   common.Address `abi:"from"`
	To     common.Address `abi:"to"`
	Amount *big.Int       `abi:"amount"`
}

type transferFromNFTArgs struct {
	Token        common.Address `abi:"token"`
	From         common.Address `abi:"from"`
	To           common.Address `abi:"to"`
	SerialNumber *big.Int       `abi:"serialNumber"`
}

type approveArgs struct {
	Token   common.Address `abi:"token"`
	Spender common.Address `abi:"spender"`
	Amount  *big.Int       `abi:"amount"`
}

type approveNFTArgs struct {
	Token        common.Address `abi:"token"`
	Approved     common.Address `abi:"approved"`
	SerialNumber *big.Int       `abi:"serialNumber"`
}

type setApprovalArgs struct {
	Token    common.Address `abi:"token"`
	Operator common.Address `abi:"operator"`
	Approved bool           `abi:"approved"`
}

func requireKey(t *types.TokenView, kt types.KeyType, code ResponseCode) error {
	if len(t.Keys.Get(kt)) == 0 {
		return fail(code)
	}
	return nil
}

// holding returns a writable copy of an associated relationship.
func (d *Dispatcher) holding(account types.EntityID, t *types.TokenView) (*types.TokenRelationship, error) {
	rel, err := d.ledger.Relationship(d.ctx, account, t.ID)
	if err != nil {
		return nil, err
	}
	if rel == nil || !rel.Associated {
		return nil, fail(TokenNotAssociated)
	}
	return cloneRel(rel), nil
}

func transferable(t *types.TokenView, rel *types.TokenRelationship) error {
	if rel.FreezeStatus == types.FreezeFrozen {
		return fail(AccountFrozenForToken)
	}
	if len(t.Keys.Kyc) > 0 && rel.KycStatus != types.KycGranted {
		return fail(AccountKycNotGranted)
	}
	return nil
}

func (d *Dispatcher) setSupply(t *types.TokenView, supply *big.Int) {
	updated := cloneToken(t)
	updated.TotalSupply = supply
	d.ledger.PutToken(updated)
}

// operator resolves who moves an owner's units. A nil operator means the
// caller is the owner; otherwise the move must be covered by an approval.
func (d *Dispatcher) operator(c *call, owner types.EntityID) (*types.EntityID, error) {
	caller, ok, err := d.optionalAccount(c.frame.Sender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fail(SpenderDoesNotHaveAllowance)
	}
	if caller == owner {
		return nil, nil
	}
	return &caller, nil
}

func (d *Dispatcher) debit(t *types.TokenView, account types.EntityID, amount *big.Int, spender *types.EntityID) error {
	rel, err := d.holding(account, t)
	if err != nil {
		return err
	}
	if err := transferable(t, rel); err != nil {
		return err
	}
	if rel.Balance.Cmp(amount) < 0 {
		return fail(InsufficientTokenBalance)
	}
	if spender != nil {
		if err := d.consumeAllowance(t, account, *spender, amount); err != nil {
			return err
		}
	}
	rel.Balance.Sub(rel.Balance, amount)
	d.ledger.PutRelationship(rel)
	return nil
}

func (d *Dispatcher) credit(t *types.TokenView, account types.EntityID, amount *big.Int) error {
	rel, err := d.holding(account, t)
	if err != nil {
		return err
	}
	if err := transferable(t, rel); err != nil {
		return err
	}
	rel.Balance.Add(rel.Balance, amount)
	d.ledger.PutRelationship(rel)
	return nil
}

func (d *Dispatcher) consumeAllowance(t *types.TokenView, owner, spender types.EntityID, amount *big.Int) error {
	a, err := d.ledger.Allowance(d.ctx, t.ID, owner, spender)
	if err != nil {
		return err
	}
	if a == nil || a.AmountRemaining == nil || a.AmountRemaining.Sign() == 0 {
		return fail(SpenderDoesNotHaveAllowance)
	}
	if a.AmountRemaining.Cmp(amount) < 0 {
		return fail(AmountExceedsAllowance)
	}
	updated := *a
	updated.AmountGranted = cloneInt(a.AmountGranted)
	updated.AmountRemaining = new(big.Int).Sub(a.AmountRemaining, amount)
	d.ledger.PutAllowance(&updated)
	return nil
}

// moveFungible transfers amount units of t. spender is non-nil when the
// move is made on the owner's behalf.
func (d *Dispatcher) moveFungible(t *types.TokenView, from, to types.EntityID, amount *big.Int, spender *types.EntityID) error {
	if t.Type != types.FungibleCommon {
		return fail(FungibleOnlyTransfer)
	}
	if amount.Sign() < 0 {
		return fail(TransfersNotZeroSum)
	}
	if err := d.debit(t, from, amount, spender); err != nil {
		return err
	}
	return d.credit(t, to, amount)
}

func (d *Dispatcher) moveNft(t *types.TokenView, from, to types.EntityID, serial int64, spender *types.EntityID) error {
	if t.Type != types.NonFungibleUnique {
		return fail(InvalidNftID)
	}
	nft, err := d.nft(t, serial)
	if err != nil {
		return err
	}
	if nft.Owner != from {
		return fail(SenderDoesNotOwnNft)
	}
	if spender != nil && nft.Spender != *spender {
		approval, err := d.ledger.NftAllowance(d.ctx, t.ID, from, *spender)
		if err != nil {
			return err
		}
		if approval == nil || !approval.ApprovedForAll {
			return fail(SpenderDoesNotHaveAllowance)
		}
	}
	one := big.NewInt(1)
	if err := d.debit(t, from, one, nil); err != nil {
		return err
	}
	if err := d.credit(t, to, one); err != nil {
		return err
	}
	moved := cloneNft(nft)
	moved.Owner = to
	moved.Spender = types.EntityID{}
	d.ledger.PutNft(moved)
	return nil
}

func (d *Dispatcher) mint(c *call) ([]byte, error) {
	var a mintArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := requireKey(t, types.KeySupply, TokenHasNoSupplyKey); err != nil {
		return nil, err
	}
	var minted *big.Int
	if t.Type == types.FungibleCommon {
		if a.Amount <= 0 {
			return nil, fail(InvalidTokenMintAmount)
		}
		minted = big.NewInt(a.Amount)
	} else {
		if len(a.Metadata) == 0 {
			return nil, fail(InvalidTokenMintAmount)
		}
		minted = big.NewInt(int64(len(a.Metadata)))
	}
	supply := new(big.Int).Add(cloneInt(t.TotalSupply), minted)
	if !supply.IsInt64() || (t.SupplyType == types.SupplyFinite && supply.Cmp(cloneInt(t.MaxSupply)) > 0) {
		return nil, fail(TokenMaxSupplyReached)
	}
	if err := d.credit(t, t.Treasury, minted); err != nil {
		return nil, err
	}
	serials := []int64{}
	if t.Type == types.NonFungibleUnique {
		next := cloneInt(t.TotalSupply).Int64()
		for _, metadata := range a.Metadata {
			if next, err = d.freeSerial(t, next+1); err != nil {
				return nil, err
			}
			d.ledger.PutNft(&types.NftView{
				TokenID:          t.ID,
				Serial:           next,
				Owner:            t.Treasury,
				Metadata:         append([]byte(nil), metadata...),
				CreatedTimestamp: d.view.Block().ConsensusTimestampUpperBound,
			})
			serials = append(serials, next)
		}
	}
	d.setSupply(t, supply)
	return c.success(supply.Int64(), serials)
}

// freeSerial returns the first serial at or after from that was never
// minted.
func (d *Dispatcher) freeSerial(t *types.TokenView, from int64) (int64, error) {
	for serial := from; ; serial++ {
		nft, err := d.ledger.Nft(d.ctx, t.ID, serial)
		if err != nil {
			return 0, err
		}
		if nft == nil {
			return serial, nil
		}
	}
}

func (d *Dispatcher) burn(c *call) ([]byte, error) {
	var a burnArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := requireKey(t, types.KeySupply, TokenHasNoSupplyKey); err != nil {
		return nil, err
	}
	var burned *big.Int
	if t.Type == types.FungibleCommon {
		if a.Amount <= 0 {
			return nil, fail(InvalidTokenBurnAmount)
		}
		burned = big.NewInt(a.Amount)
	} else {
		if len(a.SerialNumbers) == 0 {
			return nil, fail(InvalidTokenBurnAmount)
		}
		if err := d.retire(t, t.Treasury, a.SerialNumbers); err != nil {
			return nil, err
		}
		burned = big.NewInt(int64(len(a.SerialNumbers)))
	}
	if err := d.debit(t, t.Treasury, burned, nil); err != nil {
		if coded, ok := err.(*codeError); ok && coded.code == InsufficientTokenBalance {
			return nil, fail(InvalidTokenBurnAmount)
		}
		return nil, err
	}
	supply := new(big.Int).Sub(cloneInt(t.TotalSupply), burned)
	d.setSupply(t, supply)
	return c.success(supply.Int64())
}

// retire deletes serials that must all be held by owner.
func (d *Dispatcher) retire(t *types.TokenView, owner types.EntityID, serials []int64) error {
	for _, serial := range serials {
		nft, err := d.nft(t, serial)
		if err != nil {
			return err
		}
		if nft.Owner != owner {
			return fail(SenderDoesNotOwnNft)
		}
		gone := cloneNft(nft)
		gone.Deleted = true
		gone.Spender = types.EntityID{}
		d.ledger.PutNft(gone)
	}
	return nil
}

func (d *Dispatcher) wipe(c *call) ([]byte, error) {
	var a wipeArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := requireKey(t, types.KeyWipe, TokenHasNoWipeKey); err != nil {
		return nil, err
	}
	account, err := d.account(a.Account, InvalidAccountID)
	if err != nil {
		return nil, err
	}
	if t.Type != types.FungibleCommon || a.Amount <= 0 {
		return nil, fail(InvalidWipingAmount)
	}
	amount := big.NewInt(a.Amount)
	rel, err := d.holding(account, t)
	if err != nil {
		return nil, err
	}
	if rel.Balance.Cmp(amount) < 0 {
		return nil, fail(InvalidWipingAmount)
	}
	rel.Balance.Sub(rel.Balance, amount)
	d.ledger.PutRelationship(rel)
	d.setSupply(t, new(big.Int).Sub(cloneInt(t.TotalSupply), amount))
	return c.success()
}

func (d *Dispatcher) wipeNFT(c *call) ([]byte, error) {
	var a wipeNFTArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := requireKey(t, types.KeyWipe, TokenHasNoWipeKey); err != nil {
		return nil, err
	}
	account, err := d.account(a.Account, InvalidAccountID)
	if err != nil {
		return nil, err
	}
	if t.Type != types.NonFungibleUnique {
		return nil, fail(InvalidNftID)
	}
	if len(a.SerialNumbers) == 0 {
		return nil, fail(InvalidWipingAmount)
	}
	rel, err := d.holding(account, t)
	if err != nil {
		return nil, err
	}
	if err := d.retire(t, account, a.SerialNumbers); err != nil {
		return nil, err
	}
	wiped := big.NewInt(int64(len(a.SerialNumbers)))
	rel.Balance.Sub(rel.Balance, wiped)
	d.ledger.PutRelationship(rel)
	d.setSupply(t, new(big.Int).Sub(cloneInt(t.TotalSupply), wiped))
	return c.success()
}

func (d *Dispatcher) adminRelationship(c *call, kt types.KeyType, missing ResponseCode) (*types.TokenRelationship, error) {
	var a tokenAccountArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := requireKey(t, kt, missing); err != nil {
		return nil, err
	}
	account, err := d.account(a.Account, InvalidAccountID)
	if err != nil {
		return nil, err
	}
	return d.holding(account, t)
}

func (d *Dispatcher) setFreeze(c *call, frozen bool) ([]byte, error) {
	rel, err := d.adminRelationship(c, types.KeyFreeze, TokenHasNoFreezeKey)
	if err != nil {
		return nil, err
	}
	rel.FreezeStatus = types.FreezeUnfrozen
	if frozen {
		rel.FreezeStatus = types.FreezeFrozen
	}
	d.ledger.PutRelationship(rel)
	return c.success()
}

func (d *Dispatcher) setKyc(c *call, granted bool) ([]byte, error) {
	rel, err := d.adminRelationship(c, types.KeyKyc, TokenHasNoKycKey)
	if err != nil {
		return nil, err
	}
	rel.KycStatus = types.KycRevoked
	if granted {
		rel.KycStatus = types.KycGranted
	}
	d.ledger.PutRelationship(rel)
	return c.success()
}

func (d *Dispatcher) setPause(c *call, paused bool) ([]byte, error) {
	t, err := d.tokenOf(c)
	if err != nil {
		return nil, err
	}
	if t.Deleted {
		return nil, fail(TokenWasDeleted)
	}
	if err := requireKey(t, types.KeyPause, TokenHasNoPauseKey); err != nil {
		return nil, err
	}
	updated := cloneToken(t)
	updated.PauseStatus = types.PauseUnpaused
	if paused {
		updated.PauseStatus = types.PausePaused
	}
	d.ledger.PutToken(updated)
	return c.success()
}

func (d *Dispatcher) deleteToken(c *call) ([]byte, error) {
	var a tokenArg
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := requireKey(t, types.KeyAdmin, TokenIsImmutable); err != nil {
		return nil, err
	}
	updated := cloneToken(t)
	updated.Deleted = true
	d.ledger.PutToken(updated)
	return c.success()
}

func (d *Dispatcher) associateOne(c *call, associate bool) ([]byte, error) {
	var a tokenAccountArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	account, err := d.account(a.Account, InvalidAccountID)
	if err != nil {
		return nil, err
	}
	if err := d.setAssociation(account, a.Token, associate); err != nil {
		return nil, err
	}
	return c.success()
}

func (d *Dispatcher) associateMany(c *call, associate bool) ([]byte, error) {
	var a associateManyArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	account, err := d.account(a.Account, InvalidAccountID)
	if err != nil {
		return nil, err
	}
	for _, token := range a.Tokens {
		if err := d.setAssociation(account, token, associate); err != nil {
			return nil, err
		}
	}
	return c.success()
}

func (d *Dispatcher) setAssociation(account types.EntityID, tokenAddr common.Address, associate bool) error {
	t, err := d.token(tokenAddr)
	if err != nil {
		return err
	}
	if associate {
		return d.associate(account, t)
	}
	return d.dissociate(account, t)
}

func (d *Dispatcher) associate(account types.EntityID, t *types.TokenView) error {
	if t.Deleted {
		return fail(TokenWasDeleted)
	}
	rel, err := d.ledger.Relationship(d.ctx, account, t.ID)
	if err != nil {
		return err
	}
	if rel != nil && rel.Associated {
		return fail(TokenAlreadyAssociated)
	}
	d.ledger.PutRelationship(newRelationship(account, t, new(big.Int)))
	return nil
}

func (d *Dispatcher) dissociate(account types.EntityID, t *types.TokenView) error {
	rel, err := d.holding(account, t)
	if err != nil {
		return err
	}
	if !t.Deleted && rel.Balance.Sign() != 0 {
		return fail(RequiresZeroTokenBalances)
	}
	rel.Associated = false
	rel.Balance = new(big.Int)
	d.ledger.PutRelationship(rel)
	return nil
}

// newRelationship builds the relationship a fresh association starts with.
// Freeze and KYC status only apply when the token carries the matching key.
func newRelationship(account types.EntityID, t *types.TokenView, balance *big.Int) *types.TokenRelationship {
	rel := &types.TokenRelationship{
		AccountID:    account,
		TokenID:      t.ID,
		Balance:      balance,
		Associated:   true,
		FreezeStatus: types.FreezeNotApplicable,
		KycStatus:    types.KycNotApplicable,
	}
	if len(t.Keys.Freeze) > 0 {
		rel.FreezeStatus = types.FreezeUnfrozen
		if t.FreezeDefault {
			rel.FreezeStatus = types.FreezeFrozen
		}
	}
	if len(t.Keys.Kyc) > 0 {
		rel.KycStatus = types.KycRevoked
	}
	return rel
}

func (d *Dispatcher) transferToken(c *call) ([]byte, error) {
	var a transferTokenArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	from, to, err := d.parties(a.Sender, a.Recipient)
	if err != nil {
		return nil, err
	}
	spender, err := d.operator(c, from)
	if err != nil {
		return nil, err
	}
	if err := d.moveFungible(t, from, to, big.NewInt(a.Amount), spender); err != nil {
		return nil, err
	}
	return c.success()
}

func (d *Dispatcher) parties(fromAddr, toAddr common.Address) (types.EntityID, types.EntityID, error) {
	from, err := d.account(fromAddr, InvalidAccountID)
	if err != nil {
		return types.EntityID{}, types.EntityID{}, err
	}
	to, err := d.account(toAddr, InvalidAccountID)
	if err != nil {
		return types.EntityID{}, types.EntityID{}, err
	}
	return from, to, nil
}

// transferTokens applies a zero-sum list of balance adjustments. Debits are
// applied before credits.
func (d *Dispatcher) transferTokens(c *call) ([]byte, error) {
	var a transferTokensArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	if len(a.AccountId) != len(a.Amount) {
		return nil, fail(BadEncoding)
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if t.Type != types.FungibleCommon {
		return nil, fail(FungibleOnlyTransfer)
	}
	sum := new(big.Int)
	for _, amount := range a.Amount {
		sum.Add(sum, big.NewInt(amount))
	}
	if sum.Sign() != 0 {
		return nil, fail(TransfersNotZeroSum)
	}
	accounts := make([]types.EntityID, len(a.AccountId))
	for i, addr := range a.AccountId {
		if accounts[i], err = d.account(addr, InvalidAccountID); err != nil {
			return nil, err
		}
	}
	for i, amount := range a.Amount {
		if amount >= 0 {
			continue
		}
		spender, err := d.operator(c, accounts[i])
		if err != nil {
			return nil, err
		}
		if err := d.debit(t, accounts[i], new(big.Int).Neg(big.NewInt(amount)), spender); err != nil {
			return nil, err
		}
	}
	for i, amount := range a.Amount {
		if amount <= 0 {
			continue
		}
		if err := d.credit(t, accounts[i], big.NewInt(amount)); err != nil {
			return nil, err
		}
	}
	return c.success()
}

func (d *Dispatcher) transferNFT(c *call) ([]byte, error) {
	var a transferNFTArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	if err := d.transferSerial(c, a.Token, a.Sender, a.Recipient, a.SerialNumber); err != nil {
		return nil, err
	}
	return c.success()
}

func (d *Dispatcher) transferNFTs(c *call) ([]byte, error) {
	var a transferNFTsArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	if len(a.Sender) != len(a.Receiver) || len(a.Sender) != len(a.SerialNumber) {
		return nil, fail(BadEncoding)
	}
	for i := range a.Sender {
		if err := d.transferSerial(c, a.Token, a.Sender[i], a.Receiver[i], a.SerialNumber[i]); err != nil {
			return nil, err
		}
	}
	return c.success()
}

func (d *Dispatcher) transferSerial(c *call, tokenAddr, fromAddr, toAddr common.Address, serial int64) error {
	t, err := d.liveToken(tokenAddr)
	if err != nil {
		return err
	}
	from, to, err := d.parties(fromAddr, toAddr)
	if err != nil {
		return err
	}
	spender, err := d.operator(c, from)
	if err != nil {
		return err
	}
	return d.moveNft(t, from, to, serial, spender)
}

func (d *Dispatcher) transferFrom(c *call) ([]byte, error) {
	var a transferFromArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := d.spendFungible(c, t, a.From, a.To, a.Amount); err != nil {
		return nil, err
	}
	return c.success()
}

// spendFungible is the transferFrom path shared by the token service and the
// ERC-20 redirect.
func (d *Dispatcher) spendFungible(c *call, t *types.TokenView, fromAddr, toAddr common.Address, amount *big.Int) error {
	from, to, err := d.parties(fromAddr, toAddr)
	if err != nil {
		return err
	}
	spender, err := d.operator(c, from)
	if err != nil {
		return err
	}
	return d.moveFungible(t, from, to, amount, spender)
}

func (d *Dispatcher) transferFromNFT(c *call) ([]byte, error) {
	var a transferFromNFTArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	if !a.SerialNumber.IsInt64() {
		return nil, fail(InvalidNftID)
	}
	if err := d.transferSerial(c, a.Token, a.From, a.To, a.SerialNumber.Int64()); err != nil {
		return nil, err
	}
	return c.success()
}

func (d *Dispatcher) approve(c *call) ([]byte, error) {
	var a approveArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := d.grantAllowance(c, t, a.Spender, a.Amount); err != nil {
		return nil, err
	}
	return c.success()
}

func (d *Dispatcher) grantAllowance(c *call, t *types.TokenView, spenderAddr common.Address, amount *big.Int) error {
	if t.Type != types.FungibleCommon {
		return fail(FungibleOnlyTransfer)
	}
	owner, err := d.account(c.frame.Sender, InvalidAllowanceOwnerID)
	if err != nil {
		return err
	}
	spender, err := d.account(spenderAddr, InvalidAllowanceSpenderID)
	if err != nil {
		return err
	}
	if _, err := d.holding(owner, t); err != nil {
		return err
	}
	if !amount.IsInt64() {
		return fail(AmountExceedsAllowance)
	}
	d.ledger.PutAllowance(&types.FungibleAllowance{
		TokenID:         t.ID,
		Owner:           owner,
		Spender:         spender,
		AmountGranted:   new(big.Int).Set(amount),
		AmountRemaining: new(big.Int).Set(amount),
	})
	return nil
}

func (d *Dispatcher) approveNFT(c *call) ([]byte, error) {
	var a approveNFTArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := d.approveSerial(c, t, a.Approved, a.SerialNumber); err != nil {
		return nil, err
	}
	return c.success()
}

// approveSerial sets or, for the zero address, clears the single-serial
// spender. The caller must own the serial or be an approved operator.
func (d *Dispatcher) approveSerial(c *call, t *types.TokenView, approvedAddr common.Address, serial *big.Int) error {
	if t.Type != types.NonFungibleUnique {
		return fail(InvalidTokenID)
	}
	if !serial.IsInt64() {
		return fail(InvalidNftID)
	}
	caller, err := d.account(c.frame.Sender, InvalidAllowanceOwnerID)
	if err != nil {
		return err
	}
	nft, err := d.nft(t, serial.Int64())
	if err != nil {
		return err
	}
	if nft.Owner != caller {
		approval, err := d.ledger.NftAllowance(d.ctx, t.ID, nft.Owner, caller)
		if err != nil {
			return err
		}
		if approval == nil || !approval.ApprovedForAll {
			return fail(SenderDoesNotOwnNft)
		}
	}
	var spender types.EntityID
	if approvedAddr != (common.Address{}) {
		if spender, err = d.account(approvedAddr, InvalidAllowanceSpenderID); err != nil {
			return err
		}
	}
	updated := cloneNft(nft)
	updated.Spender = spender
	d.ledger.PutNft(updated)
	return nil
}

func (d *Dispatcher) setApprovalForAll(c *call) ([]byte, error) {
	var a setApprovalArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.liveToken(a.Token)
	if err != nil {
		return nil, err
	}
	if err := d.setOperator(c, t, a.Operator, a.Approved); err != nil {
		return nil, err
	}
	return c.success()
}

func (d *Dispatcher) setOperator(c *call, t *types.TokenView, operatorAddr common.Address, approved bool) error {
	if t.Type != types.NonFungibleUnique {
		return fail(InvalidTokenID)
	}
	owner, err := d.account(c.frame.Sender, InvalidAllowanceOwnerID)
	if err != nil {
		return err
	}
	operator, err := d.account(operatorAddr, InvalidAllowanceSpenderID)
	if err != nil {
		return err
	}
	d.ledger.PutNftAllowance(&types.NftAllowance{
		TokenID:        t.ID,
		Owner:          owner,
		Spender:        operator,
		ApprovedForAll: approved,
	})
	return nil
}
