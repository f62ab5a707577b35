package sealevel

import (
	"bytes"
	"math"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/tokenmarket/pkg/accounts"
	"go.firedancer.io/tokenmarket/pkg/cu"
)

const (
	acctIdxMarketProgram = iota
	acctIdxSystemProgram
	acctIdxTokenProgram
	acctIdxAdmin
	acctIdxClient
	acctIdxClientToken
	acctIdxMint
	acctIdxSettings
	acctIdxTokenReserve
	acctIdxLamportsVault
	acctIdxRentSysvar
)

const testAdminLamports = 10_000_000_000

func testPubkey(fill byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = fill
	}
	return pk
}

func testRent() SysvarRent {
	return SysvarRent{LamportsPerUint8Year: 3480, ExemptionThreshold: 2.0, BurnPercent: 50}
}

func testRentData(t *testing.T) []byte {
	rent := testRent()
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	require.NoError(t, rent.MarshalWithEncoder(encoder))
	return buf.Bytes()
}

type marketTestEnv struct {
	t       *testing.T
	execCtx *ExecutionCtx
	txCtx   *TransactionCtx

	admin          solana.PublicKey
	client         solana.PublicKey
	mint           solana.PublicKey
	clientTokenKey solana.PublicKey
	settingsAddr   solana.PublicKey
	reserveAddr    solana.PublicKey
	lamportsAddr   solana.PublicKey
}

func newMarketTestEnv(t *testing.T, clientLamports uint64, clientTokens uint64) *marketTestEnv {
	env := &marketTestEnv{
		t:              t,
		admin:          testPubkey(0xaa),
		client:         testPubkey(0xbb),
		mint:           testPubkey(0xcc),
		clientTokenKey: testPubkey(0xdd),
	}

	var err error
	env.settingsAddr, _, err = MarketSettingsAddress()
	require.NoError(t, err)
	env.reserveAddr, _, err = MarketTokenReserveAddress()
	require.NoError(t, err)
	env.lamportsAddr, _, err = MarketLamportsAddress()
	require.NoError(t, err)

	clientToken := TokenAccount{
		Mint:   env.mint,
		Owner:  env.client,
		Amount: clientTokens,
		State:  TokenAccountStateInitialized,
	}

	rentData := testRentData(t)

	txAccts := []accounts.Account{
		{Key: MarketProgramAddr, Owner: NativeLoaderAddr, Executable: true},
		{Key: SystemProgramAddr, Owner: NativeLoaderAddr, Executable: true},
		{Key: TokenProgramAddr, Owner: NativeLoaderAddr, Executable: true},
		{Key: env.admin, Lamports: testAdminLamports, Owner: SystemProgramAddr},
		{Key: env.client, Lamports: clientLamports, Owner: SystemProgramAddr},
		{Key: env.clientTokenKey, Owner: TokenProgramAddr, Data: marshalTokenAccount(&clientToken)},
		{Key: env.mint, Owner: TokenProgramAddr, Data: make([]byte, 82)},
		{Key: env.settingsAddr, Owner: SystemProgramAddr},
		{Key: env.reserveAddr, Owner: SystemProgramAddr},
		{Key: env.lamportsAddr, Owner: SystemProgramAddr},
		{Key: SysvarRentAddr, Owner: SystemProgramAddr, Data: rentData},
	}

	env.txCtx = NewTestTransactionCtx(*NewTransactionAccounts(txAccts), 5, 64)

	memAccts := accounts.NewMemAccounts()
	err = memAccts.SetAccount(SysvarRentAddr, &accounts.Account{Key: SysvarRentAddr, Owner: SystemProgramAddr, Data: rentData})
	require.NoError(t, err)

	env.execCtx = &ExecutionCtx{
		Accounts:           memAccts,
		TransactionContext: env.txCtx,
		ComputeMeter:       cu.NewComputeMeter(10_000_000),
	}

	return env
}

func (env *marketTestEnv) run(instr *Instruction) error {
	instrAccts := InstructionAcctsFromAccountMetas(instr.Accounts, env.txCtx.Accounts)
	return env.execCtx.ProcessInstruction(instr.Data, instrAccts, []uint64{acctIdxMarketProgram})
}

func (env *marketTestEnv) initializeStore(sellPrice uint64, buyPrice uint64) error {
	instr, err := NewInitializeStoreInstruction(env.admin, env.mint, sellPrice, buyPrice)
	require.NoError(env.t, err)
	return env.run(instr)
}

func (env *marketTestEnv) acct(idx uint64) *accounts.Account {
	acct, err := env.txCtx.Accounts.GetAccount(idx)
	require.NoError(env.t, err)
	return acct
}

func (env *marketTestEnv) addAccount(acct accounts.Account) {
	env.txCtx.Accounts.Accounts = append(env.txCtx.Accounts.Accounts, &acct)
	env.txCtx.Accounts.Locked = append(env.txCtx.Accounts.Locked, false)
}

func (env *marketTestEnv) tokenBalance(idx uint64) uint64 {
	tokenAcct, err := unmarshalTokenAccount(env.acct(idx).Data)
	require.NoError(env.t, err)
	return tokenAcct.Amount
}

func (env *marketTestEnv) setTokenBalance(idx uint64, amount uint64) {
	acct := env.acct(idx)
	tokenAcct, err := unmarshalTokenAccount(acct.Data)
	require.NoError(env.t, err)
	tokenAcct.Amount = amount
	acct.SetData(marshalTokenAccount(tokenAcct))
}

func (env *marketTestEnv) settings() *MarketSettings {
	settings, err := unmarshalMarketSettings(env.acct(acctIdxSettings).Data)
	require.NoError(env.t, err)
	return settings
}

func TestMarketProgram_InitializeStore(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)

	err := env.initializeStore(50, 100)
	require.NoError(t, err)

	rent := testRent()

	settingsAcct := env.acct(acctIdxSettings)
	assert.Equal(t, MarketProgramAddr, settingsAcct.Owner)
	assert.Equal(t, rent.MinimumBalance(MarketSettingsLen), settingsAcct.Lamports)

	settings := env.settings()
	assert.Equal(t, env.admin, settings.Admin)
	assert.Equal(t, uint64(50), settings.SellPrice)
	assert.Equal(t, uint64(100), settings.BuyPrice)
	assert.Equal(t, env.mint, settings.Mint)

	reserveAcct := env.acct(acctIdxTokenReserve)
	assert.Equal(t, TokenProgramAddr, reserveAcct.Owner)
	assert.Equal(t, rent.MinimumBalance(TokenAccountSize), reserveAcct.Lamports)

	reserveToken, err := unmarshalTokenAccount(reserveAcct.Data)
	require.NoError(t, err)
	assert.Equal(t, env.mint, reserveToken.Mint)
	assert.Equal(t, env.settingsAddr, reserveToken.Owner)
	assert.Equal(t, uint64(0), reserveToken.Amount)
	assert.Equal(t, byte(TokenAccountStateInitialized), reserveToken.State)

	expectedAdminLamports := uint64(testAdminLamports) - rent.MinimumBalance(MarketSettingsLen) - rent.MinimumBalance(TokenAccountSize)
	assert.Equal(t, expectedAdminLamports, env.acct(acctIdxAdmin).Lamports)
}

func TestMarketProgram_InitializeStore_AlreadyInitialized(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)

	require.NoError(t, env.initializeStore(50, 100))

	err := env.initializeStore(60, 110)
	assert.ErrorIs(t, err, InstrErrAccountAlreadyInitialized)

	settings := env.settings()
	assert.Equal(t, uint64(50), settings.SellPrice)
	assert.Equal(t, uint64(100), settings.BuyPrice)
}

func TestMarketProgram_InitializeStore_MissingAdminSignature(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)

	instr, err := NewInitializeStoreInstruction(env.admin, env.mint, 50, 100)
	require.NoError(t, err)
	instr.Accounts[0].IsSigner = false

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrMissingRequiredSignature)
}

func TestMarketProgram_InitializeStore_WrongSettingsAccount(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)

	bogus := testPubkey(0x11)
	env.addAccount(accounts.Account{Key: bogus, Owner: SystemProgramAddr})

	instr, err := NewInitializeStoreInstruction(env.admin, env.mint, 50, 100)
	require.NoError(t, err)
	instr.Accounts[1].Pubkey = bogus

	err = env.run(instr)
	assert.ErrorIs(t, err, MarketErrSettingsPubkeyMismatch)
}

func TestMarketProgram_InitializeStore_WrongReserveAccount(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)

	bogus := testPubkey(0x22)
	env.addAccount(accounts.Account{Key: bogus, Owner: SystemProgramAddr})

	instr, err := NewInitializeStoreInstruction(env.admin, env.mint, 50, 100)
	require.NoError(t, err)
	instr.Accounts[2].Pubkey = bogus

	err = env.run(instr)
	assert.ErrorIs(t, err, MarketErrTokenPubkeyMismatch)
}

func TestMarketProgram_UpdatePrice(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)
	require.NoError(t, env.initializeStore(50, 100))

	instr, err := NewUpdatePriceInstruction(env.admin, 75, 125)
	require.NoError(t, err)
	require.NoError(t, env.run(instr))

	settings := env.settings()
	assert.Equal(t, uint64(75), settings.SellPrice)
	assert.Equal(t, uint64(125), settings.BuyPrice)
	assert.Equal(t, env.admin, settings.Admin)
	assert.Equal(t, env.mint, settings.Mint)
}

func TestMarketProgram_UpdatePrice_NotAdmin(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)
	require.NoError(t, env.initializeStore(50, 100))

	intruder := testPubkey(0x33)
	env.addAccount(accounts.Account{Key: intruder, Lamports: 1_000_000, Owner: SystemProgramAddr})

	instr, err := NewUpdatePriceInstruction(intruder, 1, 1)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrIllegalOwner)

	settings := env.settings()
	assert.Equal(t, uint64(50), settings.SellPrice)
	assert.Equal(t, uint64(100), settings.BuyPrice)
}

func TestMarketProgram_UpdatePrice_MissingSignature(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)
	require.NoError(t, env.initializeStore(50, 100))

	instr, err := NewUpdatePriceInstruction(env.admin, 75, 125)
	require.NoError(t, err)
	instr.Accounts[0].IsSigner = false

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrMissingRequiredSignature)
}

func TestMarketProgram_UpdatePrice_UninitializedStore(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)

	instr, err := NewUpdatePriceInstruction(env.admin, 75, 125)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrInvalidAccountData)
}

// A full market session: the store sells at 100 and buys back at 50.
// The client drains the 10-token reserve, cannot buy an 11th token,
// and then sells 10 tokens back.
func TestMarketProgram_BuySellSession(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 15)
	require.NoError(t, env.initializeStore(50, 100))
	env.setTokenBalance(acctIdxTokenReserve, 10)

	buyInstr, err := NewBuyInstruction(env.client, env.clientTokenKey, 10)
	require.NoError(t, err)
	require.NoError(t, env.run(buyInstr))

	assert.Equal(t, uint64(0), env.acct(acctIdxClient).Lamports)
	assert.Equal(t, uint64(1000), env.acct(acctIdxLamportsVault).Lamports)
	assert.Equal(t, uint64(25), env.tokenBalance(acctIdxClientToken))
	assert.Equal(t, uint64(0), env.tokenBalance(acctIdxTokenReserve))

	buyOneMore, err := NewBuyInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)
	err = env.run(buyOneMore)
	assert.ErrorIs(t, err, TokenProgErrInsufficientFunds)

	// the failed purchase must not move anything
	assert.Equal(t, uint64(0), env.acct(acctIdxClient).Lamports)
	assert.Equal(t, uint64(1000), env.acct(acctIdxLamportsVault).Lamports)
	assert.Equal(t, uint64(25), env.tokenBalance(acctIdxClientToken))
	assert.Equal(t, uint64(0), env.tokenBalance(acctIdxTokenReserve))

	sellInstr, err := NewSellInstruction(env.client, env.clientTokenKey, 10)
	require.NoError(t, err)
	require.NoError(t, env.run(sellInstr))

	assert.Equal(t, uint64(500), env.acct(acctIdxClient).Lamports)
	assert.Equal(t, uint64(500), env.acct(acctIdxLamportsVault).Lamports)
	assert.Equal(t, uint64(15), env.tokenBalance(acctIdxClientToken))
	assert.Equal(t, uint64(10), env.tokenBalance(acctIdxTokenReserve))
}

func TestMarketProgram_Buy_ZeroAmount(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 0)
	require.NoError(t, env.initializeStore(50, 100))

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 0)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrInvalidArgument)
}

func TestMarketProgram_Buy_CostOverflow(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 0)
	require.NoError(t, env.initializeStore(50, math.MaxUint64))
	env.setTokenBalance(acctIdxTokenReserve, 5)

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 2)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, MarketErrTooManyLamports)
}

func TestMarketProgram_Buy_InsufficientLamports(t *testing.T) {
	env := newMarketTestEnv(t, 50, 0)
	require.NoError(t, env.initializeStore(50, 100))
	env.setTokenBalance(acctIdxTokenReserve, 10)

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrInsufficientFunds)
	assert.Equal(t, uint64(50), env.acct(acctIdxClient).Lamports)
}

func TestMarketProgram_Sell_InsufficientVault(t *testing.T) {
	env := newMarketTestEnv(t, 0, 10)
	require.NoError(t, env.initializeStore(50, 100))

	instr, err := NewSellInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrInsufficientFunds)
	assert.Equal(t, uint64(10), env.tokenBalance(acctIdxClientToken))
}

func TestMarketProgram_Sell_InsufficientTokens(t *testing.T) {
	env := newMarketTestEnv(t, 0, 3)
	require.NoError(t, env.initializeStore(50, 100))
	env.acct(acctIdxLamportsVault).Lamports = 1_000_000

	instr, err := NewSellInstruction(env.client, env.clientTokenKey, 5)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, TokenProgErrInsufficientFunds)
}

func TestMarketProgram_Sell_PayoutOverflow(t *testing.T) {
	env := newMarketTestEnv(t, 0, 10)
	require.NoError(t, env.initializeStore(math.MaxUint64, 100))

	instr, err := NewSellInstruction(env.client, env.clientTokenKey, 2)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, MarketErrTooManyLamports)
}

func TestMarketProgram_Trade_MintMismatch(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 10)
	require.NoError(t, env.initializeStore(50, 100))
	env.setTokenBalance(acctIdxTokenReserve, 10)

	acct := env.acct(acctIdxClientToken)
	tokenAcct, err := unmarshalTokenAccount(acct.Data)
	require.NoError(t, err)
	tokenAcct.Mint = testPubkey(0x44)
	acct.SetData(marshalTokenAccount(tokenAcct))

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, MarketErrUnsupportedMint)
}

func TestMarketProgram_Trade_ClientTokenNotOwnedByClient(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 10)
	require.NoError(t, env.initializeStore(50, 100))
	env.setTokenBalance(acctIdxTokenReserve, 10)

	acct := env.acct(acctIdxClientToken)
	tokenAcct, err := unmarshalTokenAccount(acct.Data)
	require.NoError(t, err)
	tokenAcct.Owner = testPubkey(0x55)
	acct.SetData(marshalTokenAccount(tokenAcct))

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrInvalidArgument)
}

func TestMarketProgram_Trade_MissingClientSignature(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 10)
	require.NoError(t, env.initializeStore(50, 100))
	env.setTokenBalance(acctIdxTokenReserve, 10)

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)
	instr.Accounts[0].IsSigner = false

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrMissingRequiredSignature)
}

// The settings account itself posing as the client must be rejected.
func TestMarketProgram_Trade_SelfDealing(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 0)
	require.NoError(t, env.initializeStore(50, 100))
	env.setTokenBalance(acctIdxTokenReserve, 10)

	storeOwnedKey := testPubkey(0x66)
	storeOwnedToken := TokenAccount{
		Mint:   env.mint,
		Owner:  env.settingsAddr,
		Amount: 5,
		State:  TokenAccountStateInitialized,
	}
	env.addAccount(accounts.Account{Key: storeOwnedKey, Owner: TokenProgramAddr, Data: marshalTokenAccount(&storeOwnedToken)})

	instr, err := NewBuyInstruction(env.settingsAddr, storeOwnedKey, 1)
	require.NoError(t, err)

	err = env.run(instr)
	assert.ErrorIs(t, err, MarketErrSelfTransaction)
}

func TestMarketProgram_Trade_WrongSettingsAccount(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 10)
	require.NoError(t, env.initializeStore(50, 100))
	env.setTokenBalance(acctIdxTokenReserve, 10)

	// a forged settings account must carry a decodable record to get
	// past deserialization and fail on its address
	forged := MarketSettings{Admin: testPubkey(0x77), SellPrice: 1, BuyPrice: 2, Mint: env.mint}
	forgedKey := testPubkey(0x88)
	env.addAccount(accounts.Account{Key: forgedKey, Owner: MarketProgramAddr, Data: marshalMarketSettings(&forged)})

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)
	instr.Accounts[3].Pubkey = forgedKey

	err = env.run(instr)
	assert.ErrorIs(t, err, MarketErrSettingsPubkeyMismatch)
}

func TestMarketProgram_Trade_WrongReserveAccount(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 10)
	require.NoError(t, env.initializeStore(50, 100))
	env.setTokenBalance(acctIdxTokenReserve, 10)

	forgedToken := TokenAccount{
		Mint:   env.mint,
		Owner:  env.settingsAddr,
		Amount: 100,
		State:  TokenAccountStateInitialized,
	}
	forgedKey := testPubkey(0x99)
	env.addAccount(accounts.Account{Key: forgedKey, Owner: TokenProgramAddr, Data: marshalTokenAccount(&forgedToken)})

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)
	instr.Accounts[4].Pubkey = forgedKey

	err = env.run(instr)
	assert.ErrorIs(t, err, MarketErrTokenPubkeyMismatch)
}

func TestMarketProgram_UnknownInstruction(t *testing.T) {
	env := newMarketTestEnv(t, 0, 0)

	instr, err := NewUpdatePriceInstruction(env.admin, 1, 2)
	require.NoError(t, err)
	instr.Data = []byte{0x09}

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)
}

func TestMarketProgram_TruncatedInstruction(t *testing.T) {
	env := newMarketTestEnv(t, 1000, 10)
	require.NoError(t, env.initializeStore(50, 100))

	instr, err := NewBuyInstruction(env.client, env.clientTokenKey, 1)
	require.NoError(t, err)
	instr.Data = instr.Data[:4]

	err = env.run(instr)
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)
}

func TestMarketSettings_Codec(t *testing.T) {
	settings := MarketSettings{
		Admin:     testPubkey(0x01),
		SellPrice: 42,
		BuyPrice:  84,
		Mint:      testPubkey(0x02),
	}

	data := marshalMarketSettings(&settings)
	assert.Equal(t, MarketSettingsLen, len(data))

	decoded, err := unmarshalMarketSettings(data)
	require.NoError(t, err)
	assert.Equal(t, settings, *decoded)
}
