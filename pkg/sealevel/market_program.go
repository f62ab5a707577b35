package sealevel

import (
	"bytes"
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/tokenmarket/pkg/safemath"
	"k8s.io/klog/v2"
)

const (
	MarketSettingsSeed = "settings_seed"
	MarketTokenSeed    = "token_seed"
	MarketLamportsSeed = "lamports_seed"
)

const MarketSettingsLen = 80

const (
	MarketProgramInstrTypeInitializeStore = iota
	MarketProgramInstrTypeUpdatePrice
	MarketProgramInstrTypeSell
	MarketProgramInstrTypeBuy
)

var (
	MarketErrTokenPubkeyMismatch    = errors.New("MarketErrTokenPubkeyMismatch")
	MarketErrSettingsPubkeyMismatch = errors.New("MarketErrSettingsPubkeyMismatch")
	MarketErrSelfTransaction        = errors.New("MarketErrSelfTransaction")
	MarketErrTooManyLamports        = errors.New("MarketErrTooManyLamports")
	MarketErrUnsupportedMint        = errors.New("MarketErrUnsupportedMint")
)

// MarketInstrPrices is the payload of both InitializeStore and
// UpdatePrice. Prices are lamports per whole token.
type MarketInstrPrices struct {
	SellPrice uint64
	BuyPrice  uint64
}

type MarketInstrTrade struct {
	Amount uint64
}

// MarketSettings is the persistent store record held in the settings
// derived account.
type MarketSettings struct {
	Admin     solana.PublicKey
	SellPrice uint64
	BuyPrice  uint64
	Mint      solana.PublicKey
}

func (prices *MarketInstrPrices) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error

	prices.SellPrice, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	prices.BuyPrice, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	return checkWithinDeserializationLimit(decoder)
}

func (prices *MarketInstrPrices) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(prices.SellPrice, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteUint64(prices.BuyPrice, bin.LE)
}

func (trade *MarketInstrTrade) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error

	trade.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	return checkWithinDeserializationLimit(decoder)
}

func (trade *MarketInstrTrade) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(trade.Amount, bin.LE)
}

func (settings *MarketSettings) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	admin, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(settings.Admin[:], admin)

	settings.SellPrice, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	settings.BuyPrice, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	mint, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(settings.Mint[:], mint)

	return nil
}

func (settings *MarketSettings) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(settings.Admin[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(settings.SellPrice, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(settings.BuyPrice, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteBytes(settings.Mint[:], false)
}

func unmarshalMarketSettings(data []byte) (*MarketSettings, error) {
	if len(data) != MarketSettingsLen {
		return nil, InstrErrInvalidAccountData
	}

	decoder := bin.NewBinDecoder(data)

	settings := new(MarketSettings)
	err := settings.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}

	return settings, nil
}

func marshalMarketSettings(settings *MarketSettings) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := settings.MarshalWithEncoder(encoder)
	if err != nil {
		panic("shouldn't fail")
	}

	return buf.Bytes()
}

// MarketSettingsAddress derives the settings account address. The
// derivation is repeated on every instruction rather than cached.
func MarketSettingsAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(MarketSettingsSeed)}, MarketProgramAddr)
}

// MarketTokenReserveAddress derives the token reserve account address.
func MarketTokenReserveAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(MarketTokenSeed)}, MarketProgramAddr)
}

// MarketLamportsAddress derives the lamports vault account address.
func MarketLamportsAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(MarketLamportsSeed)}, MarketProgramAddr)
}

func NewInitializeStoreInstruction(admin solana.PublicKey, mint solana.PublicKey, sellPrice uint64, buyPrice uint64) (*Instruction, error) {
	settingsAddr, _, err := MarketSettingsAddress()
	if err != nil {
		return nil, err
	}

	tokenReserveAddr, _, err := MarketTokenReserveAddress()
	if err != nil {
		return nil, err
	}

	accountMetas := []AccountMeta{
		{Pubkey: admin, IsSigner: true, IsWritable: true},
		{Pubkey: settingsAddr, IsSigner: false, IsWritable: true},
		{Pubkey: tokenReserveAddr, IsSigner: false, IsWritable: true},
		{Pubkey: mint, IsSigner: false, IsWritable: false},
		{Pubkey: TokenProgramAddr, IsSigner: false, IsWritable: false},
		{Pubkey: SystemProgramAddr, IsSigner: false, IsWritable: false},
		{Pubkey: SysvarRentAddr, IsSigner: false, IsWritable: false},
	}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err = encoder.WriteByte(MarketProgramInstrTypeInitializeStore)
	if err != nil {
		panic("shouldn't fail")
	}

	prices := MarketInstrPrices{SellPrice: sellPrice, BuyPrice: buyPrice}
	err = prices.MarshalWithEncoder(encoder)
	if err != nil {
		panic("shouldn't fail")
	}

	return &Instruction{Accounts: accountMetas, Data: buf.Bytes(), ProgramId: MarketProgramAddr}, nil
}

func NewUpdatePriceInstruction(admin solana.PublicKey, sellPrice uint64, buyPrice uint64) (*Instruction, error) {
	settingsAddr, _, err := MarketSettingsAddress()
	if err != nil {
		return nil, err
	}

	accountMetas := []AccountMeta{
		{Pubkey: admin, IsSigner: true, IsWritable: false},
		{Pubkey: settingsAddr, IsSigner: false, IsWritable: true},
	}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err = encoder.WriteByte(MarketProgramInstrTypeUpdatePrice)
	if err != nil {
		panic("shouldn't fail")
	}

	prices := MarketInstrPrices{SellPrice: sellPrice, BuyPrice: buyPrice}
	err = prices.MarshalWithEncoder(encoder)
	if err != nil {
		panic("shouldn't fail")
	}

	return &Instruction{Accounts: accountMetas, Data: buf.Bytes(), ProgramId: MarketProgramAddr}, nil
}

func newTradeInstruction(client solana.PublicKey, clientToken solana.PublicKey, amount uint64, instrType byte, settingsWritable bool) (*Instruction, error) {
	settingsAddr, _, err := MarketSettingsAddress()
	if err != nil {
		return nil, err
	}

	tokenReserveAddr, _, err := MarketTokenReserveAddress()
	if err != nil {
		return nil, err
	}

	lamportsAddr, _, err := MarketLamportsAddress()
	if err != nil {
		return nil, err
	}

	accountMetas := []AccountMeta{
		{Pubkey: client, IsSigner: true, IsWritable: true},
		{Pubkey: clientToken, IsSigner: false, IsWritable: true},
		{Pubkey: lamportsAddr, IsSigner: false, IsWritable: true},
		{Pubkey: settingsAddr, IsSigner: false, IsWritable: settingsWritable},
		{Pubkey: tokenReserveAddr, IsSigner: false, IsWritable: true},
		{Pubkey: TokenProgramAddr, IsSigner: false, IsWritable: false},
		{Pubkey: SystemProgramAddr, IsSigner: false, IsWritable: false},
	}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err = encoder.WriteByte(instrType)
	if err != nil {
		panic("shouldn't fail")
	}

	trade := MarketInstrTrade{Amount: amount}
	err = trade.MarshalWithEncoder(encoder)
	if err != nil {
		panic("shouldn't fail")
	}

	return &Instruction{Accounts: accountMetas, Data: buf.Bytes(), ProgramId: MarketProgramAddr}, nil
}

func NewBuyInstruction(client solana.PublicKey, clientToken solana.PublicKey, amount uint64) (*Instruction, error) {
	return newTradeInstruction(client, clientToken, amount, MarketProgramInstrTypeBuy, true)
}

func NewSellInstruction(client solana.PublicKey, clientToken solana.PublicKey, amount uint64) (*Instruction, error) {
	return newTradeInstruction(client, clientToken, amount, MarketProgramInstrTypeSell, false)
}

func MarketProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUMarketProgramDefaultComputeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)

	instructionType, err := decoder.ReadByte()
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	switch instructionType {

	case MarketProgramInstrTypeInitializeStore:
		{
			var prices MarketInstrPrices
			err = prices.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			return marketProgramInitializeStore(execCtx, instrCtx, prices)
		}

	case MarketProgramInstrTypeUpdatePrice:
		{
			var prices MarketInstrPrices
			err = prices.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			return marketProgramUpdatePrice(execCtx, instrCtx, prices)
		}

	case MarketProgramInstrTypeSell:
		{
			var trade MarketInstrTrade
			err = trade.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			return marketProgramSell(execCtx, instrCtx, trade.Amount)
		}

	case MarketProgramInstrTypeBuy:
		{
			var trade MarketInstrTrade
			err = trade.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			return marketProgramBuy(execCtx, instrCtx, trade.Amount)
		}

	default:
		return InstrErrInvalidInstructionData
	}
}

func marketProgramInitializeStore(execCtx *ExecutionCtx, instrCtx *InstructionCtx, prices MarketInstrPrices) error {
	txCtx := execCtx.TransactionContext

	err := instrCtx.CheckNumOfInstructionAccounts(7)
	if err != nil {
		return err
	}

	adminKey, err := extractAddress(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(0)
	if err != nil {
		return err
	}
	if !isSigner {
		klog.Errorf("InitializeStore: admin %s must sign", adminKey)
		return InstrErrMissingRequiredSignature
	}

	settingsAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	settingsEmpty := len(settingsAcct.Data()) == 0
	settingsAcct.Drop()

	tokenReserveAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 2)
	if err != nil {
		return err
	}
	tokenReserveEmpty := len(tokenReserveAcct.Data()) == 0
	tokenReserveAcct.Drop()

	if !settingsEmpty || !tokenReserveEmpty {
		klog.Errorf("InitializeStore: store accounts already hold data")
		return InstrErrAccountAlreadyInitialized
	}

	settingsAddr, settingsBump, err := MarketSettingsAddress()
	if err != nil {
		return err
	}

	tokenReserveAddr, tokenReserveBump, err := MarketTokenReserveAddress()
	if err != nil {
		return err
	}

	settingsKey, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}
	if settingsKey != settingsAddr {
		klog.Errorf("InitializeStore: settings account %s, expected %s", settingsKey, settingsAddr)
		return MarketErrSettingsPubkeyMismatch
	}

	tokenReserveKey, err := extractAddress(txCtx, instrCtx, 2)
	if err != nil {
		return err
	}
	if tokenReserveKey != tokenReserveAddr {
		klog.Errorf("InitializeStore: token reserve account %s, expected %s", tokenReserveKey, tokenReserveAddr)
		return MarketErrTokenPubkeyMismatch
	}

	err = checkAcctForRentSysvar(txCtx, instrCtx, 6)
	if err != nil {
		return err
	}
	rent := ReadRentSysvar(&execCtx.Accounts)

	mintKey, err := extractAddress(txCtx, instrCtx, 3)
	if err != nil {
		return err
	}

	klog.V(2).Infof("InitializeStore: settings %s (bump %d), token reserve %s (bump %d)",
		settingsAddr, settingsBump, tokenReserveAddr, tokenReserveBump)

	createReserve := newCreateAccountInstruction(adminKey, tokenReserveAddr, rent.MinimumBalance(TokenAccountSize), TokenAccountSize, TokenProgramAddr)
	err = execCtx.NativeInvoke(*createReserve, []solana.PublicKey{tokenReserveAddr})
	if err != nil {
		return err
	}

	initReserve := newInitializeTokenAccountInstruction(tokenReserveAddr, mintKey, settingsAddr)
	err = execCtx.NativeInvoke(*initReserve, nil)
	if err != nil {
		return err
	}

	createSettings := newCreateAccountInstruction(adminKey, settingsAddr, rent.MinimumBalance(MarketSettingsLen), MarketSettingsLen, MarketProgramAddr)
	err = execCtx.NativeInvoke(*createSettings, []solana.PublicKey{settingsAddr})
	if err != nil {
		return err
	}

	settings := MarketSettings{
		Admin:     adminKey,
		SellPrice: prices.SellPrice,
		BuyPrice:  prices.BuyPrice,
		Mint:      mintKey,
	}

	settingsAcct, err = instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	defer settingsAcct.Drop()

	return settingsAcct.SetData(marshalMarketSettings(&settings))
}

func marketProgramUpdatePrice(execCtx *ExecutionCtx, instrCtx *InstructionCtx, prices MarketInstrPrices) error {
	txCtx := execCtx.TransactionContext

	err := instrCtx.CheckNumOfInstructionAccounts(2)
	if err != nil {
		return err
	}

	adminKey, err := extractAddress(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(0)
	if err != nil {
		return err
	}
	if !isSigner {
		klog.Errorf("UpdatePrice: admin %s must sign", adminKey)
		return InstrErrMissingRequiredSignature
	}

	settingsAddr, _, err := MarketSettingsAddress()
	if err != nil {
		return err
	}

	settingsKey, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}
	if settingsKey != settingsAddr {
		klog.Errorf("UpdatePrice: settings account %s, expected %s", settingsKey, settingsAddr)
		return MarketErrSettingsPubkeyMismatch
	}

	settingsAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	defer settingsAcct.Drop()

	settings, err := unmarshalMarketSettings(settingsAcct.Data())
	if err != nil {
		return err
	}

	if settings.Admin != adminKey {
		klog.Errorf("UpdatePrice: %s is not the store admin", adminKey)
		return InstrErrIllegalOwner
	}

	settings.SellPrice = prices.SellPrice
	settings.BuyPrice = prices.BuyPrice

	err = settingsAcct.SetData(marshalMarketSettings(settings))
	if err != nil {
		return err
	}

	klog.Infof("UpdatePrice: sell price %d, buy price %d", prices.SellPrice, prices.BuyPrice)
	return nil
}

type marketTradeAccounts struct {
	ClientKey      solana.PublicKey
	ClientTokenKey solana.PublicKey
	ReserveKey     solana.PublicKey
	Settings       *MarketSettings
	ClientToken    *TokenAccount
	ReserveToken   *TokenAccount
}

// validateTrade performs the account-role checks shared by Sell and
// Buy. The settings and token accounts are decoded before any role
// check runs.
func validateTrade(execCtx *ExecutionCtx, instrCtx *InstructionCtx, amount uint64) (*marketTradeAccounts, error) {
	txCtx := execCtx.TransactionContext

	err := instrCtx.CheckNumOfInstructionAccounts(7)
	if err != nil {
		return nil, err
	}

	settingsAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 3)
	if err != nil {
		return nil, err
	}
	settings, err := unmarshalMarketSettings(settingsAcct.Data())
	settingsAcct.Drop()
	if err != nil {
		return nil, err
	}

	reserveAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 4)
	if err != nil {
		return nil, err
	}
	reserveToken, err := unmarshalTokenAccount(reserveAcct.Data())
	reserveAcct.Drop()
	if err != nil {
		return nil, err
	}

	clientTokenAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return nil, err
	}
	clientToken, err := unmarshalTokenAccount(clientTokenAcct.Data())
	clientTokenAcct.Drop()
	if err != nil {
		return nil, err
	}

	clientKey, err := extractAddress(txCtx, instrCtx, 0)
	if err != nil {
		return nil, err
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(0)
	if err != nil {
		return nil, err
	}
	if !isSigner {
		klog.Errorf("trade: client %s must sign", clientKey)
		return nil, InstrErrMissingRequiredSignature
	}

	if amount == 0 {
		return nil, InstrErrInvalidArgument
	}

	if clientToken.Owner != clientKey {
		klog.Errorf("trade: token account %s not owned by client", clientToken.Owner)
		return nil, InstrErrInvalidArgument
	}

	settingsKey, err := extractAddress(txCtx, instrCtx, 3)
	if err != nil {
		return nil, err
	}

	if clientKey == settingsKey {
		return nil, MarketErrSelfTransaction
	}

	if clientToken.Mint != reserveToken.Mint {
		klog.Errorf("trade: mint %s not traded by this store", clientToken.Mint)
		return nil, MarketErrUnsupportedMint
	}

	settingsAddr, _, err := MarketSettingsAddress()
	if err != nil {
		return nil, err
	}
	if settingsKey != settingsAddr {
		klog.Errorf("trade: settings account %s, expected %s", settingsKey, settingsAddr)
		return nil, MarketErrSettingsPubkeyMismatch
	}

	tokenReserveAddr, _, err := MarketTokenReserveAddress()
	if err != nil {
		return nil, err
	}
	reserveKey, err := extractAddress(txCtx, instrCtx, 4)
	if err != nil {
		return nil, err
	}
	if reserveKey != tokenReserveAddr {
		klog.Errorf("trade: token reserve account %s, expected %s", reserveKey, tokenReserveAddr)
		return nil, MarketErrTokenPubkeyMismatch
	}

	clientTokenKey, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		return nil, err
	}

	return &marketTradeAccounts{
		ClientKey:      clientKey,
		ClientTokenKey: clientTokenKey,
		ReserveKey:     reserveKey,
		Settings:       settings,
		ClientToken:    clientToken,
		ReserveToken:   reserveToken,
	}, nil
}

func marketProgramBuy(execCtx *ExecutionCtx, instrCtx *InstructionCtx, amount uint64) error {
	txCtx := execCtx.TransactionContext

	trade, err := validateTrade(execCtx, instrCtx, amount)
	if err != nil {
		return err
	}

	if trade.ReserveToken.Amount < amount {
		klog.Errorf("Buy: store holds %d tokens, needs %d", trade.ReserveToken.Amount, amount)
		return TokenProgErrInsufficientFunds
	}

	cost, err := safemath.CheckedMulU64(trade.Settings.BuyPrice, amount)
	if err != nil {
		klog.Errorf("Buy: %d tokens at price %d overflows", amount, trade.Settings.BuyPrice)
		return MarketErrTooManyLamports
	}

	clientAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	clientLamports := clientAcct.Lamports()
	clientAcct.Drop()

	if clientLamports < cost {
		klog.Errorf("Buy: client holds %d lamports, needs %d", clientLamports, cost)
		return InstrErrInsufficientFunds
	}

	lamportsAddr, lamportsBump, err := MarketLamportsAddress()
	if err != nil {
		return err
	}
	klog.V(2).Infof("Buy: lamports vault %s (bump %d)", lamportsAddr, lamportsBump)

	payCost := newTransferInstruction(trade.ClientKey, lamportsAddr, cost)
	err = execCtx.NativeInvoke(*payCost, nil)
	if err != nil {
		return err
	}
	klog.Infof("Buy: transferred %d lamports to the store", cost)

	settingsAddr, _, err := MarketSettingsAddress()
	if err != nil {
		return err
	}

	payTokens := newTokenTransferInstruction(trade.ReserveKey, trade.ClientTokenKey, settingsAddr, amount)
	err = execCtx.NativeInvoke(*payTokens, []solana.PublicKey{settingsAddr})
	if err != nil {
		return err
	}
	klog.Infof("Buy: transferred %d tokens to the client", amount)

	return nil
}

func marketProgramSell(execCtx *ExecutionCtx, instrCtx *InstructionCtx, amount uint64) error {
	txCtx := execCtx.TransactionContext

	trade, err := validateTrade(execCtx, instrCtx, amount)
	if err != nil {
		return err
	}

	if trade.ClientToken.Amount < amount {
		klog.Errorf("Sell: client holds %d tokens, needs %d", trade.ClientToken.Amount, amount)
		return TokenProgErrInsufficientFunds
	}

	earned, err := safemath.CheckedMulU64(trade.Settings.SellPrice, amount)
	if err != nil {
		klog.Errorf("Sell: %d tokens at price %d overflows", amount, trade.Settings.SellPrice)
		return MarketErrTooManyLamports
	}

	lamportsAddr, lamportsBump, err := MarketLamportsAddress()
	if err != nil {
		return err
	}
	klog.V(2).Infof("Sell: lamports vault %s (bump %d)", lamportsAddr, lamportsBump)

	vaultAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 2)
	if err != nil {
		return err
	}
	vaultLamports := vaultAcct.Lamports()
	vaultAcct.Drop()

	if vaultLamports < earned {
		klog.Errorf("Sell: store holds %d lamports, needs %d", vaultLamports, earned)
		return InstrErrInsufficientFunds
	}

	payOut := newTransferInstruction(lamportsAddr, trade.ClientKey, earned)
	err = execCtx.NativeInvoke(*payOut, []solana.PublicKey{lamportsAddr})
	if err != nil {
		return err
	}
	klog.Infof("Sell: transferred %d lamports to the client", earned)

	payTokens := newTokenTransferInstruction(trade.ClientTokenKey, trade.ReserveKey, trade.ClientKey, amount)
	err = execCtx.NativeInvoke(*payTokens, nil)
	if err != nil {
		return err
	}
	klog.Infof("Sell: transferred %d tokens to the store", amount)

	return nil
}
