package sealevel

import (
	"bytes"
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/tokenmarket/pkg/safemath"
	"k8s.io/klog/v2"
)

// packed token account layout per the SPL token program
const TokenAccountSize = 165

const (
	TokenProgramInstrTypeInitializeMint = iota
	TokenProgramInstrTypeInitializeAccount
	TokenProgramInstrTypeInitializeMultisig
	TokenProgramInstrTypeTransfer
)

const (
	TokenAccountStateUninitialized = iota
	TokenAccountStateInitialized
	TokenAccountStateFrozen
)

var (
	TokenProgErrNotRentExempt      = errors.New("TokenProgErrNotRentExempt")
	TokenProgErrInsufficientFunds  = errors.New("TokenProgErrInsufficientFunds")
	TokenProgErrInvalidMint        = errors.New("TokenProgErrInvalidMint")
	TokenProgErrMintMismatch       = errors.New("TokenProgErrMintMismatch")
	TokenProgErrOwnerMismatch      = errors.New("TokenProgErrOwnerMismatch")
	TokenProgErrAlreadyInUse       = errors.New("TokenProgErrAlreadyInUse")
	TokenProgErrUninitializedState = errors.New("TokenProgErrUninitializedState")
	TokenProgErrOverflow           = errors.New("TokenProgErrOverflow")
)

type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           byte
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

func (acct *TokenAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	mint, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(acct.Mint[:], mint)

	owner, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(acct.Owner[:], owner)

	acct.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	delegateTag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	delegate, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	if delegateTag == 1 {
		acct.Delegate = new(solana.PublicKey)
		copy(acct.Delegate[:], delegate)
	}

	acct.State, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	isNativeTag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	isNative, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	if isNativeTag == 1 {
		acct.IsNative = &isNative
	}

	acct.DelegatedAmount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	closeAuthTag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	closeAuth, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	if closeAuthTag == 1 {
		acct.CloseAuthority = new(solana.PublicKey)
		copy(acct.CloseAuthority[:], closeAuth)
	}

	return nil
}

func (acct *TokenAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(acct.Mint[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(acct.Owner[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(acct.Amount, bin.LE)
	if err != nil {
		return err
	}

	var delegate solana.PublicKey
	var delegateTag uint32
	if acct.Delegate != nil {
		delegate = *acct.Delegate
		delegateTag = 1
	}
	err = encoder.WriteUint32(delegateTag, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(delegate[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteByte(acct.State)
	if err != nil {
		return err
	}

	var isNative uint64
	var isNativeTag uint32
	if acct.IsNative != nil {
		isNative = *acct.IsNative
		isNativeTag = 1
	}
	err = encoder.WriteUint32(isNativeTag, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(isNative, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(acct.DelegatedAmount, bin.LE)
	if err != nil {
		return err
	}

	var closeAuth solana.PublicKey
	var closeAuthTag uint32
	if acct.CloseAuthority != nil {
		closeAuth = *acct.CloseAuthority
		closeAuthTag = 1
	}
	err = encoder.WriteUint32(closeAuthTag, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(closeAuth[:], false)
}

func unmarshalTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) != TokenAccountSize {
		return nil, InstrErrInvalidAccountData
	}

	decoder := bin.NewBinDecoder(data)

	tokenAcct := new(TokenAccount)
	err := tokenAcct.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}

	return tokenAcct, nil
}

func marshalTokenAccount(tokenAcct *TokenAccount) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := tokenAcct.MarshalWithEncoder(encoder)
	if err != nil {
		panic("shouldn't fail")
	}

	return buf.Bytes()
}

func newInitializeTokenAccountInstruction(account solana.PublicKey, mint solana.PublicKey, owner solana.PublicKey) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: account, IsSigner: false, IsWritable: true},
		{Pubkey: mint, IsSigner: false, IsWritable: false},
		{Pubkey: owner, IsSigner: false, IsWritable: false},
		{Pubkey: SysvarRentAddr, IsSigner: false, IsWritable: false},
	}

	return &Instruction{
		Accounts:  accountMetas,
		Data:      []byte{TokenProgramInstrTypeInitializeAccount},
		ProgramId: TokenProgramAddr,
	}
}

func newTokenTransferInstruction(source solana.PublicKey, dest solana.PublicKey, authority solana.PublicKey, amount uint64) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: source, IsSigner: false, IsWritable: true},
		{Pubkey: dest, IsSigner: false, IsWritable: true},
		{Pubkey: authority, IsSigner: true, IsWritable: false},
	}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := encoder.WriteByte(TokenProgramInstrTypeTransfer)
	if err != nil {
		panic("shouldn't fail")
	}
	err = encoder.WriteUint64(amount, bin.LE)
	if err != nil {
		panic("shouldn't fail")
	}

	return &Instruction{Accounts: accountMetas, Data: buf.Bytes(), ProgramId: TokenProgramAddr}
}

func TokenProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUTokenProgramDefaultComputeUnits)
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

	case TokenProgramInstrTypeInitializeAccount:
		return tokenProgramInitializeAccount(execCtx, instrCtx)

	case TokenProgramInstrTypeTransfer:
		amount, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return InstrErrInvalidInstructionData
		}
		return tokenProgramTransfer(execCtx, instrCtx, amount)

	default:
		return InstrErrInvalidInstructionData
	}
}

func tokenProgramInitializeAccount(execCtx *ExecutionCtx, instrCtx *InstructionCtx) error {
	txCtx := execCtx.TransactionContext

	err := instrCtx.CheckNumOfInstructionAccounts(4)
	if err != nil {
		return err
	}

	err = checkAcctForRentSysvar(txCtx, instrCtx, 3)
	if err != nil {
		return err
	}
	rent := ReadRentSysvar(&execCtx.Accounts)

	mintKey, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	mintOwner := mintAcct.Owner()
	mintAcct.Drop()

	if mintOwner != TokenProgramAddr {
		klog.Errorf("InitializeAccount: %s is not a mint", mintKey)
		return TokenProgErrInvalidMint
	}

	ownerKey, err := extractAddress(txCtx, instrCtx, 2)
	if err != nil {
		return err
	}

	newAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer newAcct.Drop()

	if uint64(len(newAcct.Data())) != TokenAccountSize {
		return InstrErrInvalidAccountData
	}

	tokenAcct, err := unmarshalTokenAccount(newAcct.Data())
	if err != nil {
		return err
	}

	if tokenAcct.State != TokenAccountStateUninitialized {
		return TokenProgErrAlreadyInUse
	}

	if !rent.IsExempt(newAcct.Lamports(), TokenAccountSize) {
		return TokenProgErrNotRentExempt
	}

	tokenAcct.Mint = mintKey
	tokenAcct.Owner = ownerKey
	tokenAcct.Amount = 0
	tokenAcct.State = TokenAccountStateInitialized

	return newAcct.SetData(marshalTokenAccount(tokenAcct))
}

func tokenProgramTransfer(execCtx *ExecutionCtx, instrCtx *InstructionCtx, amount uint64) error {
	txCtx := execCtx.TransactionContext

	err := instrCtx.CheckNumOfInstructionAccounts(3)
	if err != nil {
		return err
	}

	signers, err := instrCtx.Signers(txCtx)
	if err != nil {
		return err
	}

	srcAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}

	if srcAcct.Owner() != TokenProgramAddr {
		srcAcct.Drop()
		return InstrErrInvalidAccountOwner
	}

	src, err := unmarshalTokenAccount(srcAcct.Data())
	if err != nil {
		srcAcct.Drop()
		return err
	}

	if src.State != TokenAccountStateInitialized {
		srcAcct.Drop()
		return TokenProgErrUninitializedState
	}

	authorityKey, err := extractAddress(txCtx, instrCtx, 2)
	if err != nil {
		srcAcct.Drop()
		return err
	}

	if src.Owner != authorityKey {
		klog.Errorf("Transfer: authority %s does not own source account", authorityKey)
		srcAcct.Drop()
		return TokenProgErrOwnerMismatch
	}

	err = verifySigner(authorityKey, signers)
	if err != nil {
		srcAcct.Drop()
		return err
	}

	if src.Amount < amount {
		klog.Errorf("Transfer: insufficient tokens %d, need %d", src.Amount, amount)
		srcAcct.Drop()
		return TokenProgErrInsufficientFunds
	}

	src.Amount -= amount
	err = srcAcct.SetData(marshalTokenAccount(src))
	srcAcct.Drop()
	if err != nil {
		return err
	}

	dstAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	defer dstAcct.Drop()

	if dstAcct.Owner() != TokenProgramAddr {
		return InstrErrInvalidAccountOwner
	}

	dst, err := unmarshalTokenAccount(dstAcct.Data())
	if err != nil {
		return err
	}

	if dst.State != TokenAccountStateInitialized {
		return TokenProgErrUninitializedState
	}

	if src.Mint != dst.Mint {
		return TokenProgErrMintMismatch
	}

	dst.Amount, err = safemath.CheckedAddU64(dst.Amount, amount)
	if err != nil {
		return TokenProgErrOverflow
	}

	return dstAcct.SetData(marshalTokenAccount(dst))
}
