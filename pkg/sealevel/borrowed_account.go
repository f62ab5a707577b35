package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/tokenmarket/pkg/accounts"
	"go.firedancer.io/tokenmarket/pkg/safemath"
)

type BorrowedAccount struct {
	TxCtx              *TransactionCtx
	InstrCtx           *InstructionCtx
	IndexInTransaction uint64
	IndexInInstruction uint64
	Account            *accounts.Account
}

func (acct *BorrowedAccount) Key() solana.PublicKey {
	return acct.Account.Key
}

func (acct *BorrowedAccount) Owner() solana.PublicKey {
	return acct.Account.Owner
}

func (acct *BorrowedAccount) Lamports() uint64 {
	return acct.Account.Lamports
}

func (acct *BorrowedAccount) Data() []byte {
	return acct.Account.Data
}

func (acct *BorrowedAccount) IsExecutable() bool {
	return acct.Account.Executable
}

func (acct *BorrowedAccount) IsSigner() bool {
	instrCtx := acct.InstrCtx
	if acct.IndexInInstruction < instrCtx.NumberOfProgramAccounts() {
		return false
	}

	instrAcctIdx := safemath.SaturatingSubU64(acct.IndexInInstruction, instrCtx.NumberOfProgramAccounts())
	isSigner, err := instrCtx.IsInstructionAccountSigner(instrAcctIdx)
	if err != nil {
		return false
	}
	return isSigner
}

func (acct *BorrowedAccount) IsWritable() bool {
	instrCtx := acct.InstrCtx
	if acct.IndexInInstruction < instrCtx.NumberOfProgramAccounts() {
		return false
	}

	instrAcctIdx := safemath.SaturatingSubU64(acct.IndexInInstruction, instrCtx.NumberOfProgramAccounts())
	writable, err := instrCtx.IsInstructionAccountWritable(instrAcctIdx)
	if err != nil {
		return false
	}
	return writable
}

func (acct *BorrowedAccount) IsOwnedByCurrentProgram() bool {
	lastProgramKey, err := acct.InstrCtx.LastProgramKey(acct.TxCtx)
	if err != nil {
		return false
	}
	return lastProgramKey == acct.Owner()
}

func (acct *BorrowedAccount) DataCanBeChanged() error {
	if acct.IsExecutable() {
		return InstrErrExecutableDataModified
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyDataModified
	}
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrExternalAccountDataModified
	}
	return nil
}

func (acct *BorrowedAccount) SetData(data []byte) error {
	err := acct.DataCanBeChanged()
	if err != nil {
		return err
	}
	acct.Account.SetData(data)
	return nil
}

func (acct *BorrowedAccount) SetDataLength(length uint64) error {
	err := acct.DataCanBeChanged()
	if err != nil {
		return err
	}

	data := acct.Account.Data
	if uint64(len(data)) >= length {
		acct.Account.SetData(data[:length])
	} else {
		resized := make([]byte, length)
		copy(resized, data)
		acct.Account.SetData(resized)
	}
	return nil
}

func (acct *BorrowedAccount) SetOwner(owner solana.PublicKey) error {
	err := acct.DataCanBeChanged()
	if err != nil {
		return err
	}
	acct.Account.Owner = owner
	return nil
}

func (acct *BorrowedAccount) lamportsCanBeChanged() error {
	if acct.IsExecutable() {
		return InstrErrExecutableLamportChange
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyLamportChange
	}
	return nil
}

func (acct *BorrowedAccount) CheckedAddLamports(lamports uint64) error {
	err := acct.lamportsCanBeChanged()
	if err != nil {
		return err
	}

	newLamports, err := safemath.CheckedAddU64(acct.Account.Lamports, lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}

	acct.Account.Lamports = newLamports
	return nil
}

func (acct *BorrowedAccount) CheckedSubLamports(lamports uint64) error {
	err := acct.lamportsCanBeChanged()
	if err != nil {
		return err
	}

	// only the owning program may debit an account
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrExternalAccountLamportSpend
	}

	newLamports, err := safemath.CheckedSubU64(acct.Account.Lamports, lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}

	acct.Account.Lamports = newLamports
	return nil
}

func (acct *BorrowedAccount) Drop() {
	acct.TxCtx.Accounts.Unlock(acct.IndexInTransaction)
}
