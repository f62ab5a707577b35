package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/tokenmarket/pkg/accounts"
)

type TransactionAccounts struct {
	Accounts []*accounts.Account
	Locked   []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccounts := &TransactionAccounts{Locked: make([]bool, len(accts))}
	for idx := range accts {
		acct := accts[idx]
		txAccounts.Accounts = append(txAccounts.Accounts, &acct)
	}
	return txAccounts
}

func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= uint64(len(txAccounts.Accounts)) {
		return nil, InstrErrMissingAccount
	}
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Lock(idx uint64) error {
	if idx >= uint64(len(txAccounts.Accounts)) {
		return InstrErrMissingAccount
	}
	if txAccounts.Locked[idx] {
		return InstrErrAccountBorrowOutstanding
	}
	txAccounts.Locked[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) Unlock(idx uint64) {
	if idx < uint64(len(txAccounts.Locked)) {
		txAccounts.Locked[idx] = false
	}
}

// Snapshot captures the current state of every transaction account so
// a failed instruction can be rolled back.
func (txAccounts *TransactionAccounts) Snapshot() []accounts.Account {
	snapshot := make([]accounts.Account, len(txAccounts.Accounts))
	for idx, acct := range txAccounts.Accounts {
		snapshot[idx] = *acct
		snapshot[idx].Data = make([]byte, len(acct.Data))
		copy(snapshot[idx].Data, acct.Data)
	}
	return snapshot
}

func (txAccounts *TransactionAccounts) Restore(snapshot []accounts.Account) {
	for idx := range snapshot {
		if idx < len(txAccounts.Accounts) {
			*txAccounts.Accounts[idx] = snapshot[idx]
		}
	}
}

type TransactionCtx struct {
	Accounts                  TransactionAccounts
	instructionTrace          []*InstructionCtx
	instructionStack          []uint64
	maxInstructionStackDepth  uint64
	maxInstructionTraceLength uint64
}

func NewTestTransactionCtx(txAccounts TransactionAccounts, maxStackDepth uint64, maxTraceLength uint64) *TransactionCtx {
	return &TransactionCtx{
		Accounts:                  txAccounts,
		maxInstructionStackDepth:  maxStackDepth,
		maxInstructionTraceLength: maxTraceLength,
	}
}

func (txCtx *TransactionCtx) AccountAtIndex(idx uint64) (*accounts.Account, error) {
	return txCtx.Accounts.GetAccount(idx)
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(idx uint64) (solana.PublicKey, error) {
	acct, err := txCtx.Accounts.GetAccount(idx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acct.Key, nil
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for idx, acct := range txCtx.Accounts.Accounts {
		if acct.Key == pubkey {
			return uint64(idx), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace))
}

func (txCtx *TransactionCtx) InstructionCtxAtIndexInTrace(idx uint64) (*InstructionCtx, error) {
	if idx >= uint64(len(txCtx.instructionTrace)) {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionTrace[idx], nil
}

func (txCtx *TransactionCtx) InstructionCtxAtNestingLevel(level uint64) (*InstructionCtx, error) {
	if level >= uint64(len(txCtx.instructionStack)) {
		return nil, InstrErrCallDepth
	}
	return txCtx.InstructionCtxAtIndexInTrace(txCtx.instructionStack[level])
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	height := txCtx.InstructionCtxStackHeight()
	if height == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.InstructionCtxAtNestingLevel(height - 1)
}

// NextInstructionCtx appends a fresh instruction context to the trace. The
// context does not become current until Push.
func (txCtx *TransactionCtx) NextInstructionCtx() (*InstructionCtx, error) {
	if uint64(len(txCtx.instructionTrace)) >= txCtx.maxInstructionTraceLength {
		return nil, InstrErrCallDepth
	}
	instrCtx := new(InstructionCtx)
	txCtx.instructionTrace = append(txCtx.instructionTrace, instrCtx)
	return instrCtx, nil
}

func (txCtx *TransactionCtx) Push() error {
	if uint64(len(txCtx.instructionTrace)) == 0 {
		return InstrErrCallDepth
	}
	if txCtx.InstructionCtxStackHeight() >= txCtx.maxInstructionStackDepth {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = append(txCtx.instructionStack, uint64(len(txCtx.instructionTrace)-1))
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	if len(txCtx.instructionStack) == 0 {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = txCtx.instructionStack[:len(txCtx.instructionStack)-1]
	return nil
}
