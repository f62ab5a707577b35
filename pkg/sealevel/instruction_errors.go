package sealevel

import "errors"

// error values
var (
	InstrErrInvalidInstructionData      = errors.New("InstrErrInvalidInstructionData")
	InstrErrNotEnoughAccountKeys        = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrComputationalBudgetExceeded = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrMissingAccount              = errors.New("InstrErrMissingAccount")
	InstrErrInvalidAccountOwner         = errors.New("InstrErrInvalidAccountOwner")
	InstrErrInvalidAccountData          = errors.New("InstrErrInvalidAccountData")
	InstrErrMissingRequiredSignature    = errors.New("InstrErrMissingRequiredSignature")
	InstrErrInvalidArgument             = errors.New("InstrErrInvalidArgument")
	InstrErrExecutableDataModified      = errors.New("InstrErrExecutableDataModified")
	InstrErrReadonlyDataModified        = errors.New("InstrErrReadonlyDataModified")
	InstrErrExternalAccountDataModified = errors.New("InstrErrExternalAccountDataModified")
	InstrErrExecutableLamportChange     = errors.New("InstrErrExecutableLamportChange")
	InstrErrReadonlyLamportChange       = errors.New("InstrErrReadonlyLamportChange")
	InstrErrExternalAccountLamportSpend = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrPrivilegeEscalation         = errors.New("InstrErrPrivilegeEscalation")
	InstrErrAccountNotExecutable        = errors.New("InstrErrAccountNotExecutable")
	InstrErrAccountAlreadyInitialized   = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrAccountDataSizeChanged      = errors.New("InstrErrAccountDataSizeChanged")
	InstrErrInsufficientFunds           = errors.New("InstrErrInsufficientFunds")
	InstrErrIllegalOwner                = errors.New("InstrErrIllegalOwner")
	InstrErrCallDepth                   = errors.New("InstrErrCallDepth")
	InstrErrUnsupportedProgramId        = errors.New("InstrErrUnsupportedProgramId")
	InstrErrReentrancyNotAllowed        = errors.New("InstrErrReentrancyNotAllowed")
	InstrErrArithmeticOverflow          = errors.New("InstrErrArithmeticOverflow")
	InstrErrAccountBorrowOutstanding    = errors.New("InstrErrAccountBorrowOutstanding")
)

// Solana error codes for instruction errors
const (
	InstrSuccess                        = 0
	InstrErrCodeInvalidArgument         = 2
	InstrErrCodeInvalidInstructionData  = 3
	InstrErrCodeInvalidAccountData      = 4
	InstrErrCodeAccountDataTooSmall     = 5
	InstrErrCodeInsufficientFunds       = 6
	InstrErrCodeMissingRequiredSig      = 8
	InstrErrCodeAlreadyInitialized      = 9
	InstrErrCodeNotEnoughAccountKeys    = 20
	InstrErrCodeMissingAccount          = 33
	InstrErrCodeComputeBudgetExceeded   = 38
	InstrErrCodeIllegalOwner            = 44
	InstrErrCodeInvalidAccountOwner     = 47
	InstrErrCodeArithmeticOverflow      = 48
)

func TranslateErrToInstrErrCode(err error) int {
	var errorCode int
	switch err {
	case InstrErrInvalidArgument:
		errorCode = InstrErrCodeInvalidArgument
	case InstrErrInvalidInstructionData:
		errorCode = InstrErrCodeInvalidInstructionData
	case InstrErrInvalidAccountData:
		errorCode = InstrErrCodeInvalidAccountData
	case InstrErrInsufficientFunds:
		errorCode = InstrErrCodeInsufficientFunds
	case InstrErrMissingRequiredSignature:
		errorCode = InstrErrCodeMissingRequiredSig
	case InstrErrAccountAlreadyInitialized:
		errorCode = InstrErrCodeAlreadyInitialized
	case InstrErrNotEnoughAccountKeys:
		errorCode = InstrErrCodeNotEnoughAccountKeys
	case InstrErrMissingAccount:
		errorCode = InstrErrCodeMissingAccount
	case InstrErrComputationalBudgetExceeded:
		errorCode = InstrErrCodeComputeBudgetExceeded
	case InstrErrIllegalOwner:
		errorCode = InstrErrCodeIllegalOwner
	case InstrErrInvalidAccountOwner:
		errorCode = InstrErrCodeInvalidAccountOwner
	case InstrErrArithmeticOverflow:
		errorCode = InstrErrCodeArithmeticOverflow
	}
	return errorCode
}
