package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/tokenmarket/pkg/base58"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = base58.MustDecodeFromString(NativeLoaderAddrStr)

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = base58.MustDecodeFromString(SystemProgramAddrStr)

const TokenProgramAddrStr = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

var TokenProgramAddr = base58.MustDecodeFromString(TokenProgramAddrStr)

const MarketProgramAddrStr = "HpPcfd4wrNVpHVL2tXv37kWo2dXG3gLcazyU1xLha3bh"

var MarketProgramAddr = base58.MustDecodeFromString(MarketProgramAddrStr)

func resolveNativeProgramById(programId solana.PublicKey) (func(execCtx *ExecutionCtx) error, error) {
	switch programId {
	case SystemProgramAddr:
		return SystemProgramExecute, nil
	case TokenProgramAddr:
		return TokenProgramExecute, nil
	case MarketProgramAddr:
		return MarketProgramExecute, nil
	}

	return nil, InstrErrUnsupportedProgramId
}

func verifySigner(authorized solana.PublicKey, signers []solana.PublicKey) error {
	for _, signer := range signers {
		if signer == authorized {
			return nil
		}
	}
	return InstrErrMissingRequiredSignature
}

func extractAddress(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (solana.PublicKey, error) {
	idx, err := instrCtx.IndexOfInstructionAccountInTransaction(instrAcctIdx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return txCtx.KeyOfAccountAtIndex(idx)
}
