package sealevel

// InstructionAcctsFromAccountMetas builds the instruction account list
// for a top-level instruction from its account metas and the
// transaction account table.
func InstructionAcctsFromAccountMetas(acctMetas []AccountMeta, txAccts TransactionAccounts) []InstructionAccount {
	var instrAccts []InstructionAccount

	for _, am := range acctMetas {
		for idx, acct := range txAccts.Accounts {
			if acct.Key == am.Pubkey {
				instrAcct := InstructionAccount{
					IndexInTransaction: uint64(idx),
					IndexInCaller:      uint64(idx),
					IndexInCallee:      uint64(len(instrAccts)),
					IsSigner:           am.IsSigner,
					IsWritable:         am.IsWritable,
				}
				instrAccts = append(instrAccts, instrAcct)
				break
			}
		}
	}

	return instrAccts
}
