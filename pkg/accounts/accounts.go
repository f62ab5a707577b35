package accounts

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var ErrNoAccount = errors.New("no account found for pubkey")

type Accounts interface {
	GetAccount(pubkey solana.PublicKey) (*Account, error)
	SetAccount(pubkey solana.PublicKey, acct *Account) error
}

type Account struct {
	Key        solana.PublicKey
	Lamports   uint64
	Data       []byte
	Owner      solana.PublicKey
	Executable bool
	RentEpoch  uint64
}

func (a *Account) SetData(data []byte) {
	a.Data = data
}
