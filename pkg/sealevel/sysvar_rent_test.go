package sealevel

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/tokenmarket/pkg/accounts"
)

func TestSysvarRent_MinimumBalance(t *testing.T) {
	rent := SysvarRent{LamportsPerUint8Year: 3480, ExemptionThreshold: 2.0, BurnPercent: 50}

	// (128 + dataLen) * lamportsPerByteYear * threshold
	assert.Equal(t, uint64((128+165)*3480*2), rent.MinimumBalance(165))
	assert.Equal(t, uint64((128+80)*3480*2), rent.MinimumBalance(80))

	assert.True(t, rent.IsExempt(rent.MinimumBalance(80), 80))
	assert.False(t, rent.IsExempt(rent.MinimumBalance(80)-1, 80))
}

func TestSysvarRent_Codec(t *testing.T) {
	rent := SysvarRent{LamportsPerUint8Year: 3480, ExemptionThreshold: 2.0, BurnPercent: 50}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	require.NoError(t, rent.MarshalWithEncoder(encoder))
	assert.Equal(t, SysvarRentStructLen, buf.Len())

	var decoded SysvarRent
	decoder := bin.NewBinDecoder(buf.Bytes())
	decoded.MustUnmarshalWithDecoder(decoder)
	assert.Equal(t, rent, decoded)
}

func TestSysvarRent_ReadWrite(t *testing.T) {
	memAccts := accounts.NewMemAccounts()
	require.NoError(t, memAccts.SetAccount(SysvarRentAddr, &accounts.Account{Key: SysvarRentAddr}))

	var accts accounts.Accounts = memAccts

	rent := SysvarRent{LamportsPerUint8Year: 1000, ExemptionThreshold: 1.5, BurnPercent: 10}
	WriteRentSysvar(&accts, rent)

	readBack := ReadRentSysvar(&accts)
	assert.Equal(t, rent, readBack)
}
