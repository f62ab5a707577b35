package base58

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

func DecodeFromString(s string) (solana.PublicKey, error) {
	var pubkey solana.PublicKey

	decoded, err := base58.Decode(s)
	if err != nil {
		return pubkey, err
	}

	if len(decoded) != solana.PublicKeyLength {
		return pubkey, fmt.Errorf("decoded %d bytes, expected %d", len(decoded), solana.PublicKeyLength)
	}

	copy(pubkey[:], decoded)
	return pubkey, nil
}

func MustDecodeFromString(s string) solana.PublicKey {
	pubkey, err := DecodeFromString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid base58 pubkey constant %s: %s", s, err))
	}
	return pubkey
}

func EncodeToString(b []byte) string {
	return base58.Encode(b)
}
