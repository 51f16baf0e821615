package escrow

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	EscrowAccountSize = (1 + // is_initialized
		32 + // initializer_pubkey
		32 + // temp_token_account_pubkey
		32 + // initializer_token_to_receive_account_pubkey
		8) // expected_amount
)

type EscrowAccount struct {
	IsInitialized                          bool
	InitializerPubkey                      ed25519.PublicKey
	TempTokenAccountPubkey                 ed25519.PublicKey
	InitializerTokenToReceiveAccountPubkey ed25519.PublicKey
	ExpectedAmount                         uint64
}

func (obj *EscrowAccount) Marshal() []byte {
	data := make([]byte, EscrowAccountSize)

	var offset int

	putBool(data, obj.IsInitialized, &offset)
	putKey(data, obj.InitializerPubkey, &offset)
	putKey(data, obj.TempTokenAccountPubkey, &offset)
	putKey(data, obj.InitializerTokenToReceiveAccountPubkey, &offset)
	putUint64(data, obj.ExpectedAmount, &offset)

	return data
}

func (obj *EscrowAccount) Unmarshal(data []byte) error {
	if len(data) != EscrowAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	if err := getBool(data, &obj.IsInitialized, &offset); err != nil {
		return err
	}
	getKey(data, &obj.InitializerPubkey, &offset)
	getKey(data, &obj.TempTokenAccountPubkey, &offset)
	getKey(data, &obj.InitializerTokenToReceiveAccountPubkey, &offset)
	getUint64(data, &obj.ExpectedAmount, &offset)

	return nil
}

func (obj *EscrowAccount) String() string {
	return fmt.Sprintf(
		"EscrowAccount{is_initialized=%t,initializer=%s,temp_token_account=%s,initializer_token_to_receive=%s,expected_amount=%d}",
		obj.IsInitialized,
		base58.Encode(obj.InitializerPubkey),
		base58.Encode(obj.TempTokenAccountPubkey),
		base58.Encode(obj.InitializerTokenToReceiveAccountPubkey),
		obj.ExpectedAmount,
	)
}
