package runtime

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Account is the state stored at an address.
type Account struct {
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

// NewAccount returns an empty account owned by the provided program.
func NewAccount(owner ed25519.PublicKey, lamports uint64, size int) *Account {
	return &Account{
		Owner:    owner,
		Lamports: lamports,
		Data:     make([]byte, size),
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}

	cloned := &Account{
		Owner:      make(ed25519.PublicKey, len(a.Owner)),
		Lamports:   a.Lamports,
		Executable: a.Executable,
	}
	copy(cloned.Owner, a.Owner)
	if a.Data != nil {
		cloned.Data = make([]byte, len(a.Data))
		copy(cloned.Data, a.Data)
	}
	return cloned
}

// IsEmpty returns whether the account holds neither lamports nor data.
func (a *Account) IsEmpty() bool {
	return a.Lamports == 0 && len(a.Data) == 0
}

// IsOwnedBy returns whether the account is owned by the provided program.
func (a *Account) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.Owner, program)
}

func (a *Account) String() string {
	return fmt.Sprintf(
		"Account{Owner=%s,Lamports=%d,DataLen=%d,Executable=%v}",
		base58.Encode(a.Owner),
		a.Lamports,
		len(a.Data),
		a.Executable,
	)
}

// AccountInfo is an account as presented to an executing program, along with
// the privileges granted to it by the calling instruction.
//
// Multiple AccountInfo values may share the same underlying Account when an
// instruction references the same address more than once.
type AccountInfo struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	*Account
}

// FindAccountInfo returns the first account info matching the key.
func FindAccountInfo(accounts []*AccountInfo, key ed25519.PublicKey) (*AccountInfo, bool) {
	for _, info := range accounts {
		if bytes.Equal(info.PublicKey, key) {
			return info, true
		}
	}
	return nil, false
}
