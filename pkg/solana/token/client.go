package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

var (
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidTokenAccount means the address holds something other than an
	// initialized token account of the expected mint.
	ErrInvalidTokenAccount = errors.New("invalid token account")

	ErrInvalidMint = errors.New("invalid mint")
)

// Client reads token program state through a solana.Client.
type Client struct {
	sc solana.Client
}

func NewClient(sc solana.Client) *Client {
	return &Client{sc: sc}
}

// GetAccount loads the token account at address. A non-empty mint must match
// the account's mint.
func (c *Client) GetAccount(address, mint ed25519.PublicKey, commitment solana.Commitment) (*Account, error) {
	data, err := c.tokenOwnedData(address, commitment)
	if err != nil {
		return nil, err
	}

	account := new(Account)
	switch {
	case data == nil, !account.Unmarshal(data), !account.IsInitialized():
		return nil, ErrInvalidTokenAccount
	case len(mint) > 0 && !bytes.Equal(mint, account.Mint):
		return nil, ErrInvalidTokenAccount
	}
	return account, nil
}

// GetMint loads the initialized mint at address.
func (c *Client) GetMint(address ed25519.PublicKey, commitment solana.Commitment) (*Mint, error) {
	data, err := c.tokenOwnedData(address, commitment)
	if err != nil {
		return nil, err
	}

	mint := new(Mint)
	if data == nil || !mint.Unmarshal(data) || !mint.IsInitialized {
		return nil, ErrInvalidMint
	}
	return mint, nil
}

// tokenOwnedData returns nil data, without error, when the account exists but
// is not owned by the token program.
func (c *Client) tokenOwnedData(address ed25519.PublicKey, commitment solana.Commitment) ([]byte, error) {
	info, err := c.sc.GetAccountInfo(address, commitment)
	if errors.Is(err, solana.ErrNoAccountInfo) {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	if !bytes.Equal(info.Owner, ProgramKey) {
		return nil, nil
	}
	return info.Data, nil
}
