package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

var (
	ErrSignatureVerification = errors.New("signature verification failed")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (h Blockhash) String() string {
	return base58.Encode(h[:])
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	accounts := []AccountMeta{
		{
			PublicKey:  payer,
			IsSigner:   true,
			IsWritable: true,
			isPayer:    true,
		},
	}

	for _, i := range instructions {
		accounts = append(accounts, AccountMeta{
			PublicKey: i.Program,
			isProgram: true,
		})
		accounts = append(accounts, i.Accounts...)
	}

	accounts = filterUnique(accounts)
	sort.SliceStable(accounts, func(i, j int) bool {
		return accountMetaLess(accounts[i], accounts[j])
	})

	var m Message
	for _, account := range accounts {
		m.Accounts = append(m.Accounts, account.PublicKey)

		if account.IsSigner {
			m.Header.NumSignatures++

			if !account.IsWritable {
				m.Header.NumReadonlySigned++
			}
		} else if !account.IsWritable {
			m.Header.NumReadOnly++
		}
	}

	for _, i := range instructions {
		c := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, i.Program)),
			Data:         i.Data,
		}

		for _, a := range i.Accounts {
			c.Accounts = append(c.Accounts, byte(indexOf(m.Accounts, a.PublicKey)))
		}

		m.Instructions = append(m.Instructions, c)
	}

	for i := range m.Accounts {
		if len(m.Accounts[i]) == 0 {
			m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		}
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

func (t *Transaction) Signature() []byte {
	return t.Signatures[0][:]
}

func (t *Transaction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "signatures (%d):\n", len(t.Signatures))
	for i, sig := range t.Signatures {
		fmt.Fprintf(&sb, "  [%d] %s\n", i, sig)
	}

	h := t.Message.Header
	fmt.Fprintf(&sb, "header: signers=%d readonly_signed=%d readonly=%d\n", h.NumSignatures, h.NumReadonlySigned, h.NumReadOnly)
	fmt.Fprintf(&sb, "blockhash: %s\n", t.Message.RecentBlockhash)

	fmt.Fprintf(&sb, "accounts (%d):\n", len(t.Message.Accounts))
	for i, account := range t.Message.Accounts {
		fmt.Fprintf(&sb, "  [%d] %s\n", i, base58.Encode(account))
	}

	fmt.Fprintf(&sb, "instructions (%d):\n", len(t.Message.Instructions))
	for i, ix := range t.Message.Instructions {
		fmt.Fprintf(&sb, "  [%d] program=%d accounts=%v data=%x\n", i, ix.ProgramIndex, ix.Accounts, ix.Data)
	}
	return sb.String()
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.Public().(ed25519.PublicKey)
		index := indexOf(t.Message.Accounts, pub)
		if index < 0 {
			return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
		}
		if index >= len(t.Signatures) {
			return errors.Errorf("signing account %s is not in the list of signers", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(s, messageBytes))
	}

	return nil
}

// VerifySignatures checks that every required signer produced a valid
// signature over the message.
func (t *Transaction) VerifySignatures() error {
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return errors.Wrapf(ErrSignatureVerification, "expected %d signatures, got %d", t.Message.Header.NumSignatures, len(t.Signatures))
	}
	if len(t.Message.Accounts) < len(t.Signatures) {
		return errors.Wrap(ErrSignatureVerification, "more signatures than accounts")
	}

	messageBytes := t.Message.Marshal()
	for i, sig := range t.Signatures {
		if !ed25519.Verify(t.Message.Accounts[i], messageBytes, sig[:]) {
			return errors.Wrapf(ErrSignatureVerification, "invalid signature for %s", base58.Encode(t.Message.Accounts[i]))
		}
	}

	return nil
}

// IsSigner returns whether the account at the provided index is required to
// sign the message.
func (m Message) IsSigner(index int) bool {
	return index < int(m.Header.NumSignatures)
}

// IsWritable returns whether the account at the provided index is locked for
// writing by the message.
func (m Message) IsWritable(index int) bool {
	if index < int(m.Header.NumSignatures) {
		return index < int(m.Header.NumSignatures-m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}

// DecompileInstruction expands the compiled instruction at the provided index
// back into an Instruction, with account permissions taken from the message
// header.
func (m Message) DecompileInstruction(index int) (Instruction, error) {
	if index >= len(m.Instructions) {
		return Instruction{}, errors.Errorf("instruction doesn't exist at %d", index)
	}

	c := m.Instructions[index]
	if int(c.ProgramIndex) >= len(m.Accounts) {
		return Instruction{}, errors.Errorf("program index out of range: %d", c.ProgramIndex)
	}

	accounts := make([]AccountMeta, len(c.Accounts))
	for i, accountIndex := range c.Accounts {
		if int(accountIndex) >= len(m.Accounts) {
			return Instruction{}, errors.Errorf("account index out of range: %d:%d", index, accountIndex)
		}

		accounts[i] = AccountMeta{
			PublicKey:  m.Accounts[accountIndex],
			IsSigner:   m.IsSigner(int(accountIndex)),
			IsWritable: m.IsWritable(int(accountIndex)),
		}
	}

	return NewInstruction(m.Accounts[c.ProgramIndex], c.Data, accounts...), nil
}

// HasDuplicateAccounts reports whether a key appears more than once in the
// message's account list.
func (m Message) HasDuplicateAccounts() bool {
	for i := range m.Accounts {
		for j := i + 1; j < len(m.Accounts); j++ {
			if bytes.Equal(m.Accounts[i], m.Accounts[j]) {
				return true
			}
		}
	}
	return false
}

// filterUnique merges repeated accounts into their first occurrence, taking
// the union of their permissions.
func filterUnique(accounts []AccountMeta) []AccountMeta {
	positions := make(map[string]int, len(accounts))
	filtered := make([]AccountMeta, 0, len(accounts))

	for _, account := range accounts {
		pos, seen := positions[string(account.PublicKey)]
		if !seen {
			positions[string(account.PublicKey)] = len(filtered)
			filtered = append(filtered, account)
			continue
		}

		existing := &filtered[pos]
		existing.IsSigner = existing.IsSigner || account.IsSigner
		existing.IsWritable = existing.IsWritable || account.IsWritable
		existing.isPayer = existing.isPayer || account.isPayer
	}
	return filtered
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}
