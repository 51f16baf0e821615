package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana/shortvec"
)

// Marshal returns the wire encoding of the transaction: the signatures
// followed by the message.
func (t Transaction) Marshal() []byte {
	b := appendLen(nil, len(t.Signatures))
	for _, sig := range t.Signatures {
		b = append(b, sig[:]...)
	}
	return append(b, t.Message.Marshal()...)
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := bytes.NewReader(b)

	count, err := shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read signature count")
	}

	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if _, err := io.ReadFull(r, t.Signatures[i][:]); err != nil {
			return errors.Wrapf(err, "failed to read signature %d", i)
		}
	}

	rest := b[len(b)-r.Len():]
	return t.Message.Unmarshal(rest)
}

// Marshal returns the legacy wire encoding of the message.
func (m Message) Marshal() []byte {
	b := []byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly}

	b = appendLen(b, len(m.Accounts))
	for _, account := range m.Accounts {
		b = append(b, account...)
	}

	b = append(b, m.RecentBlockhash[:]...)

	b = appendLen(b, len(m.Instructions))
	for _, ix := range m.Instructions {
		b = append(b, ix.ProgramIndex)
		b = appendLen(b, len(ix.Accounts))
		b = append(b, ix.Accounts...)
		b = appendLen(b, len(ix.Data))
		b = append(b, ix.Data...)
	}
	return b
}

// Unmarshal decodes a legacy message. Versioned messages, which set the high
// bit of the first byte, are rejected.
func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := bytes.NewReader(b)

	var header [3]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return errors.Wrap(err, "failed to read header")
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	accountCount, err := shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read account count")
	}
	m.Accounts = make([]ed25519.PublicKey, accountCount)
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		if _, err := io.ReadFull(r, m.Accounts[i]); err != nil {
			return errors.Wrapf(err, "failed to read account %d", i)
		}
	}

	if _, err := io.ReadFull(r, m.RecentBlockhash[:]); err != nil {
		return errors.Wrap(err, "failed to read recent blockhash")
	}

	ixCount, err := shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read instruction count")
	}
	m.Instructions = make([]CompiledInstruction, ixCount)
	for i := range m.Instructions {
		ix, err := readCompiledInstruction(r, len(m.Accounts))
		if err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
		m.Instructions[i] = ix
	}
	return nil
}

func readCompiledInstruction(r *bytes.Reader, numAccounts int) (CompiledInstruction, error) {
	var ix CompiledInstruction

	programIndex, err := r.ReadByte()
	if err != nil {
		return ix, errors.Wrap(err, "failed to read program index")
	}
	if int(programIndex) >= numAccounts {
		return ix, errors.Errorf("program index %d out of range", programIndex)
	}
	ix.ProgramIndex = programIndex

	if ix.Accounts, err = readVector(r); err != nil {
		return ix, errors.Wrap(err, "failed to read account indexes")
	}
	for _, index := range ix.Accounts {
		if int(index) >= numAccounts {
			return ix, errors.Errorf("account index %d out of range", index)
		}
	}

	if ix.Data, err = readVector(r); err != nil {
		return ix, errors.Wrap(err, "failed to read data")
	}
	return ix, nil
}

func readVector(r *bytes.Reader) ([]byte, error) {
	n, err := shortvec.DecodeLen(r)
	if err != nil {
		return nil, err
	}
	v := make([]byte, n)
	if _, err := io.ReadFull(r, v); err != nil {
		return nil, err
	}
	return v, nil
}

// appendLen panics on lengths over a u16, which no transaction under the
// packet size limit can reach.
func appendLen(b []byte, n int) []byte {
	b, err := shortvec.AppendLen(b, n)
	if err != nil {
		panic(err)
	}
	return b
}
