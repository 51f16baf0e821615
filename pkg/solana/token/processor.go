package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
)

// Processor executes single-owner token program instructions. Multisig
// owners, delegates and native (wrapped SOL) accounts are not supported.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/processor.rs
type Processor struct {
	log *logrus.Entry
}

func NewProcessor() *Processor {
	return &Processor{
		log: logrus.StandardLogger().WithField("type", "solana/token/processor"),
	}
}

func (p *Processor) Process(ctx runtime.InvokeContext, programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	cmd, err := GetCommand(data)
	if err != nil {
		return ErrorInvalidInstruction
	}

	switch cmd {
	case CommandInitializeMint:
		ctx.Log("Instruction: InitializeMint")
		return p.initializeMint(ctx, programID, accounts, data)
	case CommandInitializeAccount:
		ctx.Log("Instruction: InitializeAccount")
		return p.initializeAccount(ctx, programID, accounts)
	case CommandTransfer:
		ctx.Log("Instruction: Transfer")
		return p.transfer(programID, accounts, data)
	case CommandSetAuthority:
		ctx.Log("Instruction: SetAuthority")
		return p.setAuthority(programID, accounts, data)
	case CommandMintTo:
		ctx.Log("Instruction: MintTo")
		return p.mintTo(programID, accounts, data)
	case CommandCloseAccount:
		ctx.Log("Instruction: CloseAccount")
		return p.closeAccount(programID, accounts)
	default:
		return ErrorInvalidInstruction
	}
}

func (p *Processor) initializeMint(ctx runtime.InvokeContext, programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	args, err := DecodeInitializeMintData(data)
	if err != nil {
		return ErrorInvalidInstruction
	}
	if len(accounts) < 2 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	info := accounts[0]
	if !info.IsOwnedBy(programID) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var mint Mint
	if !mint.Unmarshal(info.Data) {
		return solana.InstructionErrorInvalidAccountData
	}
	if mint.IsInitialized {
		return ErrorAlreadyInUse
	}
	if !ctx.Rent().IsExempt(info.Lamports, uint64(len(info.Data))) {
		return ErrorNotRentExempt
	}

	mint = Mint{
		MintAuthority:   args.MintAuthority,
		Decimals:        args.Decimals,
		IsInitialized:   true,
		FreezeAuthority: args.FreezeAuthority,
	}
	copy(info.Data, mint.Marshal())

	return nil
}

func (p *Processor) initializeAccount(ctx runtime.InvokeContext, programID ed25519.PublicKey, accounts []*runtime.AccountInfo) error {
	if len(accounts) < 4 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	info, mintInfo, owner := accounts[0], accounts[1], accounts[2]
	if !info.IsOwnedBy(programID) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var account Account
	if !account.Unmarshal(info.Data) {
		return solana.InstructionErrorInvalidAccountData
	}
	if account.IsInitialized() {
		return ErrorAlreadyInUse
	}
	if !ctx.Rent().IsExempt(info.Lamports, uint64(len(info.Data))) {
		return ErrorNotRentExempt
	}

	if _, err := unpackMint(programID, mintInfo); err != nil {
		return ErrorInvalidMint
	}

	account = Account{
		Mint:  mintInfo.PublicKey,
		Owner: owner.PublicKey,
		State: AccountStateInitialized,
	}
	copy(info.Data, account.Marshal())

	p.log.WithFields(logrus.Fields{
		"method":  "initializeAccount",
		"account": base58.Encode(info.PublicKey),
		"mint":    base58.Encode(mintInfo.PublicKey),
		"owner":   base58.Encode(owner.PublicKey),
	}).Trace("token account initialized")

	return nil
}

func (p *Processor) transfer(programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	amount, err := DecodeAmountData(data, CommandTransfer)
	if err != nil {
		return ErrorInvalidInstruction
	}
	if len(accounts) < 3 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	sourceInfo, destInfo, authority := accounts[0], accounts[1], accounts[2]

	source, err := unpackAccount(programID, sourceInfo)
	if err != nil {
		return err
	}
	dest, err := unpackAccount(programID, destInfo)
	if err != nil {
		return err
	}

	if source.State == AccountStateFrozen || dest.State == AccountStateFrozen {
		return ErrorAccountFrozen
	}
	if source.Amount < amount {
		return ErrorInsufficientFunds
	}
	if !bytes.Equal(source.Mint, dest.Mint) {
		return ErrorMintMismatch
	}
	if err := validateOwner(source.Owner, authority); err != nil {
		return err
	}

	// Self transfers are validated, but are otherwise a no-op
	if sourceInfo.Account == destInfo.Account {
		return nil
	}

	if dest.Amount+amount < dest.Amount {
		return ErrorOverflow
	}

	source.Amount -= amount
	dest.Amount += amount

	copy(sourceInfo.Data, source.Marshal())
	copy(destInfo.Data, dest.Marshal())

	return nil
}

func (p *Processor) mintTo(programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	amount, err := DecodeAmountData(data, CommandMintTo)
	if err != nil {
		return ErrorInvalidInstruction
	}
	if len(accounts) < 3 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	mintInfo, destInfo, authority := accounts[0], accounts[1], accounts[2]

	mint, err := unpackMint(programID, mintInfo)
	if err != nil {
		return err
	}
	dest, err := unpackAccount(programID, destInfo)
	if err != nil {
		return err
	}

	if dest.State == AccountStateFrozen {
		return ErrorAccountFrozen
	}
	if !bytes.Equal(dest.Mint, mintInfo.PublicKey) {
		return ErrorMintMismatch
	}
	if len(mint.MintAuthority) == 0 {
		return ErrorFixedSupply
	}
	if err := validateOwner(mint.MintAuthority, authority); err != nil {
		return err
	}

	if mint.Supply+amount < mint.Supply || dest.Amount+amount < dest.Amount {
		return ErrorOverflow
	}

	mint.Supply += amount
	dest.Amount += amount

	copy(mintInfo.Data, mint.Marshal())
	copy(destInfo.Data, dest.Marshal())

	return nil
}

func (p *Processor) setAuthority(programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	args, err := DecodeSetAuthorityData(data)
	if err != nil {
		return ErrorInvalidInstruction
	}
	if len(accounts) < 2 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	info, authority := accounts[0], accounts[1]
	if !info.IsOwnedBy(programID) {
		return solana.InstructionErrorIncorrectProgramID
	}

	switch len(info.Data) {
	case AccountSize:
		account, err := unpackAccount(programID, info)
		if err != nil {
			return err
		}
		if account.State == AccountStateFrozen {
			return ErrorAccountFrozen
		}

		switch args.Type {
		case AuthorityTypeAccountHolder:
			if err := validateOwner(account.Owner, authority); err != nil {
				return err
			}
			if len(args.NewAuthority) == 0 {
				return ErrorInvalidInstruction
			}

			account.Owner = args.NewAuthority
			account.Delegate = nil
			account.DelegatedAmount = 0
		case AuthorityTypeCloseAccount:
			current := account.CloseAuthority
			if len(current) == 0 {
				current = account.Owner
			}
			if err := validateOwner(current, authority); err != nil {
				return err
			}

			account.CloseAuthority = args.NewAuthority
		default:
			return ErrorAuthorityTypeNotSupported
		}

		copy(info.Data, account.Marshal())

		p.log.WithFields(logrus.Fields{
			"method":  "setAuthority",
			"account": base58.Encode(info.PublicKey),
			"type":    args.Type,
		}).Trace("account authority updated")
	case MintSize:
		mint, err := unpackMint(programID, info)
		if err != nil {
			return err
		}

		switch args.Type {
		case AuthorityTypeMintTokens:
			if len(mint.MintAuthority) == 0 {
				return ErrorFixedSupply
			}
			if err := validateOwner(mint.MintAuthority, authority); err != nil {
				return err
			}

			mint.MintAuthority = args.NewAuthority
		case AuthorityTypeFreezeAccount:
			if len(mint.FreezeAuthority) == 0 {
				return ErrorMintCannotFreeze
			}
			if err := validateOwner(mint.FreezeAuthority, authority); err != nil {
				return err
			}

			mint.FreezeAuthority = args.NewAuthority
		default:
			return ErrorAuthorityTypeNotSupported
		}

		copy(info.Data, mint.Marshal())
	default:
		return solana.InstructionErrorInvalidArgument
	}

	return nil
}

func (p *Processor) closeAccount(programID ed25519.PublicKey, accounts []*runtime.AccountInfo) error {
	if len(accounts) < 3 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	info, destInfo, authority := accounts[0], accounts[1], accounts[2]
	if info.Account == destInfo.Account {
		return solana.InstructionErrorInvalidAccountData
	}

	account, err := unpackAccount(programID, info)
	if err != nil {
		return err
	}
	if account.Amount != 0 {
		return ErrorNonNativeHasBalance
	}

	closeAuthority := account.CloseAuthority
	if len(closeAuthority) == 0 {
		closeAuthority = account.Owner
	}
	if err := validateOwner(closeAuthority, authority); err != nil {
		return err
	}

	if destInfo.Lamports+info.Lamports < destInfo.Lamports {
		return ErrorOverflow
	}

	destInfo.Lamports += info.Lamports
	info.Lamports = 0
	info.Data = make([]byte, len(info.Data))

	p.log.WithFields(logrus.Fields{
		"method":  "closeAccount",
		"account": base58.Encode(info.PublicKey),
	}).Trace("token account closed")

	return nil
}

func unpackAccount(programID ed25519.PublicKey, info *runtime.AccountInfo) (*Account, error) {
	if !info.IsOwnedBy(programID) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var account Account
	if !account.Unmarshal(info.Data) {
		return nil, solana.InstructionErrorInvalidAccountData
	}
	if !account.IsInitialized() {
		return nil, ErrorUninitializedState
	}

	return &account, nil
}

func unpackMint(programID ed25519.PublicKey, info *runtime.AccountInfo) (*Mint, error) {
	if !info.IsOwnedBy(programID) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var mint Mint
	if !mint.Unmarshal(info.Data) {
		return nil, solana.InstructionErrorInvalidAccountData
	}
	if !mint.IsInitialized {
		return nil, ErrorUninitializedState
	}

	return &mint, nil
}

func validateOwner(expected ed25519.PublicKey, authority *runtime.AccountInfo) error {
	if !bytes.Equal(expected, authority.PublicKey) {
		return ErrorOwnerMismatch
	}
	if !authority.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	return nil
}
