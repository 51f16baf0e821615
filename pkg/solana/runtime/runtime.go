package runtime

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// MaxInvokeDepth is the maximum instruction stack height, including the top
// level instruction.
const MaxInvokeDepth = 4

// Program is a builtin program that can be executed by the Runtime.
//
// Programs are handed the accounts referenced by the instruction, in order,
// and mutate them in place. The Runtime verifies the mutations once the
// program returns.
type Program interface {
	Process(ctx InvokeContext, programID ed25519.PublicKey, accounts []*AccountInfo, data []byte) error
}

// ProgramFunc adapts a function into a Program.
type ProgramFunc func(ctx InvokeContext, programID ed25519.PublicKey, accounts []*AccountInfo, data []byte) error

func (f ProgramFunc) Process(ctx InvokeContext, programID ed25519.PublicKey, accounts []*AccountInfo, data []byte) error {
	return f(ctx, programID, accounts, data)
}

// InvokeContext is the environment an executing program runs in.
type InvokeContext interface {
	// Invoke executes a cross-program instruction. Every account referenced
	// by the instruction, and the program itself, must be present in accounts.
	Invoke(ix solana.Instruction, accounts []*AccountInfo) error

	// InvokeSigned is Invoke, additionally signing for every program derived
	// address that the provided seed sets produce under the calling program.
	InvokeSigned(ix solana.Instruction, accounts []*AccountInfo, signerSeeds ...[][]byte) error

	// Rent returns the rent configuration of the cluster.
	Rent() Rent

	// Log appends a message to the transaction's program logs.
	Log(format string, args ...interface{})
}

// Result contains the details of an executed message.
type Result struct {
	Logs []string
}

// Runtime executes messages against a set of builtin programs.
type Runtime struct {
	log  *logrus.Entry
	rent Rent

	programsMu sync.RWMutex
	programs   map[string]Program
}

// New returns a Runtime without any programs registered.
func New(rent Rent) *Runtime {
	return &Runtime{
		log:      logrus.StandardLogger().WithField("type", "solana/runtime"),
		rent:     rent,
		programs: make(map[string]Program),
	}
}

// Register makes a program executable at the provided address.
func (r *Runtime) Register(programID ed25519.PublicKey, program Program) {
	r.programsMu.Lock()
	r.programs[string(programID)] = program
	r.programsMu.Unlock()
}

// IsProgram returns whether a program is registered at the provided address.
func (r *Runtime) IsProgram(key ed25519.PublicKey) bool {
	_, ok := r.getProgram(key)
	return ok
}

func (r *Runtime) Rent() Rent {
	return r.rent
}

// Execute runs every instruction in the message against the provided
// accounts, which must be ordered as msg.Accounts is.
//
// Accounts are mutated in place, including when an error is returned. Callers
// that require atomicity must operate on copies and discard them on failure.
// Any instruction failure is returned as a *solana.TransactionError.
func (r *Runtime) Execute(msg solana.Message, accounts []*Account) (*Result, error) {
	result := &Result{}

	if len(accounts) != len(msg.Accounts) {
		return result, solana.NewTransactionError(solana.TransactionErrorAccountNotFound)
	}

	for i, c := range msg.Instructions {
		if int(c.ProgramIndex) >= len(msg.Accounts) {
			return result, solana.NewTransactionError(solana.TransactionErrorInvalidAccountIndex)
		}

		programID := msg.Accounts[c.ProgramIndex]
		program, ok := r.getProgram(programID)
		if !ok {
			return result, solana.NewTransactionError(solana.TransactionErrorInvalidProgramForExecution)
		}

		infos := make([]*AccountInfo, len(c.Accounts))
		for j, index := range c.Accounts {
			if int(index) >= len(msg.Accounts) {
				return result, solana.NewTransactionError(solana.TransactionErrorInvalidAccountIndex)
			}

			infos[j] = &AccountInfo{
				PublicKey:  msg.Accounts[index],
				IsSigner:   msg.IsSigner(int(index)),
				IsWritable: msg.IsWritable(int(index)),
				Account:    accounts[index],
			}
		}

		err := r.process(&result.Logs, nil, programID, program, infos, c.Data)
		if err != nil {
			txErr, _ := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
				Index: i,
				Err:   err,
			})
			return result, txErr
		}
	}

	return result, nil
}

func (r *Runtime) getProgram(key ed25519.PublicKey) (Program, bool) {
	r.programsMu.RLock()
	defer r.programsMu.RUnlock()

	program, ok := r.programs[string(key)]
	return program, ok
}

func (r *Runtime) process(logs *[]string, stack []ed25519.PublicKey, programID ed25519.PublicKey, program Program, accounts []*AccountInfo, data []byte) (err error) {
	stack = append(stack, programID)

	inv := &invocation{
		rt:    r,
		logs:  logs,
		stack: stack,
		frame: newFrame(programID, accounts),
	}

	encodedID := base58.Encode(programID)
	inv.Log("Program %s invoke [%d]", encodedID, len(stack))

	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("program", encodedID).Errorf("program panicked: %v", p)
			err = solana.InstructionErrorProgramFailedToComplete
		}

		if err != nil {
			inv.Log("Program %s failed: %s", encodedID, err.Error())
		} else {
			inv.Log("Program %s success", encodedID)
		}
	}()

	if err := program.Process(inv, programID, accounts, data); err != nil {
		return err
	}

	return inv.frame.verify(true)
}

type invocation struct {
	rt    *Runtime
	logs  *[]string
	stack []ed25519.PublicKey
	frame *frame
}

func (inv *invocation) Rent() Rent {
	return inv.rt.rent
}

func (inv *invocation) Log(format string, args ...interface{}) {
	*inv.logs = append(*inv.logs, fmt.Sprintf(format, args...))
}

func (inv *invocation) Invoke(ix solana.Instruction, accounts []*AccountInfo) error {
	return inv.InvokeSigned(ix, accounts)
}

func (inv *invocation) InvokeSigned(ix solana.Instruction, accounts []*AccountInfo, signerSeeds ...[][]byte) error {
	if len(inv.stack) >= MaxInvokeDepth {
		return solana.InstructionErrorCallDepth
	}

	// A program already on the stack may only be re-entered by itself
	if containsKey(inv.stack, ix.Program) && !bytes.Equal(inv.stack[len(inv.stack)-1], ix.Program) {
		return solana.InstructionErrorReentrancyNotAllowed
	}

	program, ok := inv.rt.getProgram(ix.Program)
	if !ok {
		return solana.InstructionErrorUnsupportedProgramID
	}
	if _, ok := FindAccountInfo(accounts, ix.Program); !ok {
		return solana.InstructionErrorMissingAccount
	}

	signers := make([]ed25519.PublicKey, 0, len(signerSeeds))
	for _, seeds := range signerSeeds {
		pda, err := solana.CreateProgramAddress(inv.frame.programID, seeds...)
		if err != nil {
			return solana.InstructionErrorInvalidSeeds
		}
		signers = append(signers, pda)
	}

	callee := make([]*AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		info, ok := FindAccountInfo(accounts, meta.PublicKey)
		if !ok || !inv.frame.contains(info.Account) {
			return solana.InstructionErrorMissingAccount
		}

		if meta.IsWritable && !inv.frame.writable[info.Account] {
			inv.rt.log.WithField("account", base58.Encode(meta.PublicKey)).Debug("writable privilege escalated")
			return solana.InstructionErrorPrivilegeEscalation
		}
		if meta.IsSigner && !inv.frame.signer[info.Account] && !containsKey(signers, meta.PublicKey) {
			inv.rt.log.WithField("account", base58.Encode(meta.PublicKey)).Debug("signer privilege escalated")
			return solana.InstructionErrorPrivilegeEscalation
		}

		callee[i] = &AccountInfo{
			PublicKey:  meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			Account:    info.Account,
		}
	}

	// Changes made by the caller so far are verified against the caller's
	// privileges before the callee can observe them.
	if err := inv.frame.verify(false); err != nil {
		return err
	}
	inv.frame.rebase()

	if err := inv.rt.process(inv.logs, inv.stack, ix.Program, program, callee, ix.Data); err != nil {
		return err
	}

	inv.frame.rebase()
	return nil
}

type snapshot struct {
	owner      ed25519.PublicKey
	lamports   uint64
	data       []byte
	executable bool
}

func takeSnapshot(a *Account) snapshot {
	cloned := a.Clone()
	return snapshot{
		owner:      cloned.Owner,
		lamports:   cloned.Lamports,
		data:       cloned.Data,
		executable: cloned.Executable,
	}
}

// frame tracks the accounts visible to a single program invocation, keyed by
// the underlying account so duplicate references are verified once.
type frame struct {
	programID ed25519.PublicKey

	order    []*Account
	pre      map[*Account]snapshot
	writable map[*Account]bool
	signer   map[*Account]bool

	preLamports uint64
}

func newFrame(programID ed25519.PublicKey, accounts []*AccountInfo) *frame {
	f := &frame{
		programID: programID,
		pre:       make(map[*Account]snapshot),
		writable:  make(map[*Account]bool),
		signer:    make(map[*Account]bool),
	}

	for _, info := range accounts {
		if info.IsWritable {
			f.writable[info.Account] = true
		}
		if info.IsSigner {
			f.signer[info.Account] = true
		}

		if _, ok := f.pre[info.Account]; ok {
			continue
		}

		f.order = append(f.order, info.Account)
		f.pre[info.Account] = takeSnapshot(info.Account)
		f.preLamports += info.Lamports
	}

	return f
}

func (f *frame) contains(a *Account) bool {
	_, ok := f.pre[a]
	return ok
}

func (f *frame) rebase() {
	for _, a := range f.order {
		f.pre[a] = takeSnapshot(a)
	}
}

func (f *frame) verify(checkBalance bool) error {
	var postLamports uint64
	for _, a := range f.order {
		postLamports += a.Lamports

		if err := f.verifyAccount(a, f.pre[a]); err != nil {
			return err
		}
	}

	if checkBalance && postLamports != f.preLamports {
		return solana.InstructionErrorUnbalancedInstruction
	}

	return nil
}

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/runtime/src/message_processor.rs#L87
func (f *frame) verifyAccount(post *Account, pre snapshot) error {
	writable := f.writable[post]
	isOwner := bytes.Equal(pre.owner, f.programID)

	if post.Executable != pre.executable {
		return solana.InstructionErrorExecutableModified
	}

	if !bytes.Equal(post.Owner, pre.owner) {
		if !writable || !isOwner {
			return solana.InstructionErrorModifiedProgramID
		}
	}

	if post.Lamports != pre.lamports {
		if !writable {
			return solana.InstructionErrorReadonlyLamportChange
		}
		if post.Lamports < pre.lamports && !isOwner {
			return solana.InstructionErrorExternalAccountLamportSpend
		}
	}

	if !bytes.Equal(post.Data, pre.data) {
		if !writable {
			return solana.InstructionErrorReadonlyDataModified
		}
		if !isOwner {
			return solana.InstructionErrorExternalAccountDataModified
		}
	}

	return nil
}

func containsKey(keys []ed25519.PublicKey, key ed25519.PublicKey) bool {
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}
