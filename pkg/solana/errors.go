package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// TransactionErrorKey names a transaction level failure, as reported in the
// "err" field of a signature status.
type TransactionErrorKey string

const (
	TransactionErrorInternal TransactionErrorKey = "Internal"

	TransactionErrorAccountInUse                 TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountLoadedTwice           TransactionErrorKey = "AccountLoadedTwice"
	TransactionErrorAccountNotFound              TransactionErrorKey = "AccountNotFound"
	TransactionErrorProgramAccountNotFound       TransactionErrorKey = "ProgramAccountNotFound"
	TransactionErrorInsufficientFundsForFee      TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorInvalidAccountForFee         TransactionErrorKey = "InvalidAccountForFee"
	TransactionErrorDuplicateSignature           TransactionErrorKey = "DuplicateSignature"
	TransactionErrorBlockhashNotFound            TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorInstructionError             TransactionErrorKey = "InstructionError"
	TransactionErrorCallChainTooDeep             TransactionErrorKey = "CallChainTooDeep"
	TransactionErrorMissingSignatureForFee       TransactionErrorKey = "MissingSignatureForFee"
	TransactionErrorInvalidAccountIndex          TransactionErrorKey = "InvalidAccountIndex"
	TransactionErrorSignatureFailure             TransactionErrorKey = "SignatureFailure"
	TransactionErrorInvalidProgramForExecution   TransactionErrorKey = "InvalidProgramForExecution"
	TransactionErrorSanitizeFailure              TransactionErrorKey = "SanitizeFailure"
	TransactionErrorClusterMaintenance           TransactionErrorKey = "ClusterMaintenance"
	TransactionErrorAccountBorrowOutstanding     TransactionErrorKey = "AccountBorrowOutstanding"
	TransactionErrorWouldExceedMaxBlockCostLimit TransactionErrorKey = "WouldExceedMaxBlockCostLimit"
	TransactionErrorUnsupportedVersion           TransactionErrorKey = "UnsupportedVersion"
	TransactionErrorInvalidWritableAccount       TransactionErrorKey = "InvalidWritableAccount"
)

// InstructionErrorKey names the failure of a single instruction.
type InstructionErrorKey string

const (
	InstructionErrorGenericError                   InstructionErrorKey = "GenericError"
	InstructionErrorInvalidArgument                InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData         InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorInvalidAccountData             InstructionErrorKey = "InvalidAccountData"
	InstructionErrorAccountDataTooSmall            InstructionErrorKey = "AccountDataTooSmall"
	InstructionErrorInsufficientFunds              InstructionErrorKey = "InsufficientFunds"
	InstructionErrorIncorrectProgramID             InstructionErrorKey = "IncorrectProgramId"
	InstructionErrorMissingRequiredSignature       InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorAccountAlreadyInitialized      InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorUninitializedAccount           InstructionErrorKey = "UninitializedAccount"
	InstructionErrorUnbalancedInstruction          InstructionErrorKey = "UnbalancedInstruction"
	InstructionErrorModifiedProgramID              InstructionErrorKey = "ModifiedProgramId"
	InstructionErrorExternalAccountLamportSpend    InstructionErrorKey = "ExternalAccountLamportSpend"
	InstructionErrorExternalAccountDataModified    InstructionErrorKey = "ExternalAccountDataModified"
	InstructionErrorReadonlyLamportChange          InstructionErrorKey = "ReadonlyLamportChange"
	InstructionErrorReadonlyDataModified           InstructionErrorKey = "ReadonlyDataModified"
	InstructionErrorDuplicateAccountIndex          InstructionErrorKey = "DuplicateAccountIndex"
	InstructionErrorExecutableModified             InstructionErrorKey = "ExecutableModified"
	InstructionErrorRentEpochModified              InstructionErrorKey = "RentEpochModified"
	InstructionErrorNotEnoughAccountKeys           InstructionErrorKey = "NotEnoughAccountKeys"
	InstructionErrorAccountDataSizeChanged         InstructionErrorKey = "AccountDataSizeChanged"
	InstructionErrorAccountNotExecutable           InstructionErrorKey = "AccountNotExecutable"
	InstructionErrorAccountBorrowFailed            InstructionErrorKey = "AccountBorrowFailed"
	InstructionErrorAccountBorrowOutstanding       InstructionErrorKey = "AccountBorrowOutstanding"
	InstructionErrorDuplicateAccountOutOfSync      InstructionErrorKey = "DuplicateAccountOutOfSync"
	InstructionErrorCustom                         InstructionErrorKey = "Custom"
	InstructionErrorInvalidError                   InstructionErrorKey = "InvalidError"
	InstructionErrorExecutableDataModified         InstructionErrorKey = "ExecutableDataModified"
	InstructionErrorExecutableLamportChange        InstructionErrorKey = "ExecutableLamportChange"
	InstructionErrorExecutableAccountNotRentExempt InstructionErrorKey = "ExecutableAccountNotRentExempt"
	InstructionErrorUnsupportedProgramID           InstructionErrorKey = "UnsupportedProgramId"
	InstructionErrorCallDepth                      InstructionErrorKey = "CallDepth"
	InstructionErrorMissingAccount                 InstructionErrorKey = "MissingAccount"
	InstructionErrorReentrancyNotAllowed           InstructionErrorKey = "ReentrancyNotAllowed"
	InstructionErrorMaxSeedLengthExceeded          InstructionErrorKey = "MaxSeedLengthExceeded"
	InstructionErrorInvalidSeeds                   InstructionErrorKey = "InvalidSeeds"
	InstructionErrorInvalidRealloc                 InstructionErrorKey = "InvalidRealloc"
	InstructionErrorPrivilegeEscalation            InstructionErrorKey = "PrivilegeEscalation"
	InstructionErrorProgramFailedToComplete        InstructionErrorKey = "ProgramFailedToComplete"
	InstructionErrorArithmeticOverflow             InstructionErrorKey = "ArithmeticOverflow"
)

// Error allows builtin programs to return the key directly as an error.
func (k InstructionErrorKey) Error() string {
	return string(k)
}

// Error allows the runtime to return the key directly as an error.
func (k TransactionErrorKey) Error() string {
	return string(k)
}

// CustomError is the numerical error returned by a non-system program.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %x", int(c))
}

// customErrorProvider is implemented by typed program errors that map onto a
// CustomError code.
type customErrorProvider interface {
	CustomError() CustomError
}

// InstructionError indicates an instruction returned an error in a transaction.
type InstructionError struct {
	Index int
	Err   error
}

// parseInstructionError decodes the [index, error] tuple of an
// InstructionError, where error is either a key or {"Custom": code}.
func parseInstructionError(v interface{}) (InstructionError, error) {
	tuple, ok := v.([]interface{})
	if !ok || len(tuple) != 2 {
		return InstructionError{}, errors.Errorf("malformed instruction error: %v", v)
	}

	index, err := parseJSONNumber(tuple[0])
	if err != nil {
		return InstructionError{}, err
	}
	e := InstructionError{Index: index}

	switch detail := tuple[1].(type) {
	case string:
		e.Err = InstructionErrorKey(detail)
	case map[string]interface{}:
		key, value, ok := singleEntry(detail)
		if !ok {
			e.Err = errors.New("unhandled InstructionError")
			return e, errors.Errorf("expected a single instruction error entry, got %d", len(detail))
		}
		if key != string(InstructionErrorCustom) {
			e.Err = InstructionErrorKey(key)
			break
		}

		code, err := parseJSONNumber(value)
		if err != nil {
			e.Err = errors.New("unhandled CustomError")
			break
		}
		e.Err = CustomError(code)
	}
	return e, nil
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) Unwrap() error {
	return i.Err
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	if i.Err == nil {
		return ""
	}

	if i.CustomError() != nil {
		return InstructionErrorCustom
	}

	var key InstructionErrorKey
	if errors.As(i.Err, &key) {
		return key
	}

	return InstructionErrorKey(i.Err.Error())
}

func (i InstructionError) JSONString() string {
	if ce := i.CustomError(); ce != nil {
		return fmt.Sprintf(`[%d, {"%s": %d}]`, i.Index, InstructionErrorCustom, *ce)
	}

	return fmt.Sprintf(`[%d, "%s"]`, i.Index, i.ErrorKey())
}

// CustomError returns the custom program error code, if the instruction failed
// with one.
func (i InstructionError) CustomError() *CustomError {
	if i.Err == nil {
		return nil
	}

	var ce CustomError
	if errors.As(i.Err, &ce) {
		return &ce
	}

	var provider customErrorProvider
	if errors.As(i.Err, &provider) {
		ce = provider.CustomError()
		return &ce
	}

	return nil
}

// TransactionError contains the transaction error details.
type TransactionError struct {
	transactionError error
	instructionError *InstructionError
	raw              interface{}
}

// ParseRPCError extracts the transaction error carried in the data of an
// RPC error, if there is one.
func ParseRPCError(err *jsonrpc.RPCError) (*TransactionError, error) {
	if err == nil {
		return nil, nil
	}

	data, ok := err.Data.(map[string]interface{})
	if !ok {
		return nil, errors.New("rpc error carries no data")
	}
	return ParseTransactionError(data["err"])
}

// ParseTransactionError decodes the JSON "err" value reported for a
// transaction. It is either a bare key or a single entry object, such as
// {"InstructionError": [0, "InvalidArgument"]}.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	unhandled := func(cause error) (*TransactionError, error) {
		return &TransactionError{transactionError: errors.New("unhandled transaction error"), raw: raw}, cause
	}

	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{transactionError: TransactionErrorKey(t), raw: raw}, nil
	case map[string]interface{}:
		key, value, ok := singleEntry(t)
		if !ok {
			return unhandled(errors.Errorf("expected a single transaction error entry, got %d", len(t)))
		}
		if key != string(TransactionErrorInstructionError) {
			return &TransactionError{transactionError: TransactionErrorKey(key), raw: raw}, nil
		}

		ixErr, err := parseInstructionError(value)
		if err != nil {
			return unhandled(errors.Wrap(err, "failed to parse instruction error"))
		}
		return &TransactionError{
			transactionError: TransactionErrorInstructionError,
			instructionError: &ixErr,
			raw:              raw,
		}, nil
	default:
		return nil, errors.Errorf("unhandled error type %T", raw)
	}
}

func singleEntry(m map[string]interface{}) (string, interface{}, bool) {
	if len(m) != 1 {
		return "", nil, false
	}
	for k, v := range m {
		return k, v, true
	}
	return "", nil, false
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{
		transactionError: key,
		raw:              string(key),
	}
}

func TransactionErrorFromInstructionError(err *InstructionError) (*TransactionError, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(err.JSONString()), &raw); err != nil {
		return nil, errors.Wrap(err, "failed to generate raw value")
	}

	return &TransactionError{
		transactionError: TransactionErrorInstructionError,
		instructionError: err,
		raw: map[string]interface{}{
			string(TransactionErrorInstructionError): raw,
		},
	}, nil
}

func (t TransactionError) Error() string {
	if t.instructionError != nil {
		return t.instructionError.Error()
	}

	if t.transactionError != nil {
		return t.transactionError.Error()
	}

	return ""
}

func (t TransactionError) Unwrap() error {
	if t.instructionError != nil {
		return t.instructionError
	}
	return t.transactionError
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	if t.transactionError == nil {
		return ""
	}

	return TransactionErrorKey(t.transactionError.Error())
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instructionError
}

func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

// parseJSONNumber accepts the numeric forms produced by the different JSON
// decoders in use: json.Number, float64 and decimal strings.
func parseJSONNumber(v interface{}) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errors.Errorf("non integer value %v", v)
		}
		return int(i), nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value %q", n)
		}
		return int(i), nil
	default:
		return 0, errors.Errorf("non numeric value %v", v)
	}
}
