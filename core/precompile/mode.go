package precompile

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"

	"mirrorevm/core/types"
)

// writeProtection is the revert reason for a state-changing operation
// attempted from a static frame. It matches the interpreter's own message.
var writeProtection = vm.ErrWriteProtection.Error()

// legacyReasons lists the failures the legacy execution path reported as a
// bare contract revert instead of the precise response code.
var legacyReasons = map[ResponseCode]string{
	InvalidTokenID:          ContractRevertExecuted.String(),
	InvalidAccountID:        ContractRevertExecuted.String(),
	InvalidNftID:            ContractRevertExecuted.String(),
	TokenNotAssociated:      ContractRevertExecuted.String(),
	InvalidAllowanceOwnerID: ContractRevertExecuted.String(),
}

// RevertReason maps a failure code to the revert reason string reported in
// the given execution mode. Modularized execution always reports the
// response code name.
func RevertReason(mode types.ExecutionMode, code ResponseCode) string {
	if mode == types.ModeLegacy {
		if reason, ok := legacyReasons[code]; ok {
			return reason
		}
	}
	return code.String()
}

var (
	errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	reasonArgs    = abi.Arguments{{Type: mustNewType("string")}}
)

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic("precompile: " + err.Error())
	}
	return typ
}

// revertData encodes reason as the Error(string) payload solidity uses for
// require and revert messages.
func revertData(reason string) []byte {
	packed, err := reasonArgs.Pack(reason)
	if err != nil {
		return nil
	}
	out := make([]byte, 0, len(errorSelector)+len(packed))
	return append(append(out, errorSelector...), packed...)
}
