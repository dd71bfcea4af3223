package evm

import (
	"github.com/ethereum/go-ethereum/common"
)

// proxyJumpDest is the offset of the success branch in the proxy template.
const proxyJumpDest = 0x46

// TokenProxyCode returns the runtime code served for a token address. The
// proxy prepends the redirect selector and the token address to its call
// data, delegates to the token service and bubbles the result up:
//
//	PUSH4 redirectSelector PUSH1 0xe0 SHL
//	PUSH20 token PUSH1 0x40 SHL OR PUSH1 0 MSTORE
//	CALLDATASIZE PUSH1 0 PUSH1 0x18 CALLDATACOPY
//	PUSH1 0 PUSH1 0 CALLDATASIZE PUSH1 0x18 ADD PUSH1 0 PUSH2 0x0167 GAS DELEGATECALL
//	RETURNDATASIZE PUSH1 0 PUSH1 0 RETURNDATACOPY
//	PUSH1 0x46 JUMPI
//	RETURNDATASIZE PUSH1 0 REVERT
//	JUMPDEST RETURNDATASIZE PUSH1 0 RETURN
func TokenProxyCode(token common.Address) []byte {
	code := make([]byte, 0, proxyJumpDest+5)
	code = append(code, 0x63, 0x61, 0x8d, 0xc6, 0x5e, 0x60, 0xe0, 0x1b, 0x73)
	code = append(code, token.Bytes()...)
	code = append(code,
		0x60, 0x40, 0x1b, 0x17, 0x60, 0x00, 0x52,
		0x36, 0x60, 0x00, 0x60, 0x18, 0x37,
		0x60, 0x00, 0x60, 0x00, 0x36, 0x60, 0x18, 0x01, 0x60, 0x00, 0x61, 0x01, 0x67, 0x5a, 0xf4,
		0x3d, 0x60, 0x00, 0x60, 0x00, 0x3e,
		0x60, proxyJumpDest, 0x57,
		0x3d, 0x60, 0x00, 0xfd,
		0x5b, 0x3d, 0x60, 0x00, 0xf3,
	)
	return code
}
