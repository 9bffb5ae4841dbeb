package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// parseKeyLiteral turns a kind:value command-line literal into the dynamic
// value form the codec accepts.
func parseKeyLiteral(lit string) (any, error) {
	kind, val, ok := strings.Cut(lit, ":")
	if !ok {
		return nil, fmt.Errorf("key literal %q: want kind:value", lit)
	}
	switch kind {
	case "bool":
		switch val {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("key literal %q: bool wants true or false", lit)
	case "u8":
		n, err := strconv.ParseUint(val, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("key literal %q: %w", lit, err)
		}
		return uint8(n), nil
	case "u16":
		n, err := strconv.ParseUint(val, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("key literal %q: %w", lit, err)
		}
		return uint16(n), nil
	case "u32":
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("key literal %q: %w", lit, err)
		}
		return uint32(n), nil
	case "u64", "compact":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("key literal %q: %w", lit, err)
		}
		return n, nil
	case "u128":
		n, err := uint256.FromDecimal(val)
		if err != nil {
			return nil, fmt.Errorf("key literal %q: %w", lit, err)
		}
		return n, nil
	case "hex":
		b, err := hex.DecodeString(strings.TrimPrefix(val, "0x"))
		if err != nil {
			return nil, fmt.Errorf("key literal %q: %w", lit, err)
		}
		return b, nil
	case "str":
		return val, nil
	default:
		return nil, fmt.Errorf("key literal %q: unknown kind %q", lit, kind)
	}
}
