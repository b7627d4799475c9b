package decoder

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// EventDescriptor is a parsed event signature. Inputs keep declaration
// order; Positions maps each input to its index in the full parameter list
// so positional keys stay stable regardless of which fields were indexed.
type EventDescriptor struct {
	Name   string
	Inputs abi.Arguments
}

// ParseSignature parses an ABI-style event signature such as
// "BidSubmitted(uint256 indexed id, address indexed owner, uint256 price, uint128 amount)".
// Parameter names and the indexed marker are both optional.
func ParseSignature(signature string) (*EventDescriptor, error) {
	signature = strings.TrimSpace(signature)

	l := strings.Index(signature, "(")
	r := strings.LastIndex(signature, ")")
	if l <= 0 || r <= l {
		return nil, fmt.Errorf("invalid event signature: %q", signature)
	}

	name := strings.TrimSpace(signature[:l])
	rawArgs := strings.Split(signature[l+1:r], ",")

	inputs := make(abi.Arguments, 0, len(rawArgs))
	for i, raw := range rawArgs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		arg, err := parseArgument(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %d of %q: %w", i, name, err)
		}
		inputs = append(inputs, arg)
	}

	return &EventDescriptor{
		Name:   name,
		Inputs: inputs,
	}, nil
}

// parseArgument parses one "type [indexed] [name]" declaration
func parseArgument(raw string) (abi.Argument, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 || len(fields) > 3 {
		return abi.Argument{}, fmt.Errorf("invalid parameter declaration %q", raw)
	}

	typ, err := abi.NewType(fields[0], "", nil)
	if err != nil {
		return abi.Argument{}, fmt.Errorf("parse type %s: %w", fields[0], err)
	}

	arg := abi.Argument{Type: typ}

	rest := fields[1:]
	if len(rest) > 0 && rest[0] == "indexed" {
		arg.Indexed = true
		rest = rest[1:]
	}
	if len(rest) > 1 {
		return abi.Argument{}, fmt.Errorf("invalid parameter declaration %q", raw)
	}
	if len(rest) == 1 {
		if rest[0] == "indexed" {
			return abi.Argument{}, fmt.Errorf("invalid parameter declaration %q", raw)
		}
		arg.Name = rest[0]
	}

	return arg, nil
}

// splitIndexed partitions inputs into indexed and non-indexed arguments,
// preserving declaration order within each partition
func splitIndexed(args abi.Arguments) (indexed, nonIndexed abi.Arguments) {
	for _, a := range args {
		if a.Indexed {
			indexed = append(indexed, a)
		} else {
			nonIndexed = append(nonIndexed, a)
		}
	}
	return indexed, nonIndexed
}
