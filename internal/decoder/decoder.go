// Package decoder turns raw log topics and data into named event parameters.
// Decoding is pure and total: the same inputs always produce the same output,
// and failures degrade to a raw-payload capture instead of an error.
package decoder

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/auction-indexer/internal/models"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Degradation keys emitted when a log cannot be decoded against its
// catalog signature or the indexed-variant fallback.
const (
	RawDataKey   = "_rawData"
	RawTopicsKey = "_rawTopics"
	ErrorKey     = "_error"
)

// indexedVariants holds per-event alternate signatures for contracts that
// emit with different indexed markers than the catalog's canonical
// signature. Tried once when the canonical decode fails.
var indexedVariants = map[string]string{
	"AuctionCreated": "AuctionCreated(address indexed auction, address indexed token)",
	"BidSubmitted":   "BidSubmitted(uint256 indexed id, address indexed owner, uint256 price, uint128 amount)",
	"BidExited":      "BidExited(uint256 indexed id, address indexed owner, uint256 amount)",
	"TokensClaimed":  "TokensClaimed(uint256 indexed id, address indexed owner, uint256 amount)",
}

// Decode decodes a log against its catalog entry. It never fails: an absent
// signature yields empty params, and an undecodable payload yields the raw
// topics and data plus an error marker.
func Decode(topic *models.EventTopic, log *models.EventLog) models.DecodedEvent {
	event := models.DecodedEvent{
		EventName:    topic.EventName,
		EventTopicID: topic.ID,
		Params:       map[string]string{},
	}

	if topic.Signature == "" {
		return event
	}

	params, err := decodeAgainst(topic.Signature, log)
	if err == nil {
		event.Params = params
		return event
	}

	if variant, ok := indexedVariants[topic.EventName]; ok && variant != topic.Signature {
		if params, variantErr := decodeAgainst(variant, log); variantErr == nil {
			event.Params = params
			return event
		}
	}

	event.Params = map[string]string{
		RawDataKey:   log.Data,
		RawTopicsKey: strings.Join(log.Topics, ","),
		ErrorKey:     err.Error(),
	}
	return event
}

// decodeAgainst parses a signature and decodes the log's topics and data
// against it
func decodeAgainst(signature string, log *models.EventLog) (map[string]string, error) {
	desc, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}

	indexed, nonIndexed := splitIndexed(desc.Inputs)

	if len(log.Topics) != len(indexed)+1 {
		return nil, fmt.Errorf("topic count mismatch: signature declares %d indexed parameters, log carries %d topics",
			len(indexed), len(log.Topics))
	}

	data, err := hexutil.Decode(normalizeHex(log.Data))
	if err != nil {
		return nil, fmt.Errorf("invalid data payload: %w", err)
	}

	values, err := nonIndexed.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack data: %w", err)
	}
	if len(values) != len(nonIndexed) {
		return nil, fmt.Errorf("unpack data: expected %d values, got %d", len(nonIndexed), len(values))
	}

	params := make(map[string]string, len(desc.Inputs))
	topicIdx := 1
	valueIdx := 0

	for pos, arg := range desc.Inputs {
		var serialized string
		if arg.Indexed {
			serialized, err = decodeTopic(arg.Type, log.Topics[topicIdx])
			if err != nil {
				return nil, fmt.Errorf("decode indexed parameter %d: %w", pos, err)
			}
			topicIdx++
		} else {
			serialized = formatValue(values[valueIdx])
			valueIdx++
		}

		key := arg.Name
		if key == "" {
			key = strconv.Itoa(pos)
		}
		params[key] = serialized
	}

	return params, nil
}

// decodeTopic recovers an indexed parameter value from its 32-byte topic.
// Addresses come from the low 20 bytes; integers are big-endian and
// serialized as exact decimal strings.
func decodeTopic(typ abi.Type, topic string) (string, error) {
	raw := common.HexToHash(topic)

	switch typ.T {
	case abi.AddressTy:
		return strings.ToLower(common.BytesToAddress(raw.Bytes()).Hex()), nil
	case abi.UintTy:
		return new(big.Int).SetBytes(raw.Bytes()).String(), nil
	case abi.IntTy:
		return twosComplement(raw.Bytes()).String(), nil
	case abi.BoolTy:
		if raw.Bytes()[31] != 0 {
			return "true", nil
		}
		return "false", nil
	case abi.FixedBytesTy, abi.BytesTy, abi.StringTy, abi.HashTy:
		// Dynamic types are hashed when indexed; the hash is the best
		// recoverable value
		return strings.ToLower(raw.Hex()), nil
	default:
		return "", fmt.Errorf("unsupported indexed type %s", typ.String())
	}
}

// twosComplement interprets a 32-byte big-endian value as a signed integer
func twosComplement(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if len(b) == 32 && b[0]&0x80 != 0 {
		max := new(big.Int).Lsh(big.NewInt(1), 256)
		v.Sub(v, max)
	}
	return v
}

// formatValue serializes a decoded ABI value to its string form
func formatValue(v interface{}) string {
	switch value := v.(type) {
	case *big.Int:
		return value.String()
	case common.Address:
		return strings.ToLower(value.Hex())
	case common.Hash:
		return strings.ToLower(value.Hex())
	case bool:
		return strconv.FormatBool(value)
	case string:
		return value
	case []byte:
		return hexutil.Encode(value)
	case [32]byte:
		return hexutil.Encode(value[:])
	case uint8:
		return strconv.FormatUint(uint64(value), 10)
	case uint16:
		return strconv.FormatUint(uint64(value), 10)
	case uint32:
		return strconv.FormatUint(uint64(value), 10)
	case uint64:
		return strconv.FormatUint(value, 10)
	case int8:
		return strconv.FormatInt(int64(value), 10)
	case int16:
		return strconv.FormatInt(int64(value), 10)
	case int32:
		return strconv.FormatInt(int64(value), 10)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// normalizeHex tolerates payloads stored without a 0x prefix
func normalizeHex(s string) string {
	if s == "" {
		return "0x"
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "0x" + s
	}
	return s
}
