package ddbstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/acksell/electro/dynamodb/table"
	"github.com/fxamacker/cbor/v2"
)

// Key encoding for BadgerDB that supports proper lexicographic ordering.
// Key format: [tableName][separator][partitionKey][separator][sortKey]
//
// For GSIs: [tableName][$gsi:][gsiName][separator][partitionKey][separator][sortKey][separator][table key]
//
// GSI keys are suffixed with the item's table key since several items may
// share one GSI key. The separator byte (0x00) never occurs inside an encoded
// component.

const (
	keySeparator byte = 0x00
	gsiMarker         = "$gsi:"
)

// Key type markers for encoding
const (
	keyTypeString byte = 'S'
	keyTypeNumber byte = 'N'
	keyTypeBinary byte = 'B'
)

type badgerKeyEncoder struct {
	tableName string
	indexName string // empty for main table
	keyDefs   table.PrimaryKeyDefinition
	// tableKeys is set for GSIs.
	tableKeys table.PrimaryKeyDefinition
}

func (e *badgerKeyEncoder) tablePrefix() []byte {
	var buf bytes.Buffer
	buf.WriteString(e.tableName)
	if e.indexName != "" {
		buf.WriteString(gsiMarker)
		buf.WriteString(e.indexName)
	}
	buf.WriteByte(keySeparator)
	return buf.Bytes()
}

// encodePartitionPrefix returns the prefix shared by every key of a partition.
func (e *badgerKeyEncoder) encodePartitionPrefix(partitionKey any) ([]byte, error) {
	buf := bytes.NewBuffer(e.tablePrefix())
	pkBytes, err := encodeKeyValue(partitionKey, e.keyDefs.PartitionKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("encode partition key: %w", err)
	}
	buf.Write(pkBytes)
	buf.WriteByte(keySeparator)
	return buf.Bytes(), nil
}

// encodeKey encodes an index key. For GSIs, doc supplies the table key
// suffix.
func (e *badgerKeyEncoder) encodeKey(pk table.PrimaryKey, doc map[string]any) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	prefix, err := e.encodePartitionPrefix(pk.Values.PartitionKey)
	if err != nil {
		return nil, err
	}
	buf.Write(prefix)

	if pk.Definition.SortKey.Name != "" {
		skBytes, err := encodeKeyValue(pk.Values.SortKey, pk.Definition.SortKey.Kind)
		if err != nil {
			return nil, fmt.Errorf("encode sort key: %w", err)
		}
		buf.Write(skBytes)
	}

	if e.indexName == "" {
		return buf.Bytes(), nil
	}

	tpk, err := e.tableKeys.ExtractPrimaryKey(doc)
	if err != nil {
		return nil, fmt.Errorf("extract table key: %w", err)
	}
	for _, part := range []struct {
		value any
		kind  table.KeyKind
	}{
		{tpk.Values.PartitionKey, e.tableKeys.PartitionKey.Kind},
		{tpk.Values.SortKey, e.tableKeys.SortKey.Kind},
	} {
		if part.kind == "" {
			continue
		}
		b, err := encodeKeyValue(part.value, part.kind)
		if err != nil {
			return nil, fmt.Errorf("encode table key: %w", err)
		}
		buf.WriteByte(keySeparator)
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// decodeSortKey returns the sort key component of a key inside a partition.
func decodeSortKey(fullKey, partitionPrefix []byte) (any, error) {
	rest := fullKey[len(partitionPrefix):]
	if i := bytes.IndexByte(rest, keySeparator); i >= 0 {
		rest = rest[:i]
	}
	return decodeKeyValue(rest)
}

// encodeKeyValue encodes a key value with proper ordering based on key kind.
func encodeKeyValue(value any, kind table.KeyKind) ([]byte, error) {
	var buf bytes.Buffer

	switch kind {
	case table.KeyKindS:
		buf.WriteByte(keyTypeString)
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for S key, got %T", value)
		}
		// Escape null bytes in strings to preserve separator integrity
		buf.Write(escapeBytes([]byte(s)))

	case table.KeyKindN:
		buf.WriteByte(keyTypeNumber)
		f, ok := asFloat(value)
		if !ok {
			s, isStr := value.(string)
			if !isStr {
				return nil, fmt.Errorf("expected number for N key, got %T", value)
			}
			var err error
			if f, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("parse number %q: %w", s, err)
			}
		}
		// The 0x00 inside the big-endian float is escaped like any other byte.
		buf.Write(escapeBytes(encodeNumber(f)))

	case table.KeyKindB:
		buf.WriteByte(keyTypeBinary)
		var b []byte
		switch v := value.(type) {
		case []byte:
			b = v
		case string:
			b = []byte(v)
		default:
			return nil, fmt.Errorf("expected binary for B key, got %T", value)
		}
		buf.Write(escapeBytes(b))

	default:
		return nil, fmt.Errorf("unsupported key kind: %s", kind)
	}

	return buf.Bytes(), nil
}

func decodeKeyValue(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty key component")
	}
	value := unescapeBytes(b[1:])
	switch b[0] {
	case keyTypeString:
		return string(value), nil
	case keyTypeNumber:
		return decodeNumber(value)
	case keyTypeBinary:
		return value, nil
	default:
		return nil, fmt.Errorf("unknown key type: %c", b[0])
	}
}

// encodeNumber encodes a number for lexicographic ordering.
// Format: [sign byte][big-endian float64 bits]
// Positive numbers: 0x80 + bits with the sign bit flipped
// Negative numbers: 0x7F + all bits inverted
func encodeNumber(f float64) []byte {
	bits := math.Float64bits(f)
	buf := make([]byte, 9)

	if f >= 0 {
		buf[0] = 0x80
		bits ^= (1 << 63)
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}

	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf
}

func decodeNumber(encoded []byte) (float64, error) {
	if len(encoded) != 9 {
		return 0, fmt.Errorf("invalid encoded number length: %d", len(encoded))
	}

	bits := binary.BigEndian.Uint64(encoded[1:])
	if encoded[0] == 0x80 {
		bits ^= (1 << 63)
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}

// escapeBytes escapes null bytes (0x00) in the input to preserve separator integrity.
// Uses 0x01 0x01 for literal 0x00, and 0x01 0x02 for literal 0x01.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

// unescapeBytes reverses the escaping done by escapeBytes.
func unescapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < len(b); i++ {
		if b[i] == 0x01 && i+1 < len(b) {
			switch b[i+1] {
			case 0x01:
				buf.WriteByte(0x00)
				i++
			case 0x02:
				buf.WriteByte(0x01)
				i++
			default:
				buf.WriteByte(b[i])
			}
		} else {
			buf.WriteByte(b[i])
		}
	}
	return buf.Bytes()
}

// Item serialization for BadgerDB values.

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ddbstore: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// Items are documents keyed by attribute name; nested maps decode
		// the same way.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("ddbstore: CBOR decoder initialization failed: " + err.Error())
	}
}

// serializeItem serializes an item to bytes for storage.
func serializeItem(item map[string]any) ([]byte, error) {
	b, err := encMode.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return b, nil
}

// deserializeItem deserializes bytes back to an item.
func deserializeItem(data []byte) (map[string]any, error) {
	var item map[string]any
	if err := decMode.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return item, nil
}
