package badger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"elbiefit/infrastructure/persistence/abstractions"
)

const keySeparator = "\x00"

func encodeKey(key abstractions.Key) []byte {
	return []byte(key.PK + keySeparator + key.SK)
}

func encodePrefix(pk, skPrefix string) []byte {
	return []byte(pk + keySeparator + skPrefix)
}

// jsonValue is the DynamoDB JSON shape of one attribute value
type jsonValue struct {
	S    *string              `json:"S,omitempty"`
	N    *string              `json:"N,omitempty"`
	B    []byte               `json:"B,omitempty"`
	BOOL *bool                `json:"BOOL,omitempty"`
	NULL bool                 `json:"NULL,omitempty"`
	SS   []string             `json:"SS,omitempty"`
	NS   []string             `json:"NS,omitempty"`
	BS   [][]byte             `json:"BS,omitempty"`
	L    []jsonValue          `json:"L,omitempty"`
	M    map[string]jsonValue `json:"M,omitempty"`

	// empty L and M would otherwise be dropped by omitempty
	EmptyL bool `json:"EL,omitempty"`
	EmptyM bool `json:"EM,omitempty"`
}

func encodeItem(item abstractions.Item) ([]byte, error) {
	out := make(map[string]jsonValue, len(item))
	for name, av := range item {
		v, err := toJSON(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out[name] = v
	}
	return json.Marshal(out)
}

func decodeItem(data []byte) (abstractions.Item, error) {
	var raw map[string]jsonValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	item := make(abstractions.Item, len(raw))
	for name, v := range raw {
		item[name] = fromJSON(v)
	}
	return item, nil
}

func toJSON(av types.AttributeValue) (jsonValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return jsonValue{S: &v.Value}, nil
	case *types.AttributeValueMemberN:
		return jsonValue{N: &v.Value}, nil
	case *types.AttributeValueMemberB:
		return jsonValue{B: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return jsonValue{BOOL: &v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return jsonValue{NULL: true}, nil
	case *types.AttributeValueMemberSS:
		return jsonValue{SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return jsonValue{NS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return jsonValue{BS: v.Value}, nil
	case *types.AttributeValueMemberL:
		if len(v.Value) == 0 {
			return jsonValue{EmptyL: true}, nil
		}
		list := make([]jsonValue, len(v.Value))
		for i, elem := range v.Value {
			jv, err := toJSON(elem)
			if err != nil {
				return jsonValue{}, err
			}
			list[i] = jv
		}
		return jsonValue{L: list}, nil
	case *types.AttributeValueMemberM:
		if len(v.Value) == 0 {
			return jsonValue{EmptyM: true}, nil
		}
		m := make(map[string]jsonValue, len(v.Value))
		for k, elem := range v.Value {
			jv, err := toJSON(elem)
			if err != nil {
				return jsonValue{}, err
			}
			m[k] = jv
		}
		return jsonValue{M: m}, nil
	default:
		return jsonValue{}, fmt.Errorf("unsupported attribute value %T", av)
	}
}

func fromJSON(v jsonValue) types.AttributeValue {
	switch {
	case v.S != nil:
		return &types.AttributeValueMemberS{Value: *v.S}
	case v.N != nil:
		return &types.AttributeValueMemberN{Value: *v.N}
	case v.B != nil:
		return &types.AttributeValueMemberB{Value: v.B}
	case v.BOOL != nil:
		return &types.AttributeValueMemberBOOL{Value: *v.BOOL}
	case v.SS != nil:
		return &types.AttributeValueMemberSS{Value: v.SS}
	case v.NS != nil:
		return &types.AttributeValueMemberNS{Value: v.NS}
	case v.BS != nil:
		return &types.AttributeValueMemberBS{Value: v.BS}
	case v.L != nil || v.EmptyL:
		list := make([]types.AttributeValue, len(v.L))
		for i, elem := range v.L {
			list[i] = fromJSON(elem)
		}
		return &types.AttributeValueMemberL{Value: list}
	case v.M != nil || v.EmptyM:
		m := make(map[string]types.AttributeValue, len(v.M))
		for k, elem := range v.M {
			m[k] = fromJSON(elem)
		}
		return &types.AttributeValueMemberM{Value: m}
	default:
		return &types.AttributeValueMemberNULL{Value: true}
	}
}

// setPath writes value at a dotted document path. Every parent on the path
// must already exist as a map.
func setPath(item abstractions.Item, path string, value types.AttributeValue) error {
	parts := strings.Split(path, ".")
	target, err := parentMap(item, parts)
	if err != nil {
		return err
	}
	target[parts[len(parts)-1]] = value
	return nil
}

func removePath(item abstractions.Item, path string) error {
	parts := strings.Split(path, ".")
	target, err := parentMap(item, parts)
	if err != nil {
		return err
	}
	delete(target, parts[len(parts)-1])
	return nil
}

func parentMap(item abstractions.Item, parts []string) (map[string]types.AttributeValue, error) {
	current := map[string]types.AttributeValue(item)
	for i, part := range parts[:len(parts)-1] {
		m, ok := current[part].(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("document path %s is not a map", strings.Join(parts[:i+1], "."))
		}
		if m.Value == nil {
			m.Value = map[string]types.AttributeValue{}
		}
		current = m.Value
	}
	return current, nil
}
