package canonhash

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FromAny converts a generic Go value -- the kind of tree a builder
// assembles with map[string]any / []any / string / bool / nil / integers,
// or a tree produced by Parse -- into a Value. It fails closed with
// CodeFloatForbidden on any float32/float64 or non-integral json.Number,
// with CodeNonStringKey on any non-string-keyed map, and with
// CodeSerializeFailed on any other unsupported Go type.
func FromAny(v any) (Value, error) {
	return fromAny(v, "$")
}

func fromAny(v any, path string) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return Str(t), nil
	case json.Number:
		i, err := numberToInt64(t)
		if err != nil {
			return Value{}, newErr(CodeFloatForbidden, path, err.Error())
		}
		return Int(i), nil
	case float32, float64:
		return Value{}, newErr(CodeFloatForbidden, path, fmt.Sprintf("native float value %v is forbidden", t))
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(int64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		if t > 1<<63-1 {
			return Value{}, newErr(CodeSerializeFailed, path, "uint64 value overflows int64")
		}
		return Int(int64(t)), nil
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			ev, err := fromAny(e, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			out[i] = ev
		}
		return Value{kind: KindArray, arr: out}, nil
	case []Value:
		return Arr(t...), nil
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := fromAny(e, path+"."+k)
			if err != nil {
				return Value{}, err
			}
			out[k] = ev
		}
		return Value{kind: KindObject, obj: out}, nil
	case map[string]Value:
		return Obj(t), nil
	case Value:
		return t, nil
	default:
		return reflectFromAny(v, path)
	}
}

// reflectFromAny handles map types with non-`any` value types (e.g.
// map[string]string) and is the last resort before SERIALIZE_FAILED.
func reflectFromAny(v any, path string) (Value, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, newErr(CodeNonStringKey, path, fmt.Sprintf("map key type %s is not string", rv.Type().Key()))
		}
		out := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			ev, err := fromAny(iter.Value().Interface(), path+"."+k)
			if err != nil {
				return Value{}, err
			}
			out[k] = ev
		}
		return Value{kind: KindObject, obj: out}, nil
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make([]Value, n)
		for i := 0; i < n; i++ {
			ev, err := fromAny(rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			out[i] = ev
		}
		return Value{kind: KindArray, arr: out}, nil
	default:
		return Value{}, newErr(CodeSerializeFailed, path, fmt.Sprintf("unsupported type %T", v))
	}
}

// numberToInt64 accepts only integral, non-scientific-notation JSON number
// literals, matching the kernel's universal float ban.
func numberToInt64(n json.Number) (int64, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return 0, fmt.Errorf("numeric literal %q is not an integer (float/scientific notation forbidden)", s)
	}
	return strconv.ParseInt(s, 10, 64)
}
