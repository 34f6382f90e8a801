package clj

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// maxMsgSize bounds a single frame so a corrupt length cannot exhaust memory.
const maxMsgSize = 64 << 20

var msgCounter uint64

// NextID returns a process-unique request id.
func NextID() string {
	n := atomic.AddUint64(&msgCounter, 1)
	return fmt.Sprintf("r%d", n)
}

// WriteMsg writes msg as a uint32 big-endian length followed by JSON.
func WriteMsg(w io.Writer, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ReadMsg reads one frame written by WriteMsg. A clean close before the
// length prefix returns io.EOF.
func ReadMsg(r io.Reader) (map[string]any, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read length: %w", err)
	}
	if length > maxMsgSize {
		return nil, fmt.Errorf("message of %d bytes exceeds limit", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return msg, nil
}

// ValueToGo converts a Value to a native Go value for JSON serialization.
// Keywords become ":name" strings, symbols "sym:name"; map keys lose their
// colon. Callables and environments cannot be serialized.
func ValueToGo(v Value) (any, error) {
	switch v.Kind {
	case ValNil:
		return nil, nil
	case ValBool:
		return v.Bool, nil
	case ValInt:
		return v.Int, nil
	case ValFloat:
		return v.Float, nil
	case ValString:
		return v.Str, nil
	case ValKeyword:
		return ":" + v.Str, nil
	case ValSymbol:
		return "sym:" + v.Str, nil
	case ValList, ValVector:
		elems := v.Elems()
		arr := make([]any, len(elems))
		for i, e := range elems {
			j, err := ValueToGo(e)
			if err != nil {
				return nil, err
			}
			arr[i] = j
		}
		return arr, nil
	case ValMap:
		obj := make(map[string]any, v.Map.Len())
		var err error
		v.Map.Range(func(k, val Value) bool {
			var j any
			if j, err = ValueToGo(val); err != nil {
				return false
			}
			obj[mapKeyString(k)] = j
			return true
		})
		if err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("cannot serialize %s to JSON", v.KindName())
	}
}

func mapKeyString(k Value) string {
	switch k.Kind {
	case ValKeyword, ValString, ValSymbol:
		return k.Str
	default:
		return k.String()
	}
}

// GoToValue converts a decoded JSON value to a Value. Arrays become Vectors
// and object keys become Keywords.
func GoToValue(v any) Value {
	switch val := v.(type) {
	case nil:
		return NilVal()
	case bool:
		return BoolVal(val)
	case int:
		return IntVal(int64(val))
	case int64:
		return IntVal(val)
	case float64:
		if val == float64(int64(val)) && val >= -1<<53 && val <= 1<<53 {
			return IntVal(int64(val))
		}
		return FloatVal(val)
	case string:
		if strings.HasPrefix(val, "sym:") && len(val) > 4 {
			return SymbolVal(val[4:])
		}
		if len(val) > 1 && val[0] == ':' {
			return KeywordVal(val[1:])
		}
		return StringVal(val)
	case []any:
		elems := make([]Value, len(val))
		for i, e := range val {
			elems[i] = GoToValue(e)
		}
		return VectorVal(elems)
	case map[string]any:
		kvs := make([]Value, 0, 2*len(val))
		for k, e := range val {
			kvs = append(kvs, KeywordVal(k), GoToValue(e))
		}
		m, _ := NewMap(kvs...)
		return m
	default:
		return StringVal(fmt.Sprint(val))
	}
}
