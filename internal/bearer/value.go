package bearer

import (
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Kind classifies a raw header value once so callers dispatch on it instead of re-probing shapes.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindStringArray
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStringArray:
		return "string_array"
	case KindStructured:
		return "structured"
	default:
		return "none"
	}
}

// maxDepth bounds nesting such as {"value": ["..."]} or a json.Marshaler returning an object.
const maxDepth = 4

// Value is the tagged form of a raw header value.
type Value struct {
	Kind Kind
	// Str is set for KindString.
	Str string
	// List is set for KindStringArray. Entries are already coerced to strings.
	List []string
	// Fields is set for KindStructured.
	Fields map[string]any
}

// Classify converts a raw header value into a Value. Accepted shapes: string, []string,
// []any, iter.Seq[string], iter.Seq[any], map[string]any or map[string]string objects,
// json.Marshaler, and numeric or boolean scalars (coerced to string).
func Classify(raw any) Value {
	return classify(raw, 0)
}

func classify(raw any, depth int) Value {
	if depth > maxDepth {
		return Value{}
	}
	switch v := raw.(type) {
	case nil:
		return Value{}
	case string:
		return Value{Kind: KindString, Str: v}
	case []string:
		return Value{Kind: KindStringArray, List: v}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, classify(e, depth+1).First())
		}
		return Value{Kind: KindStringArray, List: out}
	case iter.Seq[string]:
		var out []string
		for s := range v {
			out = append(out, s)
		}
		return Value{Kind: KindStringArray, List: out}
	case iter.Seq[any]:
		var out []string
		for e := range v {
			out = append(out, classify(e, depth+1).First())
		}
		return Value{Kind: KindStringArray, List: out}
	case map[string]any:
		return Value{Kind: KindStructured, Fields: v}
	case map[string]string:
		fields := make(map[string]any, len(v))
		for k, s := range v {
			fields[k] = s
		}
		return Value{Kind: KindStructured, Fields: fields}
	case bool:
		return Value{Kind: KindString, Str: strconv.FormatBool(v)}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Value{Kind: KindString, Str: fmt.Sprint(v)}
	case float32:
		return Value{Kind: KindString, Str: strconv.FormatFloat(float64(v), 'f', -1, 32)}
	case float64:
		return Value{Kind: KindString, Str: strconv.FormatFloat(v, 'f', -1, 64)}
	case json.Number:
		return Value{Kind: KindString, Str: v.String()}
	case json.Marshaler:
		b, err := v.MarshalJSON()
		if err != nil {
			return Value{}
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			return Value{}
		}
		return classify(decoded, depth+1)
	case fmt.Stringer:
		return Value{Kind: KindString, Str: v.String()}
	default:
		return Value{}
	}
}

// First returns the normalized single header value: the string itself, the first non-empty
// array entry, or for objects the "value" field, else the array-like "0", "1", ... entries.
func (v Value) First() string {
	return v.first(0)
}

func (v Value) first(depth int) string {
	switch v.Kind {
	case KindString:
		return strings.TrimSpace(v.Str)
	case KindStringArray:
		for _, s := range v.List {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
		return ""
	case KindStructured:
		if depth >= maxDepth {
			return ""
		}
		if inner, ok := v.Fields["value"]; ok {
			return classify(inner, depth+1).first(depth + 1)
		}
		for i := 0; ; i++ {
			inner, ok := v.Fields[strconv.Itoa(i)]
			if !ok {
				return ""
			}
			if s := classify(inner, depth+1).first(depth + 1); s != "" {
				return s
			}
		}
	default:
		return ""
	}
}

// Normalize classifies raw and returns its normalized single string value.
func Normalize(raw any) string {
	return Classify(raw).First()
}
