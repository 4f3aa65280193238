package budget

import (
	"encoding/json"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

var (
	_ msgpack.CustomEncoder = (*Value)(nil)
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// Kind 值的种类
type Kind int

const (
	// KindScalar 标量：字符串、数字、布尔或 null
	KindScalar Kind = iota

	// KindSequence 序列
	KindSequence

	// KindMapping 映射
	KindMapping
)

// Value 递归的 JSON 风格值，标量/序列/映射三选一。
// 截断器对 Value 操作，避免对任意 interface{} 做反射分支。
type Value struct {
	kind   Kind
	scalar any
	seq    []*Value
	fields map[string]*Value
}

// Scalar 创建标量值
func Scalar(v any) *Value {
	return &Value{kind: KindScalar, scalar: v}
}

// Sequence 创建序列值
func Sequence(items ...*Value) *Value {
	return &Value{kind: KindSequence, seq: items}
}

// Mapping 创建映射值
func Mapping(fields map[string]*Value) *Value {
	if fields == nil {
		fields = make(map[string]*Value)
	}
	return &Value{kind: KindMapping, fields: fields}
}

// Kind 返回值的种类
func (v *Value) Kind() Kind {
	return v.kind
}

// ScalarValue 返回标量内容，非标量时返回 nil
func (v *Value) ScalarValue() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Items 返回序列元素，非序列时返回 nil
func (v *Value) Items() []*Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// Field 返回映射中的字段
func (v *Value) Field(name string) (*Value, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	f, ok := v.fields[name]
	return f, ok
}

// FieldNames 返回排序后的字段名，保证遍历顺序确定
func (v *Value) FieldNames() []string {
	if v.kind != KindMapping {
		return nil
	}
	names := make([]string, 0, len(v.fields))
	for name := range v.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 序列元素数或映射字段数，标量返回 0
func (v *Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.fields)
	default:
		return 0
	}
}

// FromAny 将 json.Unmarshal 解码出的通用值转换为 Value
func FromAny(raw any) *Value {
	switch t := raw.(type) {
	case map[string]any:
		fields := make(map[string]*Value, len(t))
		for k, item := range t {
			fields[k] = FromAny(item)
		}
		return Mapping(fields)
	case []any:
		items := make([]*Value, 0, len(t))
		for _, item := range t {
			items = append(items, FromAny(item))
		}
		return Sequence(items...)
	default:
		return Scalar(t)
	}
}

// ToAny 还原为通用值结构，便于交给任意序列化器
func (v *Value) ToAny() any {
	switch v.kind {
	case KindMapping:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.ToAny()
		}
		return out
	case KindSequence:
		out := make([]any, 0, len(v.seq))
		for _, item := range v.seq {
			out = append(out, item.ToAny())
		}
		return out
	default:
		return v.scalar
	}
}

// MarshalJSON 实现 json.Marshaler，映射字段按键名排序输出
func (v *Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMapping:
		buf := []byte{'{'}
		for i, name := range v.FieldNames() {
			if i > 0 {
				buf = append(buf, ',')
			}
			key, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(v.fields[name])
			if err != nil {
				return nil, err
			}
			buf = append(buf, key...)
			buf = append(buf, ':')
			buf = append(buf, val...)
		}
		return append(buf, '}'), nil
	case KindSequence:
		items := v.seq
		if items == nil {
			items = []*Value{}
		}
		return json.Marshal(items)
	default:
		return json.Marshal(v.scalar)
	}
}

// UnmarshalJSON 实现 json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return xerrors.Wrap(err, "budget: failed to unmarshal value")
	}
	*v = *FromAny(raw)
	return nil
}

// EncodeMsgpack 实现 msgpack.CustomEncoder，按 ToAny 的展开形式编码，
// 避免未导出字段被编码为空映射
func (v *Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(v.ToAny())
}

// DecodeMsgpack 实现 msgpack.CustomDecoder
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return xerrors.Wrap(err, "budget: failed to decode value")
	}
	*v = *FromAny(raw)
	return nil
}

// render 紧凑文本形式，用于成本估算与降级输出
func (v *Value) render() string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
