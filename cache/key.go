package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// Fingerprint 由类别与参数派生确定性缓存键。
//
// 参数先被规范化（映射键递归排序），再取规范 JSON 的 SHA-256，
// 因此参数顺序不影响键值。格式：<category>:<16位十六进制>。
func Fingerprint(category string, params map[string]any) (string, error) {
	if category == "" {
		return "", xerrors.New("cache: category is empty")
	}

	canonical, err := canonicalize(params)
	if err != nil {
		return "", xerrors.Wrap(err, "cache: failed to canonicalize params")
	}

	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("%s:%s", category, hex.EncodeToString(sum[:8])), nil
}

// canonicalize 生成参数的确定性 JSON 表示，映射键按字典序排序
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}
