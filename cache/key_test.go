package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFingerprintDeterministic 测试参数顺序不影响键值
func TestFingerprintDeterministic(t *testing.T) {
	a, err := Fingerprint("pubPackage", map[string]any{
		"packageName": "http",
		"version":     "1.2.0",
		"nested":      map[string]any{"b": 2, "a": 1},
	})
	require.NoError(t, err)

	b, err := Fingerprint("pubPackage", map[string]any{
		"nested":      map[string]any{"a": 1, "b": 2},
		"version":     "1.2.0",
		"packageName": "http",
	})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

// TestFingerprintDistinct 测试不同参数产生不同键
func TestFingerprintDistinct(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 500; i++ {
		params := map[string]any{
			"packageName": fmt.Sprintf("pkg-%d", i),
			"index":       i,
		}
		key, err := Fingerprint("pubPackage", params)
		require.NoError(t, err)

		prev, dup := seen[key]
		require.False(t, dup, "collision between %v and %s", params, prev)
		seen[key] = fmt.Sprintf("%v", params)
	}
}

// TestFingerprintCategoryPrefix 测试不同类别的键互不冲突
func TestFingerprintCategoryPrefix(t *testing.T) {
	params := map[string]any{"packageName": "http"}

	a, err := Fingerprint("pubPackage", params)
	require.NoError(t, err)
	b, err := Fingerprint("flutterDocs", params)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "pubPackage:")
	assert.Contains(t, b, "flutterDocs:")
}

// TestFingerprintNilParams 测试空参数
func TestFingerprintNilParams(t *testing.T) {
	a, err := Fingerprint("widgetAnalysis", nil)
	require.NoError(t, err)
	b, err := Fingerprint("widgetAnalysis", nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = Fingerprint("", nil)
	assert.Error(t, err)
}
