package codespace

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLiveFieldClassification(t *testing.T) {
	require.True(t, IsLiveField(FieldCode))
	require.False(t, IsLiveField(FieldName))
	require.False(t, IsLiveField(FieldCreatedBy))
	require.False(t, IsLiveField(FieldCreatedAt))
	require.Equal(t, []string{FieldCode}, LiveFieldNames())
}

func TestTmpCodespace_CodeStates(t *testing.T) {
	empty := ""
	tc := NewTmpCodespace("", &empty)
	require.Equal(t, "", tc.Code())

	tc = NewTmpCodespace("", nil)
	require.NotEmpty(t, tc.Code())
	require.Equal(t, DefaultCode, tc.Code())

	val := "x = 42"
	tc = NewTmpCodespace("", &val)
	require.Equal(t, "x = 42", tc.Code())

	tc.SetCode("")
	require.Equal(t, "", tc.Code())
}

func TestTmpCodespace_UUIDPrefix(t *testing.T) {
	tc := NewTmpCodespace("", nil)
	require.True(t, strings.HasPrefix(tc.UUID, TmpPrefix))

	tc = NewTmpCodespace("tmp-fixed", nil)
	require.Equal(t, "tmp-fixed", tc.UUID)
}

func TestNewUUID_Format(t *testing.T) {
	re := regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-4[a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		u := NewUUID()
		require.Regexp(t, re, u)
		require.False(t, seen[u], "duplicate uuid generated")
		seen[u] = true
	}
}
