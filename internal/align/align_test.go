package align

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestUp(t *testing.T) {
	require.Equal(t, 0, Up(0, 16))
	require.Equal(t, 16, Up(1, 16))
	require.Equal(t, 16, Up(16, 16))
	require.Equal(t, 48, Up(33, 16))
	require.Equal(t, 7, Up(7, 1))
	require.Equal(t, 7, Up(7, 0))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, CheckPow2(256, "alignment"))
	require.NoError(t, CheckPow2(uint(1), "alignment"))

	err := CheckPow2(24, "alignment")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotPowerOfTwo))
	require.Contains(t, err.Error(), "alignment is 24")

	require.Error(t, CheckPow2(0, "alignment"))
}
