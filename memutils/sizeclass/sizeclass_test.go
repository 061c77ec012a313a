package sizeclass_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/shmarena/memutils"
	"github.com/vkngwrapper/shmarena/memutils/sizeclass"
)

func TestDefaultTable(t *testing.T) {
	require.Equal(t, 17, sizeclass.Default.Len())
	require.Equal(t, 82688, sizeclass.Default.Max())

	classes := sizeclass.Default.Classes()
	for i := 1; i < len(classes); i++ {
		require.Less(t, classes[i-1], classes[i])
	}
}

func TestRoundUp(t *testing.T) {
	cases := []struct {
		requested int
		expected  int
	}{
		{requested: 0, expected: 32},
		{requested: 1, expected: 32},
		{requested: 32, expected: 32},
		{requested: 33, expected: 64},
		{requested: 80, expected: 96},
		{requested: 100, expected: 160},
		{requested: 257, expected: 416},
		{requested: 82687, expected: 82688},
		{requested: 82688, expected: 82688},
	}

	for _, c := range cases {
		size, err := sizeclass.Default.RoundUp(c.requested)
		require.NoError(t, err)
		require.Equal(t, c.expected, size, "requested %d", c.requested)
	}
}

func TestRoundUpOversized(t *testing.T) {
	size, err := sizeclass.Default.RoundUp(82689)
	require.Error(t, err)
	require.True(t, errors.Is(err, memutils.ErrOversizedRequest))
	require.Equal(t, 0, size)
	require.NotEmpty(t, errors.GetAllHints(err))
	require.NotEmpty(t, errors.GetAllDetails(err))
}

func TestNewValidation(t *testing.T) {
	_, err := sizeclass.New(nil)
	require.True(t, errors.Is(err, memutils.ErrInvalidSizeClasses))

	_, err = sizeclass.New([]int{32, 0, 64})
	require.True(t, errors.Is(err, memutils.ErrInvalidSizeClasses))

	_, err = sizeclass.New([]int{32, 64, 64})
	require.True(t, errors.Is(err, memutils.ErrInvalidSizeClasses))

	_, err = sizeclass.New([]int{64, 32})
	require.True(t, errors.Is(err, memutils.ErrInvalidSizeClasses))

	require.Panics(t, func() {
		sizeclass.MustNew([]int{-1})
	})
}

func TestNewCopiesInput(t *testing.T) {
	input := []int{32, 64, 128}
	table, err := sizeclass.New(input)
	require.NoError(t, err)

	input[0] = 1000
	require.Equal(t, []int{32, 64, 128}, table.Classes())

	out := table.Classes()
	out[1] = 5
	require.Equal(t, []int{32, 64, 128}, table.Classes())
}

func TestContains(t *testing.T) {
	table := sizeclass.MustNew([]int{32, 64, 96})
	require.True(t, table.Contains(64))
	require.False(t, table.Contains(65))
	require.False(t, table.Contains(128))
	require.False(t, sizeclass.Table{}.Contains(32))
	require.True(t, sizeclass.Table{}.IsZero())
}
