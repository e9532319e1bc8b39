package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRows(t *testing.T) {
	raw := []any{
		[]any{"Job One", "/jobs/view/1"},
		[]any{"", nil},
	}
	rows, err := toRows(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Job One", "/jobs/view/1"}, {"", ""}}, rows)

	rows, err = toRows(nil, 2)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = toRows("oops", 2)
	assert.Error(t, err)

	_, err = toRows([]any{[]any{"only one"}}, 2)
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	other := errors.New("target closed")
	assert.Equal(t, other, translate(other))
}
