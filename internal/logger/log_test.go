package logger

import (
	"testing"

	"github.com/denismitr/shift/database"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type printerMock struct {
	lines []string
}

func (p *printerMock) Output(_ int, s string) error {
	p.lines = append(p.lines, s)
	return nil
}

func TestBWLogger(t *testing.T) {
	t.Parallel()

	t.Run("it prints everything when enabled", func(t *testing.T) {
		p := &printerMock{}
		lg := NewBWLogger(p, true, true)

		lg.Successf("migrated version %d", 3)
		lg.Debugf("rolling back version %d", 2)
		lg.Error(errors.New("boom"))
		lg.Transition("up", database.NewVersion(2, "rename login"), database.NewVersion(3, "drop flags"))

		require.Len(t, p.lines, 4)
		assert.Equal(t, "Shift: migrated version 3", p.lines[0])
		assert.Equal(t, "Shift debug: rolling back version 2", p.lines[1])
		assert.Equal(t, "Shift error: boom", p.lines[2])
		assert.Equal(t, "Shift up: version [2 rename login] -> [3 drop flags]", p.lines[3])
	})

	t.Run("it hides debug and transitions when disabled", func(t *testing.T) {
		p := &printerMock{}
		lg := NewBWLogger(p, false, false)

		lg.Debugf("hidden")
		lg.Transition("down", database.NewVersion(1, ""), database.Beginning)
		lg.Successf("shown")

		assert.Equal(t, []string{"Shift: shown"}, p.lines)
	})
}

func TestColoredLogger(t *testing.T) {
	t.Parallel()

	p := &printerMock{}
	lg := NewColorLogger(p, true, false)

	lg.Successf("all done")
	lg.Debugf("hidden")
	lg.Transition("down", database.NewVersion(1, ""), database.Beginning)

	require.Len(t, p.lines, 2)
	assert.Contains(t, p.lines[0], "Shift: all done")
	assert.NotEqual(t, "Shift: all done", p.lines[0])
	assert.Contains(t, p.lines[1], "Shift down: version [1] -> [0]")
}
