package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("move task: %w", Conflict("Column '%s' at WIP limit", "In Progress"))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, IsConflict(err))
	assert.False(t, IsValidation(err))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Column 'In Progress' at WIP limit", Message(err))
}

func TestExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", Validation("bad"), ExitValidation},
		{"not found", NotFound("missing"), ExitNotFound},
		{"conflict", Conflict("stale"), ExitConflict},
		{"internal", errors.New("disk on fire"), ExitGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestInternalErrorsKeepTheirText(t *testing.T) {
	err := errors.New("connection refused")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "connection refused", Message(err))
	assert.Equal(t, "internal", KindOf(err).String())
}
