package scanner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineSourceYieldsCodes(t *testing.T) {
	src := NewLineSource(strings.NewReader("8901030974328\n\n  8901233020977  \n"))

	var codes []string
	err := src.Run(context.Background(), func(code string) {
		codes = append(codes, code)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"8901030974328", "8901233020977"}, codes)
}

func TestLineSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewLineSource(strings.NewReader("123\n456\n"))
	err := src.Run(ctx, func(code string) {
		t.Fatalf("unexpected code after cancel: %s", code)
	})

	assert.ErrorIs(t, err, context.Canceled)
}
