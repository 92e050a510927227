package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for name, tc := range map[string]struct {
		level    string
		expected zap.AtomicLevel
	}{
		"debug":       {level: "debug", expected: zap.NewAtomicLevelAt(zap.DebugLevel)},
		"upper case":  {level: "WARN", expected: zap.NewAtomicLevelAt(zap.WarnLevel)},
		"unknown":     {level: "loud", expected: zap.NewAtomicLevelAt(zap.InfoLevel)},
		"empty input": {level: "", expected: zap.NewAtomicLevelAt(zap.InfoLevel)},
	} {
		t.Run(name, func(t *testing.T) {
			l, err := New(tc.level)
			require.NoError(t, err)
			require.True(t, l.Core().Enabled(tc.expected.Level()))
			require.False(t, l.Core().Enabled(tc.expected.Level()-1))
		})
	}
}
