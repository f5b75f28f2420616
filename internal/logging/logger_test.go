package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_ValidLevelsAndFormats(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
	}{
		{"json info", "info", "json", zapcore.InfoLevel},
		{"console debug", "debug", "console", zapcore.DebugLevel},
		{"json warn", "warn", "json", zapcore.WarnLevel},
		{"json error", "error", "json", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			require.NoError(t, err)
			require.Equal(t, tt.wantLevel, l.Level())
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("bogus", "json")
	require.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	l, err := New("info", "json")
	require.NoError(t, err)

	require.NoError(t, l.SetLevel("debug"))
	require.Equal(t, zapcore.DebugLevel, l.Level())

	require.Error(t, l.SetLevel("bogus"))
}

func TestWith_AttachesFieldsToChildWithoutAffectingParentLevel(t *testing.T) {
	l, err := New("info", "json")
	require.NoError(t, err)

	child := l.With(zap.String("component", "resolver"))
	require.NotNil(t, child)
	require.Equal(t, l.Level(), child.Level())

	require.NoError(t, l.SetLevel("debug"))
	require.Equal(t, zapcore.DebugLevel, child.Level(), "child shares the parent's atomic level")
}

func TestNop_DiscardsWithoutPanicking(t *testing.T) {
	l := Nop()
	l.Info("this should go nowhere")
	require.NoError(t, l.Sync())
}
