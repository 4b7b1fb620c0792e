package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected *zap.SugaredLogger
	}{
		{name: "default", ctx: context.Background(), expected: DefaultLogger()},
		{name: "stored", ctx: WithLogger(context.Background(), zap.NewNop().Sugar())},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got := FromContext(test.ctx)
			if got == nil {
				t.Fatalf("the logger must never be nil")
			}
			if test.expected != nil && got != test.expected {
				t.Errorf("the logger got: %p, expected: %p", got, test.expected)
			}
		})
	}
}

func TestFromContext_Roundtrip(t *testing.T) {
	logger := NewLogger("debug", true)
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Errorf("the stored logger must be returned")
	}
}

func TestLevelToZapLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{level: "debug", expected: zapcore.DebugLevel},
		{level: " INFO ", expected: zapcore.InfoLevel},
		{level: "warning", expected: zapcore.WarnLevel},
		{level: "error", expected: zapcore.ErrorLevel},
		{level: "fatal", expected: zapcore.FatalLevel},
		{level: "unknown", expected: zapcore.InfoLevel},
	}
	for _, test := range tests {
		if got := levelToZapLevel(test.level); got != test.expected {
			t.Errorf("level %q got: %v, expected: %v", test.level, got, test.expected)
		}
	}
}
