package xlog

import (
	"go.uber.org/zap/zapcore"
)

func newConsoleEncoderConfig(lvlEnc zapcore.LevelEncoder, tsEnc zapcore.TimeEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		EncodeLevel:   lvlEnc,
		TimeKey:       "ts",
		EncodeTime:    tsEnc,
		CallerKey:     "callAt",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   "fn",
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
}

// newConsoleCore writes to stdout, or the in-memory writer under tests.
func newConsoleCore(
	lvlEnabler zapcore.LevelEnabler,
	encoder logEncoderType,
	writer logOutWriterType,
	lvlEnc zapcore.LevelEncoder,
	tsEnc zapcore.TimeEncoder,
) zapcore.Core {
	enc := getEncoderByType(encoder)
	return zapcore.NewCore(
		enc(newConsoleEncoderConfig(lvlEnc, tsEnc)),
		getOutWriterByType(writer),
		lvlEnabler,
	)
}
