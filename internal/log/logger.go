// Package log はアプリケーション共通のロガーを提供します。
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New は実行モードに応じたロガーを作成します。
func New(mode string) zerolog.Logger {
	return NewWithWriter(os.Stdout, mode)
}

// NewWithWriter は出力先を指定してロガーを作成します。
func NewWithWriter(out io.Writer, mode string) zerolog.Logger {
	release := mode == "release"

	var w io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	level := zerolog.DebugLevel
	if release {
		// 本番はJSONのまま出力する
		w = out
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", "gatehouse").
		Logger()
}
