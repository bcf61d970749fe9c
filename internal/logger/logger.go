package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log は、アプリケーション全体で共有するロガーです。出力先は標準エラー出力 (診断用ストリーム) です。
var Log = logrus.New()

type (
	Entry  = logrus.Entry
	Fields = logrus.Fields
)

func init() {
	Init(false)
}

// Init はロガーを初期化します。verbose が true の場合はデバッグレベルまで出力します。
func Init(verbose bool) {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	Log.SetOutput(os.Stderr)

	if verbose {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput は出力先を差し替えます。テストで出力を捕捉するために使います。
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// ForSource は、取得元の名前を source フィールドに持つエントリを返します。
func ForSource(name string) *Entry {
	return Log.WithField("source", name)
}
