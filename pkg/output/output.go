package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// CombinedBaseName は、全取得元を統合した出力のベース名です。
const CombinedBaseName = "combined_sources"

// Paths は書き出したファイルのパスです。
type Paths struct {
	JSON string
	CSV  string
}

// Writer は、レコード列を JSON と CSV の2形式でディレクトリに書き出します。
type Writer struct {
	dir string
}

// NewWriter は Writer を生成します。
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir}
}

// Write は <dir>/<base>.json と <dir>/<base>.csv を書き出します。
// ディレクトリがなければ作成し、各ファイルは一時ファイルに書いてからリネームします。
func (w *Writer) Write(records []types.Record, fields []string, baseName string) (Paths, error) {
	if baseName == "" {
		return Paths{}, fmt.Errorf("output.Write: baseName cannot be empty")
	}
	if len(fields) == 0 {
		fields = types.DefaultFields
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("出力ディレクトリの作成に失敗しました (%s): %w", w.dir, err)
	}

	jsonData, err := EncodeJSON(records, fields)
	if err != nil {
		return Paths{}, err
	}
	csvData, err := EncodeCSV(records, fields)
	if err != nil {
		return Paths{}, err
	}

	paths := Paths{
		JSON: filepath.Join(w.dir, baseName+".json"),
		CSV:  filepath.Join(w.dir, baseName+".csv"),
	}
	if err := writeAtomic(paths.JSON, jsonData); err != nil {
		return Paths{}, err
	}
	if err := writeAtomic(paths.CSV, csvData); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// EncodeJSON は、レコード列を列順どおりのキーを持つオブジェクトの配列として整形します。
// インデントは2スペース、非ASCII文字と HTML 特殊文字はエスケープせず、末尾に改行を付けます。
func EncodeJSON(records []types.Record, fields []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, r := range records {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, field := range fields {
			if j > 0 {
				buf.WriteString(",")
			}
			key, err := marshalString(field)
			if err != nil {
				return nil, err
			}
			value, err := marshalString(r.Field(field))
			if err != nil {
				return nil, err
			}
			buf.WriteString("\n    ")
			buf.Write(key)
			buf.WriteString(": ")
			buf.Write(value)
		}
		if len(fields) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteString("}")
	}
	if len(records) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}

// marshalString は、HTML エスケープなしで文字列を JSON 文字列リテラルにします。
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("JSONエンコードに失敗しました: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeCSV は、ヘッダー行と1レコード1行の CSV を生成します。存在しない列は空になります。
func EncodeCSV(records []types.Record, fields []string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(fields); err != nil {
		return nil, fmt.Errorf("CSVヘッダーの書き込みに失敗しました: %w", err)
	}
	row := make([]string, len(fields))
	for _, r := range records {
		for i, field := range fields {
			row[i] = r.Field(field)
		}
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("CSV行の書き込みに失敗しました: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("CSVの書き込みに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

// writeAtomic は、同じディレクトリの一時ファイルに書き込んでからリネームします。
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました (%s): %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ファイルの書き込みに失敗しました (%s): %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ファイルのクローズに失敗しました (%s): %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("ファイルの権限設定に失敗しました (%s): %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("ファイルのリネームに失敗しました (%s): %w", path, err)
	}
	return nil
}
