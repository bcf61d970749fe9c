package source

import (
	"errors"
	"fmt"
)

// ErrNoItemsFound は、一覧の取得と期間での絞り込みの結果、候補が1件も残らなかったことを示します。
// 取得元の内部で致命的になる唯一の条件です。
var ErrNoItemsFound = errors.New("記事が見つかりませんでした")

// NoItemsFoundError は、どの取得元で何が見つからなかったかを保持する ErrNoItemsFound です。
type NoItemsFoundError struct {
	Source string
	Reason string
}

func (e *NoItemsFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

// Is は errors.Is(err, ErrNoItemsFound) を満たします。
func (e *NoItemsFoundError) Is(target error) bool {
	return target == ErrNoItemsFound
}
