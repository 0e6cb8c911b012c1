// Package errors は surml コンテナ全体のエラーハンドリングと警告システムを提供します。
// すべての失敗は Status (NotFound / BadRequest / Unknown など) で分類され、
// cockroachdb/errors によってスタックトレースが付与されます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("surml-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// DataConversionWarning などの警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nil を渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// DataConversionWarning は推論結果などの型が暗黙的に変換された場合に発生する警告です。
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// ===========================================================================
//
//	ステータス付きエラー型
//
// ===========================================================================

// Status はエラーの分類です。
type Status int

const (
	// Unknown は分類できない失敗、推論エンジン内部の失敗です。
	Unknown Status = iota
	// NotFound は列、ハンドル、ファイルなどが存在しない場合です。
	NotFound
	// BadRequest は入力が不正な形式の場合です。
	BadRequest
	// Conflict は予約済みです。
	Conflict
	// Forbidden は予約済みです。
	Forbidden
	// Unauthorized は予約済みです。
	Unauthorized
)

func (s Status) String() string {
	switch s {
	case NotFound:
		return "not_found"
	case BadRequest:
		return "bad_request"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// SurrealError はライブラリが返す唯一の構造化エラーです。
type SurrealError struct {
	Status  Status
	Op      string
	Message string
	Err     error
}

func (e *SurrealError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("surml: %s: %s: %s: %v", e.Op, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("surml: %s: %s: %s", e.Op, e.Status, e.Message)
}

func (e *SurrealError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SurrealError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("status", e.Status.String()).
		Str("message", e.Message).
		Str("type", "SurrealError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

func newStatusError(status Status, op, message string, err error) error {
	return errors.WithStackDepth(&SurrealError{Status: status, Op: op, Message: message, Err: err}, 2)
}

// NewNotFound は NotFound エラーを作成し、スタックトレースを付与します。
func NewNotFound(op, format string, args ...interface{}) error {
	return newStatusError(NotFound, op, fmt.Sprintf(format, args...), nil)
}

// NewBadRequest は BadRequest エラーを作成し、スタックトレースを付与します。
func NewBadRequest(op, format string, args ...interface{}) error {
	return newStatusError(BadRequest, op, fmt.Sprintf(format, args...), nil)
}

// NewUnknown は Unknown エラーを作成します。err は原因として保持されます。
func NewUnknown(op, message string, err error) error {
	return newStatusError(Unknown, op, message, err)
}

// Classify は既存のエラーに Status を付けてラップします。
// err が nil の場合は nil を返します。
func Classify(status Status, op, message string, err error) error {
	if err == nil {
		return nil
	}
	return newStatusError(status, op, message, err)
}

// StatusOf はエラーチェーンから Status を取り出します。
// 分類されていないエラーは Unknown です。
func StatusOf(err error) Status {
	var se *SurrealError
	if errors.As(err, &se) {
		return se.Status
	}
	var ni *NumericalInstabilityError
	if errors.As(err, &ni) {
		return BadRequest
	}
	return Unknown
}

// IsNotFound は err が NotFound に分類されるかどうかを返します。
func IsNotFound(err error) bool {
	return err != nil && StatusOf(err) == NotFound
}

// IsBadRequest は err が BadRequest に分類されるかどうかを返します。
func IsBadRequest(err error) bool {
	return err != nil && StatusOf(err) == BadRequest
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	数値計算のエラー型
//
// ===========================================================================

// NumericalInstabilityError は正規化パラメータや推論結果に NaN や Inf が含まれる場合のエラーです。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "StandardScaler.Fit"）
	Values    []float64 // 問題のある値
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("surml: numerical instability detected in %s. Values: [%s]", e.Operation, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values})
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
