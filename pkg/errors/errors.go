// Package errors は目的関数サブシステム全体のエラー型を提供します。
// 設定エラー、データエラー、数値エラー、同期エラーの4分類に加え、
// レジストリ検索失敗と次元不一致を構造化された型として表現します。
package errors

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	設定エラー
//
// ===========================================================================

// ConfigurationError はハイパーパラメータが範囲外、必須キーの欠落、
// 未対応のマルチターゲット要求など、利用者が修正可能な設定の誤りを表します。
// 行の処理を始める前に検出されます。
type ConfigurationError struct {
	Op     string
	Key    string
	Reason string
	Value  interface{}
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("gbobjective: %s: invalid configuration: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("gbobjective: %s: invalid value for '%s': %s (got: %v)", e.Op, e.Key, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("key", e.Key).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースを付与します。
func NewConfigurationError(op, key, reason string, value interface{}) error {
	return errors.WithStack(&ConfigurationError{Op: op, Key: key, Reason: reason, Value: value})
}

// NotFoundError はレジストリに存在しない名前が要求された場合のエラーです。
// 登録済みの名前一覧を含むため、CLIはそのまま利用者に表示できます。
type NotFoundError struct {
	Kind       string
	Name       string
	Registered []string
}

func (e *NotFoundError) Error() string {
	names := append([]string(nil), e.Registered...)
	sort.Strings(names)
	return fmt.Sprintf("gbobjective: unknown %s '%s'; registered: [%s]", e.Kind, e.Name, strings.Join(names, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", e.Kind).
		Str("name", e.Name).
		Strs("registered", e.Registered).
		Str("type", "NotFoundError")
}

// NewNotFoundError は新しいNotFoundErrorを作成し、スタックトレースを付与します。
func NewNotFoundError(kind, name string, registered []string) error {
	return errors.WithStack(&NotFoundError{Kind: kind, Name: name, Registered: registered})
}

// ===========================================================================
//
//	データエラー
//
// ===========================================================================

// maxReportedRows はエラーメッセージに含める問題行の最大数です。
const maxReportedRows = 10

// DataError はラベルや重みが目的関数の定義域外にある場合のエラーです。
// 問題のある行番号（先頭から最大10件）と総件数を保持します。
type DataError struct {
	Op     string
	Reason string
	Rows   []int
	Total  int
}

func (e *DataError) Error() string {
	rows := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		rows = append(rows, fmt.Sprintf("%d", r))
	}
	suffix := ""
	if e.Total > len(e.Rows) {
		suffix = ", ..."
	}
	return fmt.Sprintf("gbobjective: %s: %s; %d offending row(s): [%s%s]",
		e.Op, e.Reason, e.Total, strings.Join(rows, ", "), suffix)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Ints("rows", e.Rows).
		Int("total", e.Total).
		Str("type", "DataError")
}

// NewDataError は新しいDataErrorを作成します。rowsは昇順である必要はありませんが、
// 先頭のmaxReportedRows件のみ保持されます。
func NewDataError(op, reason string, rows []int) error {
	kept := rows
	if len(kept) > maxReportedRows {
		kept = kept[:maxReportedRows]
	}
	err := &DataError{
		Op:     op,
		Reason: reason,
		Rows:   append([]int(nil), kept...),
		Total:  len(rows),
	}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、葉ではないノードに葉の値を設定しようとした場合など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gbobjective: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	What     string
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("gbobjective: %s: length mismatch for %s. Expected %d, got %d", e.Op, e.What, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("what", e.What).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op, what string, expected, got int) error {
	return errors.WithStack(&DimensionError{Op: op, What: what, Expected: expected, Got: got})
}

// ===========================================================================
//
//	数値エラー
//
// ===========================================================================

// NumericalInstabilityError は有効な入力からNaNやInfが生じた場合のエラーです。
// ヘシアンの下限クリップは意図された安定化であり、このエラーとは区別されます。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "reg:gamma.GetGradient"）
	Values    []float64 // 問題のある値
	Row       int       // 発生した行（不明な場合は-1）
	Target    int       // 発生したターゲット列
	Iteration int       // 発生したイテレーション番号
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
	if e.Row < 0 {
		return fmt.Sprintf("gbobjective: numerical instability detected in %s at iteration %d. Values: [%s]",
			e.Operation, e.Iteration, valStr)
	}
	return fmt.Sprintf("gbobjective: numerical instability detected in %s at iteration %d (row %d, target %d). Values: [%s]",
		e.Operation, e.Iteration, e.Row, e.Target, valStr)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Floats64("values", e.Values).
		Int("row", e.Row).
		Int("target", e.Target).
		Int("iteration", e.Iteration).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError は行情報を持たないNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return NewNumericError(operation, -1, 0, values, iteration)
}

// NewNumericError は行とターゲット列を特定したNumericalInstabilityErrorを作成します。
func NewNumericError(operation string, row, target int, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Row:       row,
		Target:    target,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	分散同期エラー
//
// ===========================================================================

// SynchronizationError はパーティション間の集約が待機時間内に完了しなかった場合のエラーです。
// 現在のラウンドに対して致命的です。
type SynchronizationError struct {
	Op      string
	Rank    int
	Timeout time.Duration
	Err     error
}

func (e *SynchronizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gbobjective: %s: rank %d failed to synchronize within %s: %v", e.Op, e.Rank, e.Timeout, e.Err)
	}
	return fmt.Sprintf("gbobjective: %s: rank %d failed to synchronize within %s", e.Op, e.Rank, e.Timeout)
}

func (e *SynchronizationError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SynchronizationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("rank", e.Rank).
		Dur("timeout", e.Timeout).
		Str("type", "SynchronizationError")
}

// NewSynchronizationError は新しいSynchronizationErrorを作成し、スタックトレースを付与します。
func NewSynchronizationError(op string, rank int, timeout time.Duration, cause error) error {
	return errors.WithStack(&SynchronizationError{Op: op, Rank: rank, Timeout: timeout, Err: cause})
}

// ===========================================================================
//
//	分類判定
//
// ===========================================================================

// IsConfiguration はエラーが設定エラー（レジストリ検索失敗を含む）かどうかを判定します。
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	var nfErr *NotFoundError
	return errors.As(err, &cfgErr) || errors.As(err, &nfErr)
}

// IsNotFound はエラーがレジストリ検索失敗かどうかを判定します。
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}

// IsData はエラーがデータエラーかどうかを判定します。
func IsData(err error) bool {
	var dataErr *DataError
	return errors.As(err, &dataErr)
}

// IsNumeric はエラーが数値エラーかどうかを判定します。
func IsNumeric(err error) bool {
	var numErr *NumericalInstabilityError
	return errors.As(err, &numErr)
}

// IsSynchronization はエラーが同期エラーかどうかを判定します。
func IsSynchronization(err error) bool {
	var syncErr *SynchronizationError
	return errors.As(err, &syncErr)
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
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrNotConfigured はConfigure前に他の操作が呼ばれた場合のエラーです。
	ErrNotConfigured = New("objective is not configured; call Configure first")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrTreeFrozen は凍結済みの木を変更しようとした場合のエラーです。
	ErrTreeFrozen = New("tree is frozen for this round")

	// ErrRoundAborted は他のメンバーのキャンセルで集約ラウンドが中断された場合のエラーです。
	ErrRoundAborted = New("reduction round aborted by another member")
)
