package model

import "github.com/surrealdb/surrealml/pkg/errors"

// EstimatorState は前処理器の学習状態を表す
type EstimatorState int

const (
	// NotFitted は未学習の状態
	NotFitted EstimatorState = iota
	// Fitted は学習済みの状態
	Fitted
)

// BaseEstimator は学習状態を持つ型に埋め込む構造体
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted は学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted は学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset は初期状態に戻す
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}

// RequireFitted は未学習の場合に BadRequest を返す
func (e *BaseEstimator) RequireFitted(op string) error {
	if !e.IsFitted() {
		return errors.NewBadRequest(op, "estimator is not fitted yet")
	}
	return nil
}
