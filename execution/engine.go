package execution

import "context"

// Engine はモデルバイトを実行する推論バックエンドです。
//
// モデルバイトはコンテナから解釈されずに渡されます。
// 戻り値の先頭のテンソルが計算結果として扱われます。
type Engine interface {
	Run(ctx context.Context, model []byte, input Tensor) ([]Tensor, error)
}

// InputShaper はモデルが宣言する入力形状を返せるエンジンです。
// 未知の次元は 0 以下で表します。
type InputShaper interface {
	InputShape(model []byte) ([]int, error)
}

// EngineFunc は関数を Engine として扱うアダプタです。
type EngineFunc func(ctx context.Context, model []byte, input Tensor) ([]Tensor, error)

// Run calls f.
func (f EngineFunc) Run(ctx context.Context, model []byte, input Tensor) ([]Tensor, error) {
	return f(ctx, model, input)
}
