package execution

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/surrealdb/surrealml/core/parallel"
	"github.com/surrealdb/surrealml/metrics"
	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
)

// rowParallelThreshold 以下の行数では正規化を逐次処理します。
const rowParallelThreshold = 256

// Predict は PredictContext を context.Background で実行します。
func (c *ModelComputation) Predict(X mat.Matrix) (mat.Matrix, error) {
	return c.PredictContext(context.Background(), X)
}

// PredictContext は X の各行を 1 サンプルとして推論します。
//
// X の列は KeyBindings の順序に従う必要があります。各行は列の正規化ルールで
// 正規化され、行ごとに RawCompute が実行され、出力の逆正規化ルールが適用されます。
//
// 戻り値:
//   - mat.Matrix: (n_samples, n_outputs) の予測行列
//   - error: 列数の不一致や空の入力は BadRequest、エンジンの失敗は Unknown
func (c *ModelComputation) PredictContext(ctx context.Context, X mat.Matrix) (mat.Matrix, error) {
	const op = "ModelComputation.Predict"

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewBadRequest(op, "%v", errors.ErrEmptyData)
	}
	h := c.file.Header
	if h.Keys.Len() > 0 && cols != h.Keys.Len() {
		return nil, errors.NewBadRequest(op, "expected %d feature columns, got %d", h.Keys.Len(), cols)
	}

	inputs := make([][]float32, rows)
	parallel.ParallelizeWithThreshold(rows, rowParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := make([]float32, cols)
			for j := 0; j < cols; j++ {
				v := float32(X.At(i, j))
				if n := h.Normalisers.ByIndex(j); n != nil {
					v = n.Normalise(v)
				}
				row[j] = v
			}
			inputs[i] = row
		}
	})

	var result *mat.Dense
	for i, row := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewUnknown(op, "prediction cancelled", err)
		}
		output, err := c.RawCompute(ctx, row, nil)
		if err != nil {
			return nil, err
		}
		if result == nil {
			if len(output) == 0 {
				return nil, errors.NewUnknown(op, "engine returned an empty output", nil)
			}
			result = mat.NewDense(rows, len(output), nil)
		}
		_, width := result.Dims()
		if len(output) != width {
			return nil, errors.NewUnknown(op, "inconsistent output width across rows", nil)
		}
		for j, v := range output {
			if h.Output.Normaliser != nil {
				v = h.Output.Normaliser.InverseNormalise(v)
			}
			result.Set(i, j, float64(v))
		}
	}

	c.logger.Info("batch prediction",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	return result, nil
}

// Score は Predict(X) と y の決定係数 R² を返します。
// モデルの出力と y はいずれも 1 列である必要があります。
func (c *ModelComputation) Score(X, y mat.Matrix) (float64, error) {
	const op = "ModelComputation.Score"

	rows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if yRows != rows || yCols != 1 {
		return 0, errors.NewBadRequest(op, "y must be a %dx1 column, got %dx%d", rows, yRows, yCols)
	}

	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	if _, pCols := pred.Dims(); pCols != 1 {
		return 0, errors.NewBadRequest(op, "model produces %d outputs per row, score needs 1", pCols)
	}

	score, err := metrics.R2ScoreMatrix(y, pred)
	if err != nil {
		return 0, err
	}
	c.logger.Info("score",
		log.OperationKey, log.OperationScore,
		log.SamplesKey, rows,
		log.R2ScoreKey, score,
	)
	return score, nil
}
