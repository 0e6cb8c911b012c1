package linear

// Option は LinearRegression を設定する関数です。
type Option func(*LinearRegression)

// WithParallelThreshold は Predict を行ごとに並列化する行数の閾値を設定します。
func WithParallelThreshold(rows int) Option {
	return func(lr *LinearRegression) {
		lr.parallelThreshold = rows
	}
}
