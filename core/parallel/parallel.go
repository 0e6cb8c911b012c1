// Package parallel は行単位の処理を CPU コア数に応じて分割実行します。
package parallel

import (
	"runtime"
	"sync"
)

// Workers は items 件を処理するワーカー数を返す。コア数と items の小さい方。
func Workers(items int) int {
	n := runtime.NumCPU()
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Parallelize は [0, items) を連続した範囲に分割し、各範囲で fn を並列に実行する。
// fn は互いに重ならない [start, end) を受け取るため、範囲ごとの書き込みに排他は不要。
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	workers := Workers(items)
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := min(start+chunk, items)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold は items が threshold 以下なら逐次実行する
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}
