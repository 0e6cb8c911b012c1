// Package surrealml stores trained models in the .surml container format and runs
// them from Go, designed for backend services that need in-process inference.
//
// A .surml file is a single byte stream:
//
//	[4 byte big endian header length][header text][model bytes]
//
// The header carries the metadata needed to call the model by column name:
// the input column order, a normaliser per column, the output name with its
// inverse normaliser, and descriptive fields such as name, version and author.
//
// # Quick Start
//
// Convert a linear model exported from scikit-learn, pack it, then compute
// with named inputs:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/surrealdb/surrealml/execution/onnx"
//	    "github.com/surrealdb/surrealml/linear"
//	    "github.com/surrealdb/surrealml/registry"
//	)
//
//	func main() {
//	    lr := linear.NewLinearRegression()
//	    if err := lr.LoadFromSKLearn("sklearn_model.json"); err != nil {
//	        log.Fatal(err)
//	    }
//	    file, err := lr.Pack([]string{"x"}, "y")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    reg := registry.New(onnx.NewEngine())
//	    id, err := reg.Insert(file)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    out, err := reg.BufferedCompute(context.Background(), id, map[string]float32{"x": 5})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Prediction:", out)
//	}
//
// # Packages
//
//   - storage: container codec (SurMlFile) and the FileCache
//   - storage/header: header fields and their text codecs
//   - storage/header/keys: input column bindings
//   - storage/header/normalisers: linear_scaling, clipping, log_scaling, z_score
//   - storage/store: persistent container stores (memory, sqlite)
//   - execution: ModelComputation, raw and buffered compute, batch prediction
//   - execution/onnx: ONNX engine backed by born
//   - registry: handle based registry of loaded containers
//   - preprocessing: scalers that fit normalisers from training data
//   - linear: scikit-learn linear models converted to ONNX
//   - metrics: regression metrics (MSE, RMSE, MAE, R²)
//   - core/model, core/parallel: shared interfaces and row parallelism
//   - pkg/errors, pkg/log: status errors and structured logging
//
// The surml command in cmd/surml wraps these packages for the shell.
package surrealml
