package main

import (
	"fmt"
	"io"

	"github.com/surrealdb/surrealml/linear"
)

// runConvert は scikit-learn の線形モデル JSON を ONNX の .surml に変換する
func runConvert(args []string, stdout io.Writer) error {
	fs, setup := newFlagSet("convert")
	sklearnPath := fs.String("sklearn", "", "LinearRegression exported as sklearn json")
	outPath := fs.String("out", "", "destination .surml path")
	hf := addHeaderFlags(fs)
	if err := parse(fs, setup, args); err != nil {
		return err
	}
	columns := splitList(hf.columns)
	if *sklearnPath == "" || *outPath == "" || len(columns) == 0 {
		return usageError("convert requires --sklearn, --columns and --out")
	}

	lr := linear.NewLinearRegression()
	if err := lr.LoadFromSKLearn(*sklearnPath); err != nil {
		return err
	}
	file, err := lr.Pack(columns, "")
	if err != nil {
		return err
	}
	if err := hf.apply(file.Header); err != nil {
		return err
	}
	if err := file.Write(*outPath); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "converted %s -> %s\n", lr, *outPath)
	return nil
}
