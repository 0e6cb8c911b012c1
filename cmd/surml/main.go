// Command surml は .surml コンテナを作成して確認し、推論や保存にも使う CLI です。
//
//	surml pack --model linear.onnx --out linear.surml --columns squarefoot,num_floors
//	surml convert --sklearn model.json --columns squarefoot,num_floors --output price --out linear.surml
//	surml inspect --file linear.surml
//	surml compute --file linear.surml --input squarefoot=1000,num_floors=2
//	surml bump --file linear.surml
//	surml store put --store sqlite --db-path surml.db --id house --file linear.surml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/surrealdb/surrealml/execution/onnx"
	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
	"github.com/surrealdb/surrealml/registry"
	"github.com/surrealdb/surrealml/storage"
	"github.com/surrealdb/surrealml/storage/header"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

const logLevelEnv = "SURML_LOG_LEVEL"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "inspect":
		return runInspect(args[1:], stdout)
	case "pack":
		return runPack(args[1:], stdout)
	case "convert":
		return runConvert(args[1:], stdout)
	case "compute":
		return runCompute(ctx, args[1:], stdout)
	case "bump":
		return runBump(args[1:], stdout)
	case "store":
		return runStore(ctx, args[1:], stdout)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// newFlagSet は --log-level を共通で持つ FlagSet を作成する
func newFlagSet(name string) (*flag.FlagSet, func() error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	level := fs.String("log-level", os.Getenv(logLevelEnv), "log level: debug|info|warn|error (env "+logLevelEnv+")")
	return fs, func() error {
		if *level == "" {
			return nil
		}
		if _, err := log.ParseLevel(*level); err != nil {
			return err
		}
		log.SetupLoggerTo(os.Stderr, *level)
		return nil
	}
}

func parse(fs *flag.FlagSet, setup func() error, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	return setup()
}

func runPack(args []string, stdout io.Writer) error {
	fs, setup := newFlagSet("pack")
	modelPath := fs.String("model", "", "raw model file (onnx)")
	outPath := fs.String("out", "", "destination .surml path")
	hf := addHeaderFlags(fs)
	if err := parse(fs, setup, args); err != nil {
		return err
	}
	if *modelPath == "" || *outPath == "" {
		return usageError("pack requires --model and --out")
	}

	reg := registry.New(nil)
	id, err := reg.LoadRaw(*modelPath)
	if err != nil {
		return err
	}

	err = reg.Update(id, func(f *storage.SurMlFile) error {
		for _, column := range splitList(hf.columns) {
			if err := f.Header.AddColumn(column); err != nil {
				return err
			}
		}
		return hf.apply(f.Header)
	})
	if err != nil {
		return err
	}

	if err := reg.Save(*outPath, id); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "packed %s -> %s\n", *modelPath, *outPath)
	return nil
}

// headerFlags は pack と convert が共有するヘッダー設定のフラグ
type headerFlags struct {
	columns          string
	name             string
	version          string
	description      string
	author           string
	origin           string
	engine           string
	inputDims        string
	output           string
	outputNormaliser string
	normalisers      []string
}

func addHeaderFlags(fs *flag.FlagSet) *headerFlags {
	hf := &headerFlags{}
	fs.StringVar(&hf.columns, "columns", "", "comma separated input columns in vector order")
	fs.StringVar(&hf.name, "name", "", "model name")
	fs.StringVar(&hf.version, "version", "", "model version x.y.z")
	fs.StringVar(&hf.description, "description", "", "model description")
	fs.StringVar(&hf.author, "author", "", "model author")
	fs.StringVar(&hf.origin, "origin", "", "model origin: local|surreal_db")
	fs.StringVar(&hf.engine, "engine", "", "engine label: native|pytorch")
	fs.StringVar(&hf.inputDims, "input-dims", "", "input shape rows,cols")
	fs.StringVar(&hf.output, "output", "", "output name")
	fs.StringVar(&hf.outputNormaliser, "output-normaliser", "", "output normaliser, e.g. z_score(100,10)")
	fs.Func("normaliser", "column normaliser col=>label(a,b), repeatable", func(v string) error {
		hf.normalisers = append(hf.normalisers, v)
		return nil
	})
	return hf
}

// apply は列以外の設定をヘッダーに書き込む。列は呼び出し側で先に登録しておく
func (hf *headerFlags) apply(h *header.Header) error {
	for _, fragment := range hf.normalisers {
		n, column, err := normalisers.FromString(fragment)
		if err != nil {
			return err
		}
		if err := h.AddNormaliser(column, n); err != nil {
			return err
		}
	}
	if hf.output != "" || hf.outputNormaliser != "" {
		var n normalisers.Normaliser
		if hf.outputNormaliser != "" {
			parsed, _, err := normalisers.FromString("output=>" + hf.outputNormaliser)
			if err != nil {
				return err
			}
			n = parsed
		}
		if err := h.AddOutput(hf.output, n); err != nil {
			return err
		}
	}
	if hf.inputDims != "" {
		dims, err := header.InputDimsFromString(hf.inputDims)
		if err != nil {
			return err
		}
		if err := h.AddInputDims(dims.Dims[0], dims.Dims[1]); err != nil {
			return err
		}
	}

	steps := []struct {
		value string
		apply func(string) error
	}{
		{hf.name, h.AddName},
		{hf.version, h.AddVersion},
		{hf.description, h.AddDescription},
		{hf.author, h.AddAuthor},
		{hf.origin, h.AddOrigin},
		{hf.engine, h.AddEngine},
	}
	for _, step := range steps {
		if step.value == "" {
			continue
		}
		if err := step.apply(step.value); err != nil {
			return err
		}
	}
	return nil
}

func runCompute(ctx context.Context, args []string, stdout io.Writer) error {
	fs, setup := newFlagSet("compute")
	path := fs.String("file", "", ".surml container")
	input := fs.String("input", "", "named inputs col=value,... (buffered compute)")
	raw := fs.String("raw", "", "raw input vector v1,v2,... (no normalisation)")
	dims := fs.String("dims", "", "raw input shape d1,d2,...")
	if err := parse(fs, setup, args); err != nil {
		return err
	}
	if *path == "" || (*input == "") == (*raw == "") {
		return usageError("compute requires --file and exactly one of --input or --raw")
	}

	reg := registry.New(onnx.NewEngine())
	id, err := reg.Load(*path)
	if err != nil {
		return err
	}

	var out []float32
	if *input != "" {
		values, err := parseNamedValues(*input)
		if err != nil {
			return err
		}
		out, err = reg.BufferedCompute(ctx, id, values)
		if err != nil {
			return err
		}
	} else {
		vector, err := parseFloats(*raw)
		if err != nil {
			return err
		}
		shape, err := parseInts(*dims)
		if err != nil {
			return err
		}
		out, err = reg.RawCompute(ctx, id, vector, shape)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(stdout, formatFloats(out))
	return nil
}

func runBump(args []string, stdout io.Writer) error {
	fs, setup := newFlagSet("bump")
	path := fs.String("file", "", ".surml container to update in place")
	if err := parse(fs, setup, args); err != nil {
		return err
	}
	if *path == "" {
		return usageError("bump requires --file")
	}

	file, err := storage.FromFile(*path)
	if err != nil {
		return err
	}
	if err := file.Header.IncrementVersion(); err != nil {
		return err
	}
	if err := file.Write(*path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "version %s\n", file.Header.Version.String())
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseNamedValues(s string) (map[string]float32, error) {
	values := make(map[string]float32)
	for _, pair := range splitList(s) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.NewBadRequest("cli.parseNamedValues", "expected col=value, got %q", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
		if err != nil {
			return nil, errors.NewBadRequest("cli.parseNamedValues", "value for %s is not a number: %q", key, value)
		}
		values[strings.TrimSpace(key)] = float32(v)
	}
	return values, nil
}

func parseFloats(s string) ([]float32, error) {
	var out []float32
	for _, part := range splitList(s) {
		v, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, errors.NewBadRequest("cli.parseFloats", "not a number: %q", part)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.NewBadRequest("cli.parseInts", "not an integer: %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatFloats(values []float32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ", ")
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: surml <inspect|pack|convert|compute|bump|store> [flags]", msg)
}
