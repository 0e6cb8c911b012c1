// Package registry は呼び出し側が所有するコンテナのハンドル表を提供します。
//
// コンテナは UUID v4 の文字列ハンドルで参照されます。言語バインディングや CLI は
// ハンドルだけを保持し、ヘッダーの編集や推論はすべて Registry を経由して行います。
//
// 使用例:
//
//	reg := registry.New(onnx.NewEngine())
//	id, _ := reg.LoadRaw("linear.onnx")
//	_ = reg.AddColumn(id, "squarefoot")
//	_ = reg.AddColumn(id, "num_floors")
//	out, _ := reg.BufferedCompute(ctx, id, map[string]float32{"squarefoot": 1000, "num_floors": 2})
//	_ = reg.Save("linear.surml", id)
package registry

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/surrealdb/surrealml/execution"
	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
	"github.com/surrealdb/surrealml/storage"
)

// Registry はハンドルからコンテナへの対応表です。
// 変更操作は 1 度に 1 つだけ実行され、推論は読み取りロックの下で並行に実行されます。
type Registry struct {
	engine execution.Engine
	cache  *storage.FileCache
	logger log.Logger

	mu    sync.RWMutex
	files map[string]*storage.SurMlFile
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l log.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithFileCache は Stash と Restore が使うキャッシュディレクトリを設定します。
func WithFileCache(c *storage.FileCache) Option {
	return func(r *Registry) {
		r.cache = c
	}
}

// New は engine で推論する空の Registry を作成します。
// engine が nil の場合、推論操作は BadRequest を返します。
func New(engine execution.Engine, opts ...Option) *Registry {
	r := &Registry{
		engine: engine,
		files:  make(map[string]*storage.SurMlFile),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLogger()
	}
	if r.cache == nil {
		r.cache = storage.NewFileCache()
	}
	r.logger = r.logger.With(log.ComponentKey, "registry")
	return r
}

// Insert はコンテナを登録し、新しいハンドルを返します。
func (r *Registry) Insert(file *storage.SurMlFile) (string, error) {
	if file == nil || file.Header == nil {
		return "", errors.NewBadRequest("Registry.Insert", "container is required")
	}
	id := uuid.NewString()

	r.mu.Lock()
	r.files[id] = file
	r.mu.Unlock()
	return id, nil
}

// Get returns the container behind id.
func (r *Registry) Get(id string) (*storage.SurMlFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup("Registry.Get", id)
}

// Update は id のコンテナに対して fn を実行します。ロックは fn の実行中だけ保持されます。
// fn がエラーを返した場合、そのエラーがそのまま返ります。
func (r *Registry) Update(id string, fn func(*storage.SurMlFile) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.lookup("Registry.Update", id)
	if err != nil {
		return err
	}
	return fn(file)
}

// Remove はコンテナを登録解除して返します。
func (r *Registry) Remove(id string) (*storage.SurMlFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.lookup("Registry.Remove", id)
	if err != nil {
		return nil, err
	}
	delete(r.files, id)
	return file, nil
}

// Delete unregisters id without returning the container.
func (r *Registry) Delete(id string) error {
	_, err := r.Remove(id)
	return err
}

// Len returns the number of registered containers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// Load は .surml ファイルを読み込んで登録します。
func (r *Registry) Load(path string) (string, error) {
	file, err := storage.FromFile(path)
	if err != nil {
		return "", err
	}
	id, err := r.Insert(file)
	if err != nil {
		return "", err
	}
	r.logger.Info("container loaded",
		log.OperationKey, log.OperationLoad,
		log.ContainerIDKey, id,
		log.PathKey, path,
	)
	return id, nil
}

// LoadRaw は生のモデルファイル (ONNX など) を空のヘッダーで包んで登録します。
func (r *Registry) LoadRaw(path string) (string, error) {
	const op = "Registry.LoadRaw"
	model, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound(op, "model file %s does not exist", path)
		}
		return "", errors.NewUnknown(op, "reading "+path, err)
	}
	return r.Insert(storage.Fresh(model))
}

// LoadBytes はエンコード済みのコンテナを登録します。
func (r *Registry) LoadBytes(data []byte) (string, error) {
	file, err := storage.FromBytes(data)
	if err != nil {
		return "", err
	}
	return r.Insert(file)
}

// Save はコンテナを path に書き込み、成功した場合にのみ登録を解除します。
func (r *Registry) Save(path, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.lookup("Registry.Save", id)
	if err != nil {
		return err
	}
	if err := file.Write(path); err != nil {
		return err
	}
	delete(r.files, id)

	r.logger.Info("container saved",
		log.OperationKey, log.OperationSave,
		log.ContainerIDKey, id,
		log.PathKey, path,
	)
	return nil
}

// ToBytes encodes the container behind id.
func (r *Registry) ToBytes(id string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.lookup("Registry.ToBytes", id)
	if err != nil {
		return nil, err
	}
	return file.ToBytes(), nil
}

// Stash はコンテナをファイルキャッシュに id 名で書き込みます。登録は残ります。
func (r *Registry) Stash(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.lookup("Registry.Stash", id)
	if err != nil {
		return err
	}
	return r.cache.Save(file, id)
}

// Restore はファイルキャッシュから id のコンテナを読み込み、同じハンドルで登録します。
func (r *Registry) Restore(id string) error {
	file, err := r.cache.Get(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.files[id] = file
	r.mu.Unlock()
	return nil
}

// Computation は id のコンテナに束縛された ModelComputation を返します。
// 返り値はレジストリのロックの外で使われるため、並行して Update しないでください。
func (r *Registry) Computation(id string, opts ...execution.Option) (*execution.ModelComputation, error) {
	const op = "Registry.Computation"
	file, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return r.computation(op, id, file, opts...)
}

// RawCompute は正規化せずに id のモデルを実行します。
func (r *Registry) RawCompute(ctx context.Context, id string, input []float32, dims []int) ([]float32, error) {
	const op = "Registry.RawCompute"
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.lookup(op, id)
	if err != nil {
		return nil, err
	}
	comp, err := r.computation(op, id, file)
	if err != nil {
		return nil, err
	}
	return comp.RawCompute(ctx, input, dims)
}

// BufferedCompute はヘッダーの正規化ルールを適用して id のモデルを実行します。
// values はその場で正規化されます。
func (r *Registry) BufferedCompute(ctx context.Context, id string, values map[string]float32) ([]float32, error) {
	const op = "Registry.BufferedCompute"
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.lookup(op, id)
	if err != nil {
		return nil, err
	}
	comp, err := r.computation(op, id, file)
	if err != nil {
		return nil, err
	}
	return comp.BufferedCompute(ctx, values)
}

func (r *Registry) computation(op, id string, file *storage.SurMlFile, opts ...execution.Option) (*execution.ModelComputation, error) {
	if r.engine == nil {
		return nil, errors.NewBadRequest(op, "registry has no engine")
	}
	opts = append([]execution.Option{execution.WithLogger(r.logger.With(log.ContainerIDKey, id))}, opts...)
	return execution.New(file, r.engine, opts...)
}

// lookup は呼び出し側がロックを保持している前提です。
func (r *Registry) lookup(op, id string) (*storage.SurMlFile, error) {
	file, ok := r.files[id]
	if !ok {
		return nil, errors.NewNotFound(op, "container %s is not loaded", id)
	}
	return file, nil
}
