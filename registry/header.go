package registry

import (
	"github.com/surrealdb/surrealml/storage"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

// AddName sets the model name.
func (r *Registry) AddName(id, name string) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddName(name) })
}

// AddDescription sets the model description.
func (r *Registry) AddDescription(id, description string) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddDescription(description) })
}

// AddVersion は "x.y.z" 形式のバージョンを設定します。
func (r *Registry) AddVersion(id, version string) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddVersion(version) })
}

// IncrementVersion bumps the patch component with carry.
func (r *Registry) IncrementVersion(id string) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.IncrementVersion() })
}

// AddColumn は入力列を末尾に追加します。
func (r *Registry) AddColumn(id, column string) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddColumn(column) })
}

// AddAuthor sets the author.
func (r *Registry) AddAuthor(id, author string) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddAuthor(author) })
}

// AddOrigin は "local" または "surreal_db" を設定します。
func (r *Registry) AddOrigin(id, origin string) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddOrigin(origin) })
}

// AddEngine は "native" または "pytorch" を設定します。
func (r *Registry) AddEngine(id, engine string) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddEngine(engine) })
}

// AddInputDims sets the declared input shape.
func (r *Registry) AddInputDims(id string, rows, cols int32) error {
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddInputDims(rows, cols) })
}

// AddOutput は出力名と逆正規化ルールを設定します。label が空の場合はルールなしです。
func (r *Registry) AddOutput(id, name, label string, one, two float32) error {
	var n normalisers.Normaliser
	if label != "" {
		var err error
		if n, err = normalisers.New(label, one, two); err != nil {
			return err
		}
	}
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddOutput(name, n) })
}

// AddNormaliser は列に正規化ルールを登録します。
func (r *Registry) AddNormaliser(id, column, label string, one, two float32) error {
	n, err := normalisers.New(label, one, two)
	if err != nil {
		return err
	}
	return r.Update(id, func(f *storage.SurMlFile) error { return f.Header.AddNormaliser(column, n) })
}
