package normalisers

import (
	"strings"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header/keys"
)

// Separator joins normaliser fragments in the header text.
const Separator = "//"

// NormaliserMap は KeyBindings のインデックスで引ける正規化ルールの集合です。
// Store, StoreRef は常に同じ長さで、Reference は列インデックスから Store の位置への写像です。
type NormaliserMap struct {
	Store     []Normaliser
	StoreRef  []string
	Reference map[int]int
}

// FreshMap は空の NormaliserMap を返します。
func FreshMap() *NormaliserMap {
	return &NormaliserMap{
		Store:     []Normaliser{},
		StoreRef:  []string{},
		Reference: make(map[int]int),
	}
}

// AddNormaliser は column に正規化ルールを登録します。
// 列が keys に無い場合は NotFound、既にルールがある場合は BadRequest です。
func (m *NormaliserMap) AddNormaliser(n Normaliser, column string, kb *keys.KeyBindings) error {
	const op = "NormaliserMap.AddNormaliser"
	if n == nil {
		return errors.NewBadRequest(op, "normaliser for column %q is nil", column)
	}
	if err := Validate(n); err != nil {
		return err
	}
	index, ok := kb.Index(column)
	if !ok {
		return errors.NewNotFound(op, "column %q is not bound in key bindings", column)
	}
	if _, exists := m.Reference[index]; exists {
		return errors.NewBadRequest(op, "column %q already has a normaliser", column)
	}
	m.Reference[index] = len(m.Store)
	m.Store = append(m.Store, n)
	m.StoreRef = append(m.StoreRef, column)
	return nil
}

// GetNormaliser は column の正規化ルールを返します。
// 列が keys に無い場合は NotFound、ルールが無い場合は (nil, nil) です。
func (m *NormaliserMap) GetNormaliser(column string, kb *keys.KeyBindings) (Normaliser, error) {
	index, ok := kb.Index(column)
	if !ok {
		return nil, errors.NewNotFound("NormaliserMap.GetNormaliser", "column %q is not bound in key bindings", column)
	}
	return m.ByIndex(index), nil
}

// ByIndex returns the normaliser bound to the input position, or nil.
func (m *NormaliserMap) ByIndex(index int) Normaliser {
	storeIndex, ok := m.Reference[index]
	if !ok {
		return nil
	}
	return m.Store[storeIndex]
}

// Len returns the number of registered normalisers.
func (m *NormaliserMap) Len() int {
	return len(m.Store)
}

// String は "a=>linear_scaling(0,1)//b=>clipping(0,1.5)" 形式にエンコードします。
func (m *NormaliserMap) String() string {
	parts := make([]string, len(m.Store))
	for i, n := range m.Store {
		parts[i] = m.StoreRef[i] + keys.Separator + n.String()
	}
	return strings.Join(parts, Separator)
}

// MapFromString は NormaliserMap.String の出力をデコードします。空文字列は空のマップです。
func MapFromString(data string, kb *keys.KeyBindings) (*NormaliserMap, error) {
	m := FreshMap()
	if data == "" {
		return m, nil
	}
	for _, fragment := range strings.Split(data, Separator) {
		n, column, err := FromString(fragment)
		if err != nil {
			return nil, err
		}
		if err := m.AddNormaliser(n, column, kb); err != nil {
			return nil, err
		}
	}
	return m, nil
}
