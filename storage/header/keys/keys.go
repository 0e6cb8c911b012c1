// Package keys はモデル入力列の順序付きレジストリ (KeyBindings) を提供します。
// 列の登録順がそのまま入力ベクトル内の位置になります。
package keys

import (
	"strings"

	"github.com/surrealdb/surrealml/pkg/errors"
)

// Separator joins column names in the header text.
const Separator = "=>"

// reserved are the delimiters of the header text format. Values containing
// them cannot be stored without corrupting the framing.
var reserved = []string{"//=>", "=>", "//"}

// ValidateToken は value が予約済みの区切り文字を含んでいないかを検証します。
func ValidateToken(op, field, value string) error {
	for _, d := range reserved {
		if strings.Contains(value, d) {
			return errors.NewBadRequest(op, "%s %q contains reserved delimiter %q", field, value, d)
		}
	}
	return nil
}

// KeyBindings は列名とその入力ベクトル内の位置を保持します。
// Store と Reference は常に互いの逆写像です。
type KeyBindings struct {
	Store     []string
	Reference map[string]int
}

// Fresh は空の KeyBindings を返します。
func Fresh() *KeyBindings {
	return &KeyBindings{
		Store:     []string{},
		Reference: make(map[string]int),
	}
}

// AddColumn は列を末尾に追加し、次のインデックスを割り当てます。
// 空の名前、区切り文字を含む名前、重複した名前は BadRequest です。
func (k *KeyBindings) AddColumn(name string) error {
	const op = "KeyBindings.AddColumn"
	if name == "" {
		return errors.NewBadRequest(op, "column name is empty")
	}
	if err := ValidateToken(op, "column", name); err != nil {
		return err
	}
	if _, exists := k.Reference[name]; exists {
		return errors.NewBadRequest(op, "column %q is already bound", name)
	}
	k.Reference[name] = len(k.Store)
	k.Store = append(k.Store, name)
	return nil
}

// Index returns the position of name in the input vector.
func (k *KeyBindings) Index(name string) (int, bool) {
	i, ok := k.Reference[name]
	return i, ok
}

// Len returns the number of bound columns.
func (k *KeyBindings) Len() int {
	return len(k.Store)
}

// Columns returns a copy of the column names in input order.
func (k *KeyBindings) Columns() []string {
	out := make([]string, len(k.Store))
	copy(out, k.Store)
	return out
}

// String は "a=>b=>c" 形式にエンコードします。
func (k *KeyBindings) String() string {
	return strings.Join(k.Store, Separator)
}

// FromString は "a=>b=>c" 形式をデコードします。空文字列は空の KeyBindings になります。
func FromString(data string) (*KeyBindings, error) {
	kb := Fresh()
	if data == "" {
		return kb, nil
	}
	for _, name := range strings.Split(data, Separator) {
		if err := kb.AddColumn(name); err != nil {
			return nil, errors.Classify(errors.BadRequest, "KeyBindings.FromString", "decoding key bindings", err)
		}
	}
	return kb, nil
}
