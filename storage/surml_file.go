// Package storage は .surml コンテナの読み書きを提供します。
//
// コンテナのバイト列は次の形式です:
//
//	[4 バイトのビッグエンディアン uint32 L][L バイトのヘッダー][モデルバイト (EOF まで)]
//
// モデルバイトは解釈されず、そのまま推論エンジンに渡されます。
package storage

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
	"github.com/surrealdb/surrealml/storage/header"
)

const lengthPrefixSize = 4

// SurMlFile はヘッダーとモデルバイトの組です。
type SurMlFile struct {
	Header *header.Header
	Model  []byte
}

// New は既存のヘッダーとモデルバイトからコンテナを作成します。
func New(h *header.Header, model []byte) *SurMlFile {
	if h == nil {
		h = header.Fresh()
	}
	return &SurMlFile{Header: h, Model: model}
}

// Fresh は空のヘッダーを持つコンテナを作成します。
func Fresh(model []byte) *SurMlFile {
	return New(header.Fresh(), model)
}

// FromBytes はコンテナのバイト列をデコードします。
//
// パラメータ:
//   - data: ToBytes が出力したバイト列
//
// 戻り値:
//   - *SurMlFile: デコードされたコンテナ
//   - error: 4 バイト未満、ヘッダー長不足、ヘッダーのデコード失敗はいずれも BadRequest
func FromBytes(data []byte) (*SurMlFile, error) {
	return FromReader(bytes.NewReader(data))
}

// FromReader は r から EOF までを 1 つのコンテナとして読み込みます。
func FromReader(r io.Reader) (*SurMlFile, error) {
	const op = "SurMlFile.FromReader"

	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, readError(op, "reading header length", err)
	}
	length := binary.BigEndian.Uint32(prefix[:])

	// 壊れた長さで巨大なバッファを確保しないよう、実際に読めた分だけ保持する
	headerBytes, err := io.ReadAll(io.LimitReader(r, int64(length)))
	if err != nil {
		return nil, errors.NewUnknown(op, "reading header", err)
	}
	if uint32(len(headerBytes)) < length {
		return nil, errors.NewBadRequest(op, "container is truncated: header declares %d bytes, %d available", length, len(headerBytes))
	}
	h, err := header.FromBytes(headerBytes)
	if err != nil {
		return nil, errors.Classify(errors.BadRequest, op, "decoding header", err)
	}

	model, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewUnknown(op, "reading model bytes", err)
	}

	log.GetLogger().Debug("container decoded",
		log.HeaderBytesKey, length,
		log.ModelBytesKey, len(model),
	)
	return &SurMlFile{Header: h, Model: model}, nil
}

func readError(op, message string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Classify(errors.BadRequest, op, message+": container is truncated", err)
	}
	return errors.NewUnknown(op, message, err)
}

// FromFile はファイルからコンテナを読み込みます。ファイルが存在しない場合は NotFound です。
func FromFile(path string) (*SurMlFile, error) {
	const op = "SurMlFile.FromFile"
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Classify(errors.NotFound, op, "opening "+path, err)
		}
		return nil, errors.NewUnknown(op, "opening "+path, err)
	}
	defer f.Close()

	file, err := FromReader(f)
	if err != nil {
		return nil, err
	}
	log.GetLogger().Info("container loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.ModelNameKey, file.Header.Name.String(),
		"size", humanize.Bytes(uint64(len(file.Model))),
	)
	return file, nil
}

// ToBytes はコンテナをバイト列にエンコードします。
func (f *SurMlFile) ToBytes() []byte {
	var buf bytes.Buffer
	// bytes.Buffer への書き込みは失敗しない
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo は長さ、ヘッダー、モデルの順に w へ書き込みます。
func (f *SurMlFile) WriteTo(w io.Writer) (int64, error) {
	const op = "SurMlFile.WriteTo"
	length, headerBytes := f.Header.ToBytes()

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(length))

	var total int64
	for _, chunk := range [][]byte{prefix[:], headerBytes, f.Model} {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, errors.NewUnknown(op, "writing container", err)
		}
	}
	return total, nil
}

// Write はコンテナを path に書き込みます。既存のファイルは上書きされます。
func (f *SurMlFile) Write(path string) error {
	const op = "SurMlFile.Write"
	out, err := os.Create(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Classify(errors.NotFound, op, "creating "+path, err)
		}
		return errors.NewUnknown(op, "creating "+path, err)
	}
	n, err := f.WriteTo(out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errors.NewUnknown(op, "closing "+path, cerr)
	}
	if err != nil {
		return err
	}
	log.GetLogger().Info("container written",
		log.OperationKey, log.OperationSave,
		log.PathKey, path,
		"size", humanize.Bytes(uint64(n)),
	)
	return nil
}
