// Package storage provides filesystem-backed artifact storage for the
// generator. Operations are namespaced strings so the build pipeline stays
// decoupled from where artifacts land.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thelyad/postpress/pkg/storage"
)

// Operation names accepted by the filesystem provider.
const (
	OpEnsureDir = "generator.ensure_dir"
	OpWrite     = "generator.write"
	OpRead      = "generator.read"
	OpRemove    = "generator.remove"
)

// NewFilesystem returns a storage.Provider that writes artifacts beneath root.
// The base argument should match the generator output dir so duplicated
// prefixes in artifact paths are trimmed.
func NewFilesystem(root, base string) storage.Provider {
	base = filepath.ToSlash(filepath.Clean(base))
	if base == "." {
		base = ""
	}
	return &filesystemStorage{root: root, base: base}
}

type filesystemStorage struct {
	root string
	base string
}

func (s *filesystemStorage) Query(_ context.Context, op string, args ...any) (storage.Rows, error) {
	if op != OpRead || len(args) == 0 {
		return nil, nil
	}
	target := s.normalizePath(args[0])
	data, err := os.ReadFile(s.abs(target))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fileRows{data: data}, nil
}

func (s *filesystemStorage) Exec(_ context.Context, op string, args ...any) (storage.Result, error) {
	switch op {
	case OpEnsureDir:
		if len(args) == 0 {
			return emptyResult{}, fmt.Errorf("ensure_dir requires path")
		}
		path := s.normalizePath(args[0])
		return emptyResult{}, os.MkdirAll(s.abs(path), 0o755)
	case OpWrite:
		if len(args) < 2 {
			return emptyResult{}, fmt.Errorf("write requires path and reader")
		}
		path := s.normalizePath(args[0])
		reader, ok := args[1].(io.Reader)
		if !ok || reader == nil {
			return emptyResult{}, fmt.Errorf("write expects io.Reader content")
		}
		full := s.abs(path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return emptyResult{}, err
		}
		file, err := os.Create(full)
		if err != nil {
			return emptyResult{}, err
		}
		defer file.Close()
		if _, err := io.Copy(file, reader); err != nil {
			return emptyResult{}, err
		}
		return emptyResult{}, nil
	case OpRemove:
		if len(args) == 0 {
			return emptyResult{}, fmt.Errorf("remove requires path")
		}
		path := s.normalizePath(args[0])
		err := os.RemoveAll(s.abs(path))
		if errors.Is(err, os.ErrNotExist) {
			return emptyResult{}, nil
		}
		return emptyResult{}, err
	default:
		return emptyResult{}, fmt.Errorf("unsupported storage operation %q", op)
	}
}

func (s *filesystemStorage) abs(rel string) string {
	if rel == "" {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *filesystemStorage) normalizePath(arg any) string {
	path, _ := arg.(string)
	path = filepath.ToSlash(filepath.Clean(path))
	if s.base != "" && strings.HasPrefix(path, s.base) {
		path = strings.TrimPrefix(path, s.base)
		path = strings.TrimPrefix(path, "/")
	}
	return path
}

type emptyResult struct{}

func (emptyResult) RowsAffected() (int64, error) { return 0, nil }

type fileRows struct {
	data []byte
	read bool
}

func (r *fileRows) Next() bool {
	if r.read {
		return false
	}
	r.read = true
	return true
}

func (r *fileRows) Scan(dest ...any) error {
	if len(dest) == 0 {
		return fmt.Errorf("scan requires destination")
	}
	bytesDest, ok := dest[0].(*[]byte)
	if !ok {
		return fmt.Errorf("unsupported scan destination %T", dest[0])
	}
	*bytesDest = append((*bytesDest)[:0], r.data...)
	return nil
}

func (r *fileRows) Close() error {
	return nil
}
