package cartstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jogardn/panda-lite/internal/cart"
)

// FileStore keeps the cart in a single JSON file, replaced on every save.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(context.Context) (cart.Cart, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return cart.Cart{}, false, nil
	}
	if err != nil {
		return cart.Cart{}, false, fmt.Errorf("failed to read cart file: %w", err)
	}
	c, err := cart.Decode(data)
	if err != nil {
		return cart.Cart{}, false, err
	}
	return c, true, nil
}

func (s *FileStore) Save(_ context.Context, c cart.Cart) error {
	data, err := cart.Encode(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cart directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cart file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cart file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cart file: %w", err)
	}
	return nil
}
