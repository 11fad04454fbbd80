package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/engine/save"
)

// File keeps one JSON document per slot in a directory.
type File struct {
	dir string
}

// NewFile returns a file store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(slot string) string {
	return filepath.Join(f.dir, slot+".json")
}

// Put writes the snapshot atomically through a temp file.
func (f *File) Put(_ context.Context, slot string, b save.Bundle) (Entry, error) {
	entry, data, err := encode(slot, b)
	if err != nil {
		return Entry{}, err
	}
	path := f.path(slot)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Entry{}, fmt.Errorf("replace snapshot: %w", err)
	}
	return entry, nil
}

func (f *File) Get(_ context.Context, slot string) (*save.Bundle, error) {
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("slot %s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return save.Load(data)
}

func (f *File) List(_ context.Context) ([]Entry, error) {
	files, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	var out []Entry
	for _, de := range files {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slot := strings.TrimSuffix(name, ".json")
		if checkSlot(slot) != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		e, err := entryOf(slot, data)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (f *File) Delete(_ context.Context, slot string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	err := os.Remove(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("slot %s: %w", slot, ErrNotFound)
	}
	return err
}

func (f *File) Close() error { return nil }

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SavedAt.Equal(entries[j].SavedAt) {
			return entries[i].Slot < entries[j].Slot
		}
		return entries[i].SavedAt.After(entries[j].SavedAt)
	})
}
