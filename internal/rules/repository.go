package rules

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
)

// Repository loads the declared rule set from its backing store.
type Repository interface {
	Load(ctx context.Context) (Definitions, error)
}

// Writer replaces the stored rule set as a whole. Used by rule imports.
type Writer interface {
	Replace(ctx context.Context, defs Definitions) error
}

// FileRepository reads a YAML or JSON rule file. The file is read on every
// Load so edits are picked up by the reloader.
type FileRepository struct {
	path string
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) Load(ctx context.Context) (Definitions, error) {
	if err := ctx.Err(); err != nil {
		return Definitions{}, err
	}

	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return Definitions{}, fmt.Errorf("failed to read rules file %s: %w", r.path, err)
	}

	var defs Definitions
	if err := v.Unmarshal(&defs); err != nil {
		return Definitions{}, fmt.Errorf("failed to decode rules file %s: %w", r.path, err)
	}
	return defs, nil
}

// StaticRepository serves a fixed rule set.
type StaticRepository struct {
	defs Definitions
}

func NewStaticRepository(defs Definitions) *StaticRepository {
	return &StaticRepository{defs: defs}
}

func (r *StaticRepository) Load(ctx context.Context) (Definitions, error) {
	return r.defs, ctx.Err()
}
