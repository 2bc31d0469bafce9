// Package metastore persists InstanceMetadata records as instance.json
// files under each instance's directory.
package metastore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/layout"
	"github.com/luminakraft/modpack-engine/internal/logging"
	"github.com/luminakraft/modpack-engine/internal/types"
)

// Store reads and writes InstanceMetadata records.
type Store struct {
	layout *layout.Layout
	logger *logging.Logger
}

// New creates a Store backed by the given Layout.
func New(l *layout.Layout, logger *logging.Logger) *Store {
	return &Store{layout: l, logger: logger}
}

// Save writes metadata to its instance's instance.json as deterministic
// pretty-printed JSON.
func (s *Store) Save(metadata *types.InstanceMetadata) error {
	if err := metadata.Validate(); err != nil {
		return engineerr.New(engineerr.KindManifestInvalid, "metastore.Save", err)
	}

	if _, err := s.layout.InstanceDir(metadata.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return engineerr.New(engineerr.KindManifestInvalid, "metastore.Save", err)
	}

	path := s.layout.InstanceMetadataPath(metadata.ID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return engineerr.New(engineerr.KindFilesystem, "metastore.Save", err).WithPath(path)
	}

	s.logger.Debug("saved instance metadata for %s", metadata.ID)
	return nil
}

// Load reads an instance's metadata. It returns (nil, nil) if the
// instance has no instance.json.
func (s *Store) Load(id string) (*types.InstanceMetadata, error) {
	path := s.layout.InstanceMetadataPath(id)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, engineerr.New(engineerr.KindFilesystem, "metastore.Load", err).WithPath(path)
	}

	var metadata types.InstanceMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, engineerr.New(engineerr.KindManifestInvalid, "metastore.Load", err).WithPath(path)
	}

	return &metadata, nil
}

// Exists reports whether an instance has persisted metadata.
func (s *Store) Exists(id string) bool {
	path := s.layout.InstanceMetadataPath(id)
	_, err := os.Stat(path)
	return err == nil
}

// Delete removes an instance's directory entirely. Deleting an instance
// that does not exist is not an error.
func (s *Store) Delete(id string) error {
	dir, err := s.layout.InstanceDir(id)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return engineerr.New(engineerr.KindFilesystem, "metastore.Delete", err).WithPath(dir)
	}

	s.logger.Info("deleted instance %s", id)
	return nil
}

// List returns metadata for every instance with a persisted
// instance.json. Instances with corrupt metadata are skipped and
// logged rather than failing the whole listing.
func (s *Store) List() ([]*types.InstanceMetadata, error) {
	root, err := s.layout.Root()
	if err != nil {
		return nil, err
	}

	instancesDir := filepath.Join(root, "instances")
	entries, err := os.ReadDir(instancesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, engineerr.New(engineerr.KindFilesystem, "metastore.List", err).WithPath(instancesDir)
	}

	var result []*types.InstanceMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metadata, err := s.Load(entry.Name())
		if err != nil {
			s.logger.Warn("skipping instance %s with corrupt metadata: %v", entry.Name(), err)
			continue
		}
		if metadata == nil {
			continue
		}

		result = append(result, metadata)
	}

	return result, nil
}
