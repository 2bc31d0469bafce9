package integrity

import (
	"context"

	"github.com/luminakraft/modpack-engine/internal/types"
)

// Store is the subset of metastore.Store that migration needs. Defined
// here so integrity does not import internal/metastore; any type with a
// matching Save method satisfies it.
type Store interface {
	Save(metadata *types.InstanceMetadata) error
}

// VerifyOrMigrate runs Verify for managed instances, silently building and
// persisting a fresh blob first when metadata.Integrity is nil (a legacy
// instance installed before integrity tracking existed). A migrated
// instance always reports valid, since there is nothing yet to compare
// against.
func VerifyOrMigrate(ctx context.Context, instanceDir string, metadata *types.InstanceMetadata, store Store, allowCustomMods, allowCustomResourcepacks bool) (Result, error) {
	if metadata.Integrity == nil {
		blob, err := Build(ctx, instanceDir, nil)
		if err != nil {
			return Result{}, err
		}
		metadata.Integrity = blob
		if err := store.Save(metadata); err != nil {
			return Result{}, err
		}
		return Result{Valid: true, Migrated: true}, nil
	}

	return Verify(ctx, instanceDir, metadata.Integrity, allowCustomMods, allowCustomResourcepacks), nil
}
