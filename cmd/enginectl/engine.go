package main

import (
	"github.com/luminakraft/modpack-engine/internal/layout"
	"github.com/luminakraft/modpack-engine/internal/metastore"
	"github.com/luminakraft/modpack-engine/internal/orchestrator"
	"github.com/luminakraft/modpack-engine/internal/platform"
)

// dirOverridePlatform wraps the real platform, substituting a
// user-supplied data root for --instance-dir without touching OS
// detection, executable path resolution, or disk-space queries.
type dirOverridePlatform struct {
	platform.Platform
	root string
}

func (p *dirOverridePlatform) GetAppDataDir() (string, error) {
	return p.root, nil
}

// newEngine wires a layout, metastore, and orchestrator Engine from the
// current flag values. Every subcommand that touches an instance calls
// this once at the top of its RunE.
func newEngine() (*orchestrator.Engine, error) {
	plat := platform.Current()
	if instanceDir != "" {
		plat = &dirOverridePlatform{Platform: plat, root: instanceDir}
	}

	l, err := layout.New(plat)
	if err != nil {
		return nil, err
	}
	store := metastore.New(l, logger)
	return orchestrator.NewEngine(l, store, logger, getAuthToken()), nil
}
