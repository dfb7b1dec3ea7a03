// Package artifactsource supplies the dbt Artifact Store with the raw
// bytes of manifest.json/catalog.json, independent of where those files
// live: a project's target/ directory need not sit on local disk, so
// this package adds object-storage-backed alternatives alongside the
// default local reader.
package artifactsource

import "context"

const (
	ManifestFilename = "manifest.json"
	CatalogFilename  = "catalog.json"
)

// Source reads the two dbt build artifacts a project produces. A single
// Source is shared by the Loader for the lifetime of the process.
type Source interface {
	ReadManifest(ctx context.Context) ([]byte, error)
	ReadCatalog(ctx context.Context) ([]byte, error)
}
