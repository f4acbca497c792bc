package kv

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Kinds lists the backend kinds accepted by Open.
var Kinds = []string{KindFile, KindSQLite}

// Open opens the backend of the given kind under dataDir. A nil logger
// means slog.Default().
func Open(kind, dataDir string, quota int64, log *slog.Logger) (Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	switch kind {
	case KindFile, "":
		return OpenDir(filepath.Join(dataDir, "data"), quota, WithDirLogger(log))
	case KindSQLite:
		return OpenSQLite(filepath.Join(dataDir, "todu.db"), quota, WithSQLiteLogger(log))
	default:
		return nil, fmt.Errorf("unknown backend %q (valid: file, sqlite)", kind)
	}
}
