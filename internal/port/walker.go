package port

import "context"

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// FileEvent is emitted when a watched dataset file changes.
type FileEvent struct {
	Path string
	Op   string
}

type Watcher interface {
	Watch(ctx context.Context, paths []string) (<-chan FileEvent, error)
}
