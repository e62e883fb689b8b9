package dataset

import (
	"context"
	"os"
)

// AutoLoader reads local paths from disk and treats anything else as a
// Hugging Face dataset name.
type AutoLoader struct {
	Local LocalLoader
	Hub   Loader
}

func NewAutoLoader(hubURL, hubToken string) *AutoLoader {
	return &AutoLoader{Hub: NewHubLoader(hubURL, hubToken)}
}

func (l *AutoLoader) Load(ctx context.Context, name string) (*Dataset, error) {
	if _, err := os.Stat(name); err == nil {
		return l.Local.Load(ctx, name)
	}
	return l.Hub.Load(ctx, name)
}
