// Package scan produces folder-sourced candidates from a registered
// local directory and merges them into the candidate cache.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dkovalev/assetvault/internal/client/cache"
	"github.com/dkovalev/assetvault/internal/client/models"
	"github.com/dkovalev/assetvault/internal/common"
)

// Scanner walks registered folders and refreshes their cached candidate
// sets. The cache's save path carries hashes and upload history across
// rescans, so walking is cheap to repeat.
type Scanner struct {
	cache cache.Cache
}

func NewScanner(c cache.Cache) *Scanner {
	return &Scanner{cache: c}
}

// AddFolder registers a directory as a scan root under a fresh session
// id and runs the first scan. The id is deliberately ephemeral: removing
// and re-adding the same directory mints a new one.
func (s *Scanner) AddFolder(ctx context.Context, path, label string) (*cache.Folder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", common.ErrSourceUnavailable, abs, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	folder := cache.Folder{
		ID:        uuid.NewString(),
		HandleKey: abs,
		Label:     label,
		AddedAt:   time.Now().UTC(),
	}
	if err := s.cache.RegisterFolder(ctx, folder); err != nil {
		return nil, err
	}
	if _, err := s.Rescan(ctx, folder.ID); err != nil {
		return nil, err
	}
	return &folder, nil
}

// Rescan walks the folder and replaces its cached candidate set,
// returning the number of indexable candidates found. Files of kind
// "other" are walked past, never indexed.
func (s *Scanner) Rescan(ctx context.Context, folderID string) (int, error) {
	folder, err := s.cache.GetFolder(ctx, folderID)
	if err != nil {
		return 0, err
	}

	candidates, err := walk(ctx, folder)
	if err != nil {
		return 0, err
	}

	if err := s.cache.SaveFolderCandidates(ctx, folderID, candidates); err != nil {
		return 0, err
	}
	return len(candidates), nil
}

func walk(ctx context.Context, folder *cache.Folder) ([]models.AssetCandidate, error) {
	var result []models.AssetCandidate

	root := os.DirFS(folder.HandleKey)
	err := fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A single unreadable subtree does not fail the scan.
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		kind := models.KindFromName(d.Name())
		if kind == models.KindOther {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		result = append(result, models.AssetCandidate{
			ID:           uuid.NewString(),
			Name:         d.Name(),
			Kind:         kind,
			Size:         info.Size(),
			LastModified: info.ModTime().UTC().Truncate(time.Millisecond),
			Source: models.FolderSource{
				FolderID:     folder.ID,
				RelativePath: filepath.ToSlash(path),
				HandleKey:    folder.HandleKey,
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", folder.HandleKey, err)
	}
	return result, nil
}
