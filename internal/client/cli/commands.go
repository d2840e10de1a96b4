package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dkovalev/assetvault/internal/client/models"
	"github.com/dkovalev/assetvault/internal/common"
)

func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Choose a username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.registry.Register(ctx, username, string(password)); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("username %q is taken", username)
		}
		return err
	}

	fmt.Fprintln(a.out, "Account created. You can now log in.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.registry.Login(ctx, username, string(password)); err != nil {
		return err
	}

	a.userName = username
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.registry.SetToken("")
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) AddFolder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: add <path> [label]")
	}
	path := args[0]
	label := strings.Join(args[1:], " ")

	folder, err := a.scanner.AddFolder(ctx, path, label)
	if err != nil {
		return err
	}

	candidates, err := a.cache.LoadFolderCandidates(ctx, folder.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Added folder %s (%s), %d candidates\n", folder.ID, folder.HandleKey, len(candidates))
	return nil
}

func (a *App) Folders(ctx context.Context) error {
	folders, err := a.cache.ListFolders(ctx)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Fprintln(a.out, "No folders. Use: add <path> [label]")
		return nil
	}
	for _, f := range folders {
		fmt.Fprintf(a.out, "%s  %s  %s\n", f.ID, f.HandleKey, f.Label)
	}
	return nil
}

func (a *App) Rescan(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: scan <folder-id>")
	}

	count, err := a.scanner.Rescan(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Scanned %d candidates\n", count)
	return nil
}

func (a *App) Status(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: status <folder-id>")
	}

	candidates, err := a.cache.LoadFolderCandidates(ctx, args[0])
	if err != nil {
		return err
	}

	for _, c := range candidates {
		hash := "unhashed"
		if c.SHA256 != "" {
			hash = c.SHA256[:12]
		}
		upload := string(c.LastUploadStatus)
		if upload == "" || c.LastUploadStatus == models.UploadStatusNone {
			upload = "never uploaded"
		}
		fmt.Fprintf(a.out, "%-40s  %-8s  %-12s  %s\n", c.Name, c.Kind, hash, upload)
	}
	fmt.Fprintf(a.out, "%d candidates\n", len(candidates))
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errors.New("log in first")
	}
	if len(args) == 0 {
		return errors.New("usage: upload <folder-id> [provider]")
	}

	providerID := a.config.ProviderID
	if len(args) > 1 {
		providerID = args[1]
	}

	candidates, err := a.cache.LoadFolderCandidates(ctx, args[0])
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Fprintln(a.out, "Nothing to upload")
		return nil
	}

	refs := make([]*models.AssetCandidate, len(candidates))
	for i := range candidates {
		refs[i] = &candidates[i]
	}

	results := a.reconciler.ReconcileAll(ctx, refs, providerID, a.config.BatchLimit)

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(a.out, "%-40s  failed: %v\n", res.Candidate.Name, res.Err)
			continue
		}
		fmt.Fprintf(a.out, "%-40s  %s (asset %d)\n", res.Candidate.Name, res.Outcome.Via, res.Outcome.AssetID)
	}
	fmt.Fprintf(a.out, "%d ok, %d failed\n", len(results)-failed, failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func (a *App) RemoveFolder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: remove <folder-id>")
	}

	if err := a.cache.RemoveFolder(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Folder removed. Upload history by content hash is kept.")
	return nil
}
