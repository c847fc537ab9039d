package delivery

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// BrowserOpener writes the artifact to a temporary file and asks the
// desktop to open it, the CLI counterpart of opening a new tab.
type BrowserOpener struct {
	dir     string
	command func(ctx context.Context, path string) *exec.Cmd
}

// NewBrowserOpener returns a BrowserOpener writing into dir, or the system
// temp directory when dir is empty.
func NewBrowserOpener(dir string) *BrowserOpener {
	return &BrowserOpener{dir: dir, command: openCommand}
}

func (o *BrowserOpener) OpenTab(ctx context.Context, art *Artifact) error {
	f, err := os.CreateTemp(o.dir, "folio-*-"+filepath.Base(art.Filename))
	if err != nil {
		return err
	}
	path := f.Name()

	if _, err := f.Write(art.Data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}

	cmd := o.command(ctx, path)
	if cmd == nil {
		os.Remove(path)
		return fmt.Errorf("%w: no opener for %s", ErrPopupBlocked, runtime.GOOS)
	}
	if err := cmd.Run(); err != nil {
		os.Remove(path)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrPopupBlocked, err)
	}
	return nil
}

func openCommand(ctx context.Context, path string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", path)
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.CommandContext(ctx, "xdg-open", path)
	default:
		return nil
	}
}
