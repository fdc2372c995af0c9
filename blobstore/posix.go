package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oscied/orchestrator/cmn"
)

const (
	renameRetries = 5
	renameBackoff = time.Second
)

// POSIXStore backs BlobStore with a local (or network-mounted, e.g.
// GlusterFS) filesystem tree rooted at Root. URIs take the
// "glusterfs://<storage_address>/<mountpoint>/medias/<user>/<media>/<filename>"
// shape described in spec §4.7; StorageAddress and Mountpoint are presentation
// only, the actual filesystem root is Root.
type POSIXStore struct {
	Root           string
	StorageAddress string
	Mountpoint     string
}

func NewPOSIXStore(root, storageAddress, mountpoint string) *POSIXStore {
	return &POSIXStore{Root: root, StorageAddress: storageAddress, Mountpoint: mountpoint}
}

func (p *POSIXStore) localPath(userID, mediaID, filename string) string {
	return filepath.Join(p.Root, CanonicalPath(userID, mediaID, filename))
}

func (p *POSIXStore) externalURI(userID, mediaID, filename string) string {
	return "glusterfs://" + p.StorageAddress + "/" + p.Mountpoint + "/" + CanonicalPath(userID, mediaID, filename)
}

func (p *POSIXStore) pathFromURI(uri string) (string, error) {
	prefix := "glusterfs://" + p.StorageAddress + "/" + p.Mountpoint + "/"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", cmn.NewInvalidRequest("uri does not belong to this storage mount: " + uri)
	}
	return filepath.Join(p.Root, uri[len(prefix):]), nil
}

// Rename moves stagingPath onto the canonical media path, making up to
// renameRetries attempts at renameBackoff spacing; every rename error is
// retried, without distinguishing transient from permanent ones.
func (p *POSIXStore) Rename(ctx context.Context, stagingPath, userID, mediaID, filename string) (string, error) {
	dest := p.localPath(userID, mediaID, filename)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", cmn.Wrap(err, cmn.KindInternal, "failed to create media directory")
	}
	var lastErr error
	for attempt := 0; attempt < renameRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", cmn.Wrap(ctx.Err(), cmn.KindTransient, "rename cancelled")
			case <-time.After(renameBackoff):
			}
		}
		if err := os.Rename(stagingPath, dest); err != nil {
			lastErr = err
			continue
		}
		return p.externalURI(userID, mediaID, filename), nil
	}
	return "", cmn.Wrap(lastErr, cmn.KindTransient, "unable to register media after retries")
}

func (p *POSIXStore) ProbeSize(_ context.Context, uri string) (int64, error) {
	path, err := p.pathFromURI(uri)
	if err != nil {
		return 0, err
	}
	var total int64
	err = filepath.Walk(filepath.Dir(path), func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, cmn.NewMissingEntityRef("media path", uri)
	}
	if err != nil {
		return 0, cmn.Wrap(err, cmn.KindInternal, "failed to probe media size")
	}
	return total, nil
}

// ProbeDuration shells out to ffprobe, the same external tool spec §4.7
// assumes ("probe final directory size and media duration (external tool)").
func (p *POSIXStore) ProbeDuration(ctx context.Context, uri string) (float64, error) {
	path, err := p.pathFromURI(uri)
	if err != nil {
		return 0, err
	}
	cmdCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cmdCtx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, cmn.Wrap(err, cmn.KindTransient, "ffprobe failed")
	}
	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out.Bytes(), &parsed); err != nil {
		return 0, cmn.Wrap(err, cmn.KindInternal, "failed to parse ffprobe output")
	}
	d, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, cmn.Wrap(err, cmn.KindInternal, "failed to parse media duration")
	}
	return d, nil
}

func (p *POSIXStore) DeleteTree(_ context.Context, uri string) error {
	path, err := p.pathFromURI(uri)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return cmn.Wrap(err, cmn.KindInternal, "failed to delete media directory")
	}
	return nil
}
