package ops

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const manifestName = ".guildboard-manifest.json"

// Manifest is written into each archive so a restore can verify every file
// made it back intact.
type Manifest struct {
	CreatedAt time.Time         `json:"createdAt"`
	Files     map[string]string `json:"files"` // rel path -> sha256 hex
}

// Snapshot packs dataDir into a tar.gz at archivePath, recording a sha256
// per file in an embedded manifest. Symlinks are skipped.
func Snapshot(dataDir, archivePath string) error {
	dataDir = filepath.Clean(strings.TrimSpace(dataDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	if dataDir == "" || archivePath == "" {
		return fmt.Errorf("dataDir and archivePath are required")
	}
	info, err := os.Stat(dataDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dataDir)
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}

	files, err := collectFiles(dataDir)
	if err != nil {
		return err
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	manifest := Manifest{CreatedAt: time.Now().UTC(), Files: map[string]string{}}
	for _, rel := range files {
		full := filepath.Join(dataDir, rel)
		b, err := os.ReadFile(full)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(b)
		manifest.Files[rel] = hex.EncodeToString(sum[:])

		fi, err := os.Stat(full)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name:    rel,
			Mode:    int64(fi.Mode().Perm()),
			Size:    int64(len(b)),
			ModTime: fi.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(b); err != nil {
			return err
		}
	}

	mb, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Name:    manifestName,
		Mode:    0o644,
		Size:    int64(len(mb)),
		ModTime: manifest.CreatedAt,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = tw.Write(mb)
	return err
}

// Restore unpacks an archive produced by Snapshot into targetDir and verifies
// every restored file against the embedded manifest.
func Restore(archivePath, targetDir string) error {
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	targetDir = filepath.Clean(strings.TrimSpace(targetDir))
	if archivePath == "" || targetDir == "" {
		return fmt.Errorf("archivePath and targetDir are required")
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}

	in, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gz.Close()

	var manifest *Manifest
	restored := map[string]string{}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		rel, err := safeRelPath(hdr.Name)
		if err != nil {
			return err
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return err
		}

		if rel == manifestName {
			var m Manifest
			if err := json.Unmarshal(b, &m); err != nil {
				return fmt.Errorf("parse manifest: %w", err)
			}
			manifest = &m
			continue
		}

		outPath := filepath.Join(targetDir, rel)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(outPath, b, os.FileMode(hdr.Mode).Perm()); err != nil {
			return err
		}
		sum := sha256.Sum256(b)
		restored[rel] = hex.EncodeToString(sum[:])
	}

	if manifest == nil {
		return fmt.Errorf("archive has no manifest: %s", archivePath)
	}
	for rel, want := range manifest.Files {
		got, ok := restored[rel]
		if !ok {
			return fmt.Errorf("restore missing file %s", rel)
		}
		if got != want {
			return fmt.Errorf("digest mismatch for %s", rel)
		}
	}
	return nil
}

func collectFiles(root string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func safeRelPath(name string) (string, error) {
	name = filepath.Clean(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." ||
		filepath.IsAbs(name) || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid archive entry path: %s", name)
	}
	return filepath.ToSlash(name), nil
}
