// Package archiveutil provides the zip extraction and assembly helpers
// shared by the training agent (extracting a downloaded dataset archive)
// and the evaluation agent (assembling the user bundle). No zip-wrapping
// library appears anywhere in the example pack; archive/zip is the
// complete, idiomatic tool for both directions.
package archiveutil

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"automl-orchestrator/internal/errkind"
)

// ExtractZip unpacks src into destDir, rejecting any entry whose path
// would escape destDir (zip-slip).
func ExtractZip(src, destDir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return errkind.Wrap(errkind.BadDatasetLayout, "open archive", err)
	}
	defer r.Close()

	for _, f := range r.File {
		destPath := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) && destPath != destDir {
			return errkind.New(errkind.BadDatasetLayout, "archive entry escapes destination: "+f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return errkind.Wrap(errkind.Permanent, "create extracted directory", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return errkind.Wrap(errkind.Permanent, "create extracted parent directory", err)
		}

		if err := extractFile(f, destPath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return errkind.Wrap(errkind.BadDatasetLayout, "open archive entry: "+f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "create extracted file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return errkind.Wrap(errkind.Permanent, "write extracted file", err)
	}
	return nil
}

// CreateZip writes a new zip at destZipPath containing each entry in
// files, keyed by the name the file should have inside the archive.
func CreateZip(destZipPath string, files map[string]string) error {
	out, err := os.Create(destZipPath)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "create bundle zip", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for name, srcPath := range files {
		if err := addFile(w, name, srcPath); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func addFile(w *zip.Writer, name, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "open bundle source file: "+srcPath, err)
	}
	defer src.Close()

	entry, err := w.Create(name)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "create zip entry: "+name, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return errkind.Wrap(errkind.Permanent, "write zip entry: "+name, err)
	}
	return nil
}
