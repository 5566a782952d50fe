// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/artifactgen/artifactgen/pkg/project"
)

type (
	// Resolver supplies the filesystem locations leaf elements refer to.
	// *project.Project satisfies it.
	Resolver interface {
		ModuleOutputDir(name string) (string, bool)
		Library(name string) (*project.Library, bool)
	}

	// Result summarizes a materialization.
	Result struct {
		// Archives lists written archive files relative to the output directory.
		Archives []string
		// Files counts regular files copied, including archive entries.
		Files int
		// Missing lists referenced sources that did not exist and were skipped.
		Missing []string
		// Conflicts lists sources skipped because an earlier source already
		// wrote the same path (first wins), as "<path> <- <source>".
		Conflicts []string
	}

	// sink is a destination for files: a directory on disk or an open archive.
	// claim reserves a file path and reports false when it is already taken.
	sink interface {
		mkdir(rel string) error
		create(rel string) (io.WriteCloser, error)
		claim(rel string) bool
	}

	// written tracks the file paths a sink has handed out.
	written map[string]struct{}

	dirSink struct {
		base  string
		files written
	}

	zipSink struct {
		zw    *zip.Writer
		dirs  written
		files written
	}

	nopWriteCloser struct{ io.Writer }

	materializer struct {
		ctx      context.Context
		resolver Resolver
		result   *Result
	}
)

// Materialize writes the tree rooted at root into outputDir. Archive elements
// become zip files (nested archives become entries of their parent), Directory
// elements become directories and leaves copy their referenced content.
// Sources that do not exist are recorded in Result.Missing and skipped.
func Materialize(ctx context.Context, root *Element, outputDir string, resolver Resolver) (*Result, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	m := &materializer{ctx: ctx, resolver: resolver, result: &Result{}}
	if err := m.children(root, &dirSink{base: outputDir, files: written{}}, "", ""); err != nil {
		return m.result, err
	}
	return m.result, nil
}

func (m *materializer) children(e *Element, s sink, prefix, archivePath string) error {
	for _, c := range e.Children {
		if err := m.element(c, s, prefix, archivePath); err != nil {
			return err
		}
	}
	return nil
}

func (m *materializer) element(e *Element, s sink, prefix, archivePath string) error {
	if err := m.ctx.Err(); err != nil {
		return err
	}

	switch e.Kind {
	case KindArchive:
		return m.archive(e, s, prefix, archivePath)
	case KindDirectory:
		rel := path.Join(prefix, e.Name)
		if err := s.mkdir(rel); err != nil {
			return err
		}
		return m.children(e, s, rel, archivePath)
	case KindModuleOutput:
		dir, ok := m.resolver.ModuleOutputDir(e.Source)
		if !ok {
			m.result.Missing = append(m.result.Missing, "module "+e.Source)
			return nil
		}
		return m.copyTree(dir, s, prefix)
	case KindDirectoryCopy:
		return m.copyTree(e.Source, s, prefix)
	case KindFileCopy:
		return m.copyFile(e.Source, s, path.Join(prefix, filepath.Base(e.Source)))
	case KindLibrary:
		lib, ok := m.resolver.Library(e.Source)
		if !ok {
			m.result.Missing = append(m.result.Missing, "library "+e.Source)
			return nil
		}
		for _, r := range lib.Roots {
			var err error
			if r.Kind == project.RootArchive {
				err = m.copyFile(r.Path, s, path.Join(prefix, filepath.Base(r.Path)))
			} else {
				err = m.copyTree(r.Path, s, prefix)
			}
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unexpected %s element below the root", e.Kind)
	}
}

func (m *materializer) archive(e *Element, s sink, prefix, archivePath string) (err error) {
	rel := path.Join(prefix, e.Name)
	if !s.claim(rel) {
		m.conflict(path.Join(archivePath, rel), "archive "+e.Name)
		return nil
	}
	w, err := s.create(rel)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close archive %s: %w", rel, closeErr)
		}
	}()

	zw := zip.NewWriter(w)
	if err := m.children(e, &zipSink{zw: zw, dirs: written{}, files: written{}}, "", path.Join(archivePath, rel)); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive %s: %w", rel, err)
	}
	m.result.Archives = append(m.result.Archives, path.Join(archivePath, rel))
	return nil
}

func (m *materializer) copyTree(src string, s sink, prefix string) error {
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		m.result.Missing = append(m.result.Missing, src)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return m.copyFile(src, s, path.Join(prefix, info.Name()))
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := m.ctx.Err(); err != nil {
			return err
		}
		relPath, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		dest := path.Join(prefix, filepath.ToSlash(relPath))
		if d.IsDir() {
			return s.mkdir(dest)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return m.copyFile(p, s, dest)
	})
}

func (m *materializer) copyFile(src string, s sink, dest string) error {
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		m.result.Missing = append(m.result.Missing, src)
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if !s.claim(dest) {
		m.conflict(dest, src)
		return nil
	}

	out, err := s.create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	m.result.Files++
	return nil
}

func (m *materializer) conflict(dest, src string) {
	m.result.Conflicts = append(m.result.Conflicts, dest+" <- "+src)
}

func (w written) claim(rel string) bool {
	if _, ok := w[rel]; ok {
		return false
	}
	w[rel] = struct{}{}
	return true
}

func (d *dirSink) claim(rel string) bool { return d.files.claim(rel) }

func (d *dirSink) mkdir(rel string) error {
	if rel == "" {
		return nil
	}
	return os.MkdirAll(filepath.Join(d.base, filepath.FromSlash(rel)), 0o755)
}

func (d *dirSink) create(rel string) (io.WriteCloser, error) {
	full := filepath.Join(d.base, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return os.Create(full)
}

func (z *zipSink) claim(rel string) bool { return z.files.claim(rel) }

// mkdir writes each directory entry once; overlapping sources share them.
func (z *zipSink) mkdir(rel string) error {
	if rel == "" || !z.dirs.claim(rel) {
		return nil
	}
	_, err := z.zw.Create(rel + "/")
	return err
}

func (z *zipSink) create(rel string) (io.WriteCloser, error) {
	w, err := z.zw.Create(rel)
	if err != nil {
		return nil, err
	}
	return nopWriteCloser{w}, nil
}

func (nopWriteCloser) Close() error { return nil }
