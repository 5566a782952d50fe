// SPDX-License-Identifier: MPL-2.0

// Package assembly turns a module's dependency closure into an artifact: a
// packaging tree with one archive per contributing module, library content
// placed by kind, a resolved output directory and at most one preprocessing
// command. Building is read-only; the resulting ArtifactConfig is committed
// to the registry separately, through a registry.Committer.
package assembly

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/artifactgen/artifactgen/internal/closure"
	"github.com/artifactgen/artifactgen/internal/config"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/pkg/packaging"
	"github.com/artifactgen/artifactgen/pkg/project"

	"github.com/charmbracelet/log"
)

const (
	// OutputSubdir is appended to the parent of a module's compiler output.
	OutputSubdir = "dependency"
	// FallbackVersion names archives of modules without coordinates.
	FallbackVersion = "1.0.0-SNAPSHOT"

	artifactSuffix = ":jar"
	archiveExt     = ".jar"
)

// ErrOutputUnresolvable is returned when a module has neither an output
// override nor a compiler output directory.
var ErrOutputUnresolvable = errors.New("output directory cannot be resolved")

type (
	// ArtifactConfig is the immutable result of building one module's artifact.
	ArtifactConfig struct {
		Name          string
		Type          string
		Module        string
		Root          *packaging.Element
		OutputDir     string
		Preprocessing *registry.Preprocessing
	}

	// Builder builds artifacts from one snapshot of project and config.
	// It never mutates either and is safe for concurrent use.
	Builder struct {
		project   *project.Project
		cfg       *config.Config
		collector *closure.Collector
		logger    *log.Logger
	}
)

// ArtifactName returns the registry name of module's artifact.
func ArtifactName(module string) string { return module + artifactSuffix }

// ArchiveName returns the file name of the archive holding m's output:
// <group>-<artifact>-<version>[-<classifier>].jar when coordinates are
// declared, <sanitized name>-1.0.0-SNAPSHOT.jar otherwise. Distinct modules
// may still map to one name; Tree disambiguates those.
func ArchiveName(m *project.Module) string {
	if c := m.Coordinates; !c.IsZero() {
		name := c.Artifact + "-" + c.Version
		if c.Group != "" {
			name = c.Group + "-" + name
		}
		if c.Classifier != "" {
			name += "-" + c.Classifier
		}
		return project.SanitizeFileName(name) + archiveExt
	}
	return project.SanitizeFileName(m.Name) + "-" + FallbackVersion + archiveExt
}

// NewBuilder returns a Builder. A nil logger discards output.
func NewBuilder(p *project.Project, cfg *config.Config, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{project: p, cfg: cfg, collector: closure.NewCollector(p), logger: logger}
}

// Closure returns module name and its closure under the configured exclusions.
func (b *Builder) Closure(name string) (*project.Module, *closure.Closure, error) {
	m, err := b.project.RequireModule(name)
	if err != nil {
		return nil, nil, err
	}
	var exclude []string
	if mc, ok := b.cfg.Module(name); ok {
		exclude = mc.Exclude
	}
	return m, b.collector.Collect(m, exclude), nil
}

// Build assembles the artifact of module name. It returns
// project.ErrModuleNotFound or ErrOutputUnresolvable (wrapped) when the module
// cannot be assembled; callers of a pass treat both as a skip.
func (b *Builder) Build(name string) (*ArtifactConfig, error) {
	m, cl, err := b.Closure(name)
	if err != nil {
		return nil, err
	}

	outputDir, err := b.ResolveOutputDir(m)
	if err != nil {
		return nil, err
	}

	return &ArtifactConfig{
		Name:          ArtifactName(m.Name),
		Type:          registry.TypePlain,
		Module:        m.Name,
		Root:          Tree(m, cl),
		OutputDir:     outputDir,
		Preprocessing: b.selectPreprocessing(m, cl),
	}, nil
}

// Tree builds the packaging tree of seed given its closure. Every module gets
// its own archive: when two modules map to the same archive name, the later
// one in traversal order gets a numeric suffix (name-2.jar, name-3.jar, ...).
func Tree(seed *project.Module, cl *closure.Closure) *packaging.Element {
	root := packaging.NewRoot()
	owners := make(map[string]string, len(cl.Modules)+1)

	seedArchive := root.AddOrFind(moduleArchive(seed, owners))
	for _, m := range cl.Modules {
		root.AddOrFind(moduleArchive(m, owners))
	}

	for _, lib := range cl.Libraries {
		if !lib.HasClassesDirectories() {
			root.AddOrFind(packaging.LibraryFiles(lib.Name))
			continue
		}
		for _, r := range lib.Roots {
			if r.Kind == project.RootArchive {
				root.AddOrFind(packaging.FileCopy(r.Path))
				continue
			}
			seedArchive.AddOrFind(packaging.DirectoryCopy(r.Path))
		}
	}
	return root
}

// moduleArchive returns m's archive node, claiming a name in owners that no
// other module holds.
func moduleArchive(m *project.Module, owners map[string]string) *packaging.Element {
	base := ArchiveName(m)
	name := base
	for i := 2; ; i++ {
		owner, taken := owners[name]
		if !taken || owner == m.Name {
			break
		}
		name = strings.TrimSuffix(base, archiveExt) + "-" + strconv.Itoa(i) + archiveExt
	}
	owners[name] = m.Name

	a := packaging.NewArchive(name)
	a.AddOrFind(packaging.ModuleOutput(m.Name))
	return a
}

// ResolveOutputDir returns the configured override, or the parent of the
// module's compiler output joined with OutputSubdir. The directory is not
// created here.
func (b *Builder) ResolveOutputDir(m *project.Module) (string, error) {
	if out, ok := b.cfg.OutputOverride(m.Name); ok {
		return out, nil
	}
	if compilerOut, ok := b.project.ModuleOutputDir(m.Name); ok {
		return filepath.Join(filepath.Dir(filepath.Clean(compilerOut)), OutputSubdir), nil
	}
	return "", fmt.Errorf("%w: module %q", ErrOutputUnresolvable, m.Name)
}

// selectPreprocessing returns the first preprocessing entry registered for
// the seed or, failing that, for a closure module in traversal order. The
// chosen entry is dropped when its module's root directory does not exist.
func (b *Builder) selectPreprocessing(seed *project.Module, cl *closure.Closure) *registry.Preprocessing {
	candidates := append([]*project.Module{seed}, cl.Modules...)
	for _, m := range candidates {
		entry, ok := b.cfg.PreprocessingFor(m.Name)
		if !ok {
			continue
		}

		dir := m.Dir
		if dir == "" {
			dir = b.project.Dir
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			b.logger.Debug("preprocessing skipped, module directory missing", "module", m.Name, "dir", dir)
			return nil
		}
		return &registry.Preprocessing{Name: entry.Name, Cmd: entry.Cmd, Dir: dir}
	}
	return nil
}

// Mutation converts c into the registry mutation that replaces its artifact.
func (c *ArtifactConfig) Mutation() registry.Mutation {
	var pre *registry.Preprocessing
	if c.Preprocessing != nil {
		p := *c.Preprocessing
		pre = &p
	}
	return registry.Mutation{
		Name:          c.Name,
		Module:        c.Module,
		Root:          c.Root.Clone(),
		OutputPath:    c.OutputDir,
		Preprocessing: pre,
	}
}
