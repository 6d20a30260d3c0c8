package gen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/refaktor/injgen/binding"
)

var (
	ErrNoPackageDir = errors.New("no directory known for package")
	ErrFileConflict = errors.New("file was already written for another artifact")
)

// Filer receives generated files.
type Filer interface {
	// WriteFile stores the source of artifact under the base name name in
	// the directory of the artifact's package.
	WriteFile(artifact binding.ArtifactName, name string, src []byte) error
	// Has reports whether artifact was written through the filer.
	Has(artifact binding.ArtifactName) bool
	// Written returns the paths of all written files in write order.
	Written() []string
}

// DirFiler writes files into package directories.
type DirFiler struct {
	dirs      map[string]string // package path -> directory
	artifacts map[binding.ArtifactName]bool
	owners    map[string]binding.ArtifactName // path -> artifact
	written   []string
}

var _ Filer = (*DirFiler)(nil)

func NewDirFiler(dirs map[string]string) *DirFiler {
	return &DirFiler{
		dirs:      dirs,
		artifacts: map[binding.ArtifactName]bool{},
		owners:    map[string]binding.ArtifactName{},
	}
}

func (f *DirFiler) WriteFile(artifact binding.ArtifactName, name string, src []byte) error {
	dir, ok := f.dirs[artifact.PkgPath]
	if !ok {
		return fmt.Errorf("%w: %v", ErrNoPackageDir, artifact.PkgPath)
	}
	path := filepath.Join(dir, name)
	if err := claim(f.owners, path, artifact); err != nil {
		return err
	}
	if err := os.WriteFile(path, src, 0666); err != nil {
		return err
	}
	f.artifacts[artifact] = true
	f.written = append(f.written, path)
	return nil
}

func (f *DirFiler) Has(artifact binding.ArtifactName) bool { return f.artifacts[artifact] }

func (f *DirFiler) Written() []string { return slices.Clone(f.written) }

// claim records artifact as the owner of path unless another artifact
// owns it.
func claim(owners map[string]binding.ArtifactName, path string, artifact binding.ArtifactName) error {
	if owner, ok := owners[path]; ok && owner != artifact {
		return fmt.Errorf("%w: %v: %v, then %v", ErrFileConflict, path, owner, artifact)
	}
	owners[path] = artifact
	return nil
}

// MemFiler keeps files in memory. Paths are "<package path>/<name>".
type MemFiler struct {
	files     map[string][]byte
	artifacts map[binding.ArtifactName]bool
	owners    map[string]binding.ArtifactName // path -> artifact
	written   []string
}

var _ Filer = (*MemFiler)(nil)

func NewMemFiler() *MemFiler {
	return &MemFiler{
		files:     map[string][]byte{},
		artifacts: map[binding.ArtifactName]bool{},
		owners:    map[string]binding.ArtifactName{},
	}
}

func (f *MemFiler) WriteFile(artifact binding.ArtifactName, name string, src []byte) error {
	path := artifact.PkgPath + "/" + name
	if err := claim(f.owners, path, artifact); err != nil {
		return err
	}
	if _, ok := f.files[path]; !ok {
		f.written = append(f.written, path)
	}
	f.files[path] = slices.Clone(src)
	f.artifacts[artifact] = true
	return nil
}

func (f *MemFiler) Has(artifact binding.ArtifactName) bool { return f.artifacts[artifact] }

func (f *MemFiler) Written() []string { return slices.Clone(f.written) }

// File returns the contents of the file at path.
func (f *MemFiler) File(path string) ([]byte, bool) {
	src, ok := f.files[path]
	return src, ok
}
