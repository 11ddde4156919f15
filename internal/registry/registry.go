// Package registry holds a project's loaded files in insertion order together
// with the active file pointer.
package registry

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/livepad/internal/apperr"
	"github.com/starford/livepad/internal/models"
)

// Registry maps file names to files, ordered by insertion. When non-empty
// exactly one file is active; when empty the active id is models.NoFile.
//
// A Registry is not safe for concurrent use; the owner serializes access.
type Registry struct {
	files  *orderedmap.OrderedMap[string, models.File]
	names  map[int64]string
	active int64
}

// New builds a registry from files in the given order. The first file
// becomes active. Duplicate names or ids are rejected.
func New(files []models.File) (*Registry, error) {
	r := &Registry{}
	if err := r.Reset(files); err != nil {
		return nil, err
	}
	return r, nil
}

// Reset replaces the contents with files. The active file is kept when it is
// still present, otherwise the first file becomes active. On error the
// registry is left unchanged.
func (r *Registry) Reset(files []models.File) error {
	om := orderedmap.New[string, models.File](len(files))
	names := make(map[int64]string, len(files))
	for _, f := range files {
		if _, dup := om.Get(f.FileName); dup {
			return fmt.Errorf("registry: file %q: %w", f.FileName, apperr.ErrAlreadyExists)
		}
		if _, dup := names[f.ID]; dup {
			return fmt.Errorf("registry: file id %d: %w", f.ID, apperr.ErrAlreadyExists)
		}
		om.Set(f.FileName, f)
		names[f.ID] = f.FileName
	}
	r.files, r.names = om, names
	if _, ok := r.names[r.active]; !ok {
		r.active = r.first()
	}
	return nil
}

// Add appends f. It becomes active only if the registry was empty.
func (r *Registry) Add(f models.File) error {
	if _, dup := r.files.Get(f.FileName); dup {
		return fmt.Errorf("registry: file %q: %w", f.FileName, apperr.ErrAlreadyExists)
	}
	if _, dup := r.names[f.ID]; dup {
		return fmt.Errorf("registry: file id %d: %w", f.ID, apperr.ErrAlreadyExists)
	}
	r.files.Set(f.FileName, f)
	r.names[f.ID] = f.FileName
	if r.active == models.NoFile {
		r.active = f.ID
	}
	return nil
}

// SetContent replaces the content of the file with the given id.
func (r *Registry) SetContent(id int64, content, checksum string) bool {
	name, ok := r.names[id]
	if !ok {
		return false
	}
	f, _ := r.files.Get(name)
	f.Content = content
	f.Checksum = checksum
	r.files.Set(name, f)
	return true
}

// Rename changes a file's name in place, keeping its position and id.
func (r *Registry) Rename(oldName, newName string) error {
	f, ok := r.files.Get(oldName)
	if !ok {
		return fmt.Errorf("registry: file %q: %w", oldName, apperr.ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	if _, dup := r.files.Get(newName); dup {
		return fmt.Errorf("registry: file %q: %w", newName, apperr.ErrAlreadyExists)
	}
	om := orderedmap.New[string, models.File](r.files.Len())
	for pair := r.files.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == oldName {
			f.FileName = newName
			om.Set(newName, f)
			continue
		}
		om.Set(pair.Key, pair.Value)
	}
	r.files = om
	r.names[f.ID] = newName
	return nil
}

// Remove deletes the file with the given id. Removing the active file moves
// the active pointer to the first remaining file.
func (r *Registry) Remove(id int64) bool {
	name, ok := r.names[id]
	if !ok {
		return false
	}
	r.files.Delete(name)
	delete(r.names, id)
	if r.active == id {
		r.active = r.first()
	}
	return true
}

// Files returns a copy of all files in insertion order.
func (r *Registry) Files() []models.File {
	out := make([]models.File, 0, r.files.Len())
	for pair := r.files.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// ByName looks a file up by name.
func (r *Registry) ByName(name string) (models.File, bool) {
	return r.files.Get(name)
}

// ByID looks a file up by id.
func (r *Registry) ByID(id int64) (models.File, bool) {
	name, ok := r.names[id]
	if !ok {
		return models.File{}, false
	}
	return r.files.Get(name)
}

// Active returns the active file id, or models.NoFile.
func (r *Registry) Active() int64 { return r.active }

// ActiveFile returns the active file, if any.
func (r *Registry) ActiveFile() (models.File, bool) {
	return r.ByID(r.active)
}

// SetActive makes id the active file. Unknown ids are ignored.
func (r *Registry) SetActive(id int64) bool {
	if _, ok := r.names[id]; !ok {
		return false
	}
	r.active = id
	return true
}

// Len returns the number of files.
func (r *Registry) Len() int { return r.files.Len() }

func (r *Registry) first() int64 {
	if pair := r.files.Oldest(); pair != nil {
		return pair.Value.ID
	}
	return models.NoFile
}
