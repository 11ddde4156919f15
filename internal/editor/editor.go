// Package editor holds the state of one open project: the loaded files, the
// active file, the composed preview and the panel toggles.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/starford/livepad/internal/apperr"
	"github.com/starford/livepad/internal/models"
	"github.com/starford/livepad/internal/preview"
	"github.com/starford/livepad/internal/registry"
	"github.com/starford/livepad/internal/tabs"
)

// ErrNoActiveFile is returned by Save when nothing is selected.
var ErrNoActiveFile = fmt.Errorf("editor: no active file: %w", apperr.ErrNotFound)

// Collaborator loads and mutates project files.
type Collaborator interface {
	GetProject(ctx context.Context, projectID int64) (*models.Project, error)
	ListFiles(ctx context.Context, projectID int64) ([]models.File, error)
	SaveFile(ctx context.Context, id int64, content string) (*models.File, error)
	RenameFile(ctx context.Context, projectID int64, oldName, newName string) (*models.File, error)
	DeleteFile(ctx context.Context, id int64) error
	AddFile(ctx context.Context, projectID int64) (*models.File, error)
	UploadFile(ctx context.Context, projectID int64, name string, content []byte) (*models.File, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotify sets a callback invoked after every state change. It runs
// outside the orchestrator lock.
func WithNotify(fn func()) Option {
	return func(o *Orchestrator) { o.notify = fn }
}

// WithSaveTimeout bounds each save call. Zero means no bound.
func WithSaveTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.saveTimeout = d }
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	projectID   int64
	collab      Collaborator
	notify      func()
	saveTimeout time.Duration

	mu               sync.Mutex
	project          *models.Project
	reg              *registry.Registry
	doc              string
	errMsg           string
	fetchErr         string
	saving           int
	tabsCollapsed    bool
	previewCollapsed bool
}

var _ tabs.Host = (*Orchestrator)(nil)

// New returns an orchestrator for projectID with no files loaded.
func New(collab Collaborator, projectID int64, opts ...Option) *Orchestrator {
	reg, _ := registry.New(nil)
	o := &Orchestrator{
		projectID: projectID,
		collab:    collab,
		reg:       reg,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.doc = preview.Compose(nil, models.NoFile)
	return o
}

// ProjectID returns the project this orchestrator edits.
func (o *Orchestrator) ProjectID() int64 { return o.projectID }

// Load fetches the project and its files. The active file is kept when it
// still exists, otherwise the first file becomes active. A failure is
// recorded as the fetch error and leaves the loaded state untouched.
func (o *Orchestrator) Load(ctx context.Context) error {
	project, err := o.collab.GetProject(ctx, o.projectID)
	if err == nil {
		var files []models.File
		files, err = o.collab.ListFiles(ctx, o.projectID)
		if err == nil {
			o.mu.Lock()
			err = o.reg.Reset(files)
			if err == nil {
				o.project = project
				o.fetchErr = ""
				o.recompose()
			}
			o.mu.Unlock()
		}
	}
	if err != nil {
		o.mu.Lock()
		o.fetchErr = err.Error()
		o.mu.Unlock()
	}
	o.changed()
	return err
}

// Select makes the file with id active. Unknown ids are ignored.
func (o *Orchestrator) Select(id int64) bool {
	o.mu.Lock()
	ok := o.reg.SetActive(id)
	if ok {
		o.recompose()
	}
	o.mu.Unlock()
	if ok {
		o.changed()
	}
	return ok
}

// SelectByName makes the named file active. Unknown names are ignored.
func (o *Orchestrator) SelectByName(name string) bool {
	o.mu.Lock()
	f, ok := o.reg.ByName(name)
	if ok {
		o.reg.SetActive(f.ID)
		o.recompose()
	}
	o.mu.Unlock()
	if ok {
		o.changed()
	}
	return ok
}

// Navigate handles a navigation intent from the preview. A name matching no
// loaded file is dropped without an error.
func (o *Orchestrator) Navigate(fileName string) bool {
	return o.SelectByName(fileName)
}

// ActiveFile returns the active file, if any.
func (o *Orchestrator) ActiveFile() (models.File, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reg.ActiveFile()
}

// Exists reports whether a file with the given name is loaded.
func (o *Orchestrator) Exists(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.reg.ByName(name)
	return ok
}

// Save stores content into the file that is active at call time. The
// returned channel yields the result once and is then closed. Switching the
// active file while the save is in flight does not change its target.
func (o *Orchestrator) Save(ctx context.Context, content string) <-chan error {
	done := make(chan error, 1)

	o.mu.Lock()
	id := o.reg.Active()
	if id == models.NoFile {
		o.errMsg = ErrNoActiveFile.Error()
		o.mu.Unlock()
		o.changed()
		done <- ErrNoActiveFile
		close(done)
		return done
	}
	o.saving++
	o.mu.Unlock()
	o.changed()

	go func() {
		defer close(done)
		if o.saveTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.saveTimeout)
			defer cancel()
		}
		f, err := o.collab.SaveFile(ctx, id, content)

		o.mu.Lock()
		o.saving--
		if err != nil {
			o.errMsg = err.Error()
		} else {
			o.errMsg = ""
			if o.reg.SetContent(id, f.Content, f.Checksum) {
				o.recompose()
			}
		}
		o.mu.Unlock()
		o.changed()
		done <- err
	}()
	return done
}

// RenameFile renames a loaded file through the collaborator. When the
// backend accepted a rename the local registry cannot apply, the files are
// reloaded so both sides agree again, and the mismatch is reported.
func (o *Orchestrator) RenameFile(ctx context.Context, oldName, newName string) error {
	if _, err := o.collab.RenameFile(ctx, o.projectID, oldName, newName); err != nil {
		return o.fail(err)
	}
	o.mu.Lock()
	err := o.reg.Rename(oldName, newName)
	if err == nil {
		o.errMsg = ""
		o.recompose()
	}
	o.mu.Unlock()
	if err == nil {
		o.changed()
		return nil
	}

	if loadErr := o.Load(ctx); loadErr != nil {
		err = errors.Join(err, loadErr)
	}
	return o.fail(fmt.Errorf("editor: rename %q to %q out of sync: %w", oldName, newName, err))
}

// DeleteFile deletes a file through the collaborator and drops it locally.
func (o *Orchestrator) DeleteFile(ctx context.Context, id int64) error {
	if err := o.collab.DeleteFile(ctx, id); err != nil {
		return o.fail(err)
	}
	o.mu.Lock()
	o.reg.Remove(id)
	o.errMsg = ""
	o.recompose()
	o.mu.Unlock()
	o.changed()
	return nil
}

// AddFile creates a new empty file and makes it active.
func (o *Orchestrator) AddFile(ctx context.Context) error {
	f, err := o.collab.AddFile(ctx, o.projectID)
	if err != nil {
		return o.fail(err)
	}
	return o.adopt(*f)
}

// UploadFile adds a file with the given content and makes it active.
func (o *Orchestrator) UploadFile(ctx context.Context, name string, content []byte) error {
	f, err := o.collab.UploadFile(ctx, o.projectID, name, content)
	if err != nil {
		return o.fail(err)
	}
	return o.adopt(*f)
}

func (o *Orchestrator) adopt(f models.File) error {
	o.mu.Lock()
	err := o.reg.Add(f)
	if err == nil {
		o.reg.SetActive(f.ID)
		o.errMsg = ""
		o.recompose()
	}
	o.mu.Unlock()
	o.changed()
	return err
}

// ToggleTabs flips the file tab panel's collapsed flag.
func (o *Orchestrator) ToggleTabs() {
	o.mu.Lock()
	o.tabsCollapsed = !o.tabsCollapsed
	o.mu.Unlock()
	o.changed()
}

// TogglePreview flips the preview panel's collapsed flag.
func (o *Orchestrator) TogglePreview() {
	o.mu.Lock()
	o.previewCollapsed = !o.previewCollapsed
	o.mu.Unlock()
	o.changed()
}

// Preview returns the current preview document.
func (o *Orchestrator) Preview() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.doc
}

// SetError records a user-visible error string.
func (o *Orchestrator) SetError(msg string) {
	o.mu.Lock()
	o.errMsg = msg
	o.mu.Unlock()
	o.changed()
}

// fail records err as the user-visible error and returns it.
func (o *Orchestrator) fail(err error) error {
	o.SetError(err.Error())
	return err
}

// recompose rebuilds the preview. Callers hold o.mu.
func (o *Orchestrator) recompose() {
	o.doc = preview.Compose(o.reg.Files(), o.reg.Active())
}

func (o *Orchestrator) changed() {
	if o.notify != nil {
		o.notify()
	}
}
