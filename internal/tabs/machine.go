// Package tabs implements the file tab controller: selection, the exclusive
// rename mode and cancellation of a rename by a pointer-down outside the tab
// region.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/livepad/internal/apperr"
	"github.com/starford/livepad/internal/models"
)

// Region is the id of the file tab region in pointer event paths.
const Region = "file-tabs"

var (
	// ErrRenameInProgress rejects actions that need the Idle state.
	ErrRenameInProgress = errors.New("tabs: rename in progress")
	// ErrNotRenaming is returned by CommitRename outside rename mode.
	ErrNotRenaming = errors.New("tabs: not renaming")
)

// State of the machine.
type State int

const (
	Idle State = iota
	Renaming
)

func (s State) String() string {
	if s == Renaming {
		return "renaming"
	}
	return "idle"
}

// Host is what the tabs act on.
type Host interface {
	ActiveFile() (models.File, bool)
	SelectByName(name string) bool
	RenameFile(ctx context.Context, oldName, newName string) error
	DeleteFile(ctx context.Context, id int64) error
	AddFile(ctx context.Context) error
	UploadFile(ctx context.Context, name string, content []byte) error
}

// Machine is the tab controller. It is not safe for concurrent use; an
// editor session drives it from one goroutine.
type Machine struct {
	host   Host
	state  State
	target string
	sub    *Subscription
}

// New returns an Idle machine over host.
func New(host Host) *Machine {
	return &Machine{host: host}
}

// State returns the current state and, when Renaming, the target file name.
func (m *Machine) State() (State, string) {
	return m.state, m.target
}

// RenameIntent starts renaming the active file. Without an active file it
// does nothing.
func (m *Machine) RenameIntent() bool {
	f, ok := m.host.ActiveFile()
	if !ok {
		return false
	}
	m.begin(f.FileName)
	return true
}

// DoubleActivate selects name and starts renaming it.
func (m *Machine) DoubleActivate(name string) bool {
	if !m.host.SelectByName(name) {
		return false
	}
	m.begin(name)
	return true
}

// begin enters Renaming for name, discarding any rename in progress.
func (m *Machine) begin(name string) {
	m.state = Renaming
	m.target = name
}

// Select makes name the active file. Selecting the row being renamed is
// ignored; other rows are selected and the rename stays open.
func (m *Machine) Select(name string) bool {
	if m.state == Renaming && name == m.target {
		return false
	}
	return m.host.SelectByName(name)
}

// CommitRename renames the target to newName. On failure the machine stays
// in Renaming so the user can correct the name.
func (m *Machine) CommitRename(ctx context.Context, newName string) error {
	if m.state != Renaming {
		return ErrNotRenaming
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("tabs: empty name: %w", apperr.ErrInvalidName)
	}
	if newName == m.target {
		m.CancelRename()
		return nil
	}
	if err := m.host.RenameFile(ctx, m.target, newName); err != nil {
		return err
	}
	m.CancelRename()
	return nil
}

// CancelRename leaves rename mode without committing.
func (m *Machine) CancelRename() {
	m.state = Idle
	m.target = ""
}

// Delete removes the active file. A rename targeting that file is cancelled
// before the host is asked to delete it.
func (m *Machine) Delete(ctx context.Context) error {
	f, ok := m.host.ActiveFile()
	if !ok {
		return fmt.Errorf("tabs: delete: %w", apperr.ErrNotFound)
	}
	if m.state == Renaming && m.target == f.FileName {
		m.CancelRename()
	}
	return m.host.DeleteFile(ctx, f.ID)
}

// Add creates a new file. Rejected while renaming.
func (m *Machine) Add(ctx context.Context) error {
	if m.state == Renaming {
		return ErrRenameInProgress
	}
	return m.host.AddFile(ctx)
}

// Upload adds a file with the given content. Rejected while renaming.
func (m *Machine) Upload(ctx context.Context, name string, content []byte) error {
	if m.state == Renaming {
		return ErrRenameInProgress
	}
	return m.host.UploadFile(ctx, name, content)
}

// Mount starts listening for pointer-downs on bus. A previous mount is
// released first.
func (m *Machine) Mount(bus *Bus) {
	m.Unmount()
	m.sub = bus.Subscribe(m.onPointerDown)
}

// Unmount releases the pointer listener.
func (m *Machine) Unmount() {
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
}

func (m *Machine) onPointerDown(ev PointerEvent) {
	if m.state == Renaming && !ev.Within(Region) {
		m.CancelRename()
	}
}

// Prune cancels a rename whose target no longer exists, for instance after
// the file list was reloaded from disk.
func (m *Machine) Prune(exists func(name string) bool) {
	if m.state == Renaming && !exists(m.target) {
		m.CancelRename()
	}
}
