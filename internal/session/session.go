// Package session serves editor sessions over websockets. Each session owns
// one editor orchestrator and one tab state machine and processes commands
// one at a time.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/starford/livepad/internal/bridge"
	"github.com/starford/livepad/internal/editor"
	"github.com/starford/livepad/internal/tabs"
)

// Command types accepted from the client.
const (
	CmdSelect         = "select"
	CmdDoubleActivate = "double_activate"
	CmdRenameIntent   = "rename_intent"
	CmdRenameCommit   = "rename_commit"
	CmdRenameCancel   = "rename_cancel"
	CmdPointerDown    = "pointer_down"
	CmdDelete         = "delete"
	CmdAdd            = "add"
	CmdUpload         = "upload"
	CmdSave           = "save"
	CmdPreviewMessage = "preview_message"
	CmdToggleTabs     = "toggle_tabs"
	CmdTogglePreview  = "toggle_preview"
	CmdReload         = "reload"
)

// Frame types sent to the client.
const (
	FrameState = "state"
	FrameError = "error"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 << 20
)

// ErrUnknownCommand is reported for unrecognised command types.
var ErrUnknownCommand = errors.New("session: unknown command")

// Command is an incoming websocket message.
type Command struct {
	Type     string          `json:"type"`
	FileName string          `json:"file_name,omitempty"`
	Content  string          `json:"content,omitempty"`
	Path     []string        `json:"path,omitempty"`
	Message  json.RawMessage `json:"message,omitempty"`
}

// State is the editor state pushed after every change.
type State struct {
	editor.Snapshot
	Mode         string `json:"mode"`
	RenameTarget string `json:"rename_target,omitempty"`
}

// Frame is an outgoing websocket message.
type Frame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	State     *State `json:"state,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Session is one connected editor.
type Session struct {
	ID        string
	ProjectID int64

	conn    *websocket.Conn
	editor  *editor.Orchestrator
	tabs    *tabs.Machine
	bus     *tabs.Bus
	mailbox *bridge.Mailbox

	dirty    chan struct{}
	reloadCh chan struct{}
	saveErrs chan error
}

func newSession(conn *websocket.Conn, projectID int64, collab editor.Collaborator, saveTimeout time.Duration) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		conn:      conn,
		bus:       tabs.NewBus(),
		dirty:     make(chan struct{}, 1),
		reloadCh:  make(chan struct{}, 1),
		saveErrs:  make(chan error, 8),
	}
	s.editor = editor.New(collab, projectID,
		editor.WithNotify(s.markDirty),
		editor.WithSaveTimeout(saveTimeout),
	)
	s.tabs = tabs.New(s.editor)
	s.mailbox = bridge.NewMailbox(func(in bridge.Intent) {
		s.editor.Navigate(in.File)
	})
	return s
}

// Reload asks the session to refetch its files. Requests coalesce.
func (s *Session) Reload() {
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
}

func (s *Session) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// run is the session's event loop. It returns when the connection closes or
// ctx is cancelled.
func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.tabs.Mount(s.bus)
	defer s.tabs.Unmount()

	inbox := make(chan []byte)
	go s.readLoop(ctx, inbox)

	s.load(ctx)
	s.sendState()

	for {
		select {
		case <-ctx.Done():
			return

		case raw, ok := <-inbox:
			if !ok {
				return
			}
			var cmd Command
			if err := json.Unmarshal(raw, &cmd); err != nil {
				s.sendError(fmt.Errorf("invalid message format: %w", err))
				continue
			}
			if err := s.handle(ctx, cmd); err != nil {
				slog.Debug("session: command failed",
					slog.String("session_id", s.ID),
					slog.String("command", cmd.Type),
					slog.String("error", err.Error()))
				s.sendError(err)
			}
			s.tabs.Prune(s.editor.Exists)
			s.clearDirty()
			s.sendState()

		case <-s.reloadCh:
			s.load(ctx)
			s.clearDirty()
			s.sendState()

		case err := <-s.saveErrs:
			s.sendError(err)

		case <-s.dirty:
			s.sendState()
		}
	}
}

func (s *Session) readLoop(ctx context.Context, inbox chan<- []byte) {
	defer close(inbox)
	s.conn.SetReadLimit(maxMessageSize)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("session: websocket read", slog.String("session_id", s.ID), slog.String("error", err.Error()))
			}
			return
		}
		select {
		case inbox <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) load(ctx context.Context) {
	if err := s.editor.Load(ctx); err != nil {
		slog.Warn("session: load failed",
			slog.Int64("project_id", s.ProjectID),
			slog.String("error", err.Error()))
		return
	}
	s.tabs.Prune(s.editor.Exists)
}

// handle applies one command.
func (s *Session) handle(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdSelect:
		s.tabs.Select(cmd.FileName)
	case CmdDoubleActivate:
		s.tabs.DoubleActivate(cmd.FileName)
	case CmdRenameIntent:
		s.tabs.RenameIntent()
	case CmdRenameCommit:
		return s.tabs.CommitRename(ctx, cmd.FileName)
	case CmdRenameCancel:
		s.tabs.CancelRename()
	case CmdPointerDown:
		s.bus.Dispatch(tabs.PointerEvent{Path: cmd.Path})
	case CmdDelete:
		return s.tabs.Delete(ctx)
	case CmdAdd:
		return s.tabs.Add(ctx)
	case CmdUpload:
		return s.tabs.Upload(ctx, cmd.FileName, []byte(cmd.Content))
	case CmdSave:
		done := s.editor.Save(ctx, cmd.Content)
		go func() {
			if err := <-done; err != nil {
				select {
				case s.saveErrs <- err:
				case <-ctx.Done():
				}
			}
		}()
	case CmdPreviewMessage:
		// Anything but a navigate intent is dropped without a reply.
		s.mailbox.Deliver(cmd.Message)
	case CmdToggleTabs:
		s.editor.ToggleTabs()
	case CmdTogglePreview:
		s.editor.TogglePreview()
	case CmdReload:
		if err := s.editor.Load(ctx); err != nil {
			return err
		}
		s.tabs.Prune(s.editor.Exists)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return nil
}

func (s *Session) clearDirty() {
	select {
	case <-s.dirty:
	default:
	}
}

func (s *Session) state() *State {
	mode, target := s.tabs.State()
	return &State{
		Snapshot:     s.editor.Snapshot(),
		Mode:         mode.String(),
		RenameTarget: target,
	}
}

func (s *Session) sendState() {
	s.write(Frame{Type: FrameState, SessionID: s.ID, State: s.state()})
}

func (s *Session) sendError(err error) {
	s.write(Frame{Type: FrameError, SessionID: s.ID, Error: err.Error()})
}

func (s *Session) write(f Frame) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(f); err != nil {
		slog.Debug("session: websocket write", slog.String("session_id", s.ID), slog.String("error", err.Error()))
	}
}
