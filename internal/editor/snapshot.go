package editor

import "github.com/starford/livepad/internal/models"

// Tab is one row of the file tab panel.
type Tab struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
}

// Snapshot is a point-in-time copy of the editor state.
type Snapshot struct {
	ProjectID          int64  `json:"project_id"`
	ProjectName        string `json:"project_name,omitempty"`
	ProjectDescription string `json:"project_description,omitempty"`
	Files              []Tab  `json:"files"`
	ActiveID           int64  `json:"active_id"`
	ActiveFileName     string `json:"active_file_name,omitempty"`
	Content            string `json:"content"`
	Preview            string `json:"preview"`
	Error              string `json:"error,omitempty"`
	FetchError         string `json:"fetch_error,omitempty"`
	Saving             bool   `json:"saving"`
	TabsCollapsed      bool   `json:"tabs_collapsed"`
	PreviewCollapsed   bool   `json:"preview_collapsed"`
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	files := o.reg.Files()
	tabs := make([]Tab, len(files))
	for i, f := range files {
		tabs[i] = Tab{ID: f.ID, FileName: f.FileName}
	}
	s := Snapshot{
		ProjectID:        o.projectID,
		Files:            tabs,
		ActiveID:         o.reg.Active(),
		Preview:          o.doc,
		Error:            o.errMsg,
		FetchError:       o.fetchErr,
		Saving:           o.saving > 0,
		TabsCollapsed:    o.tabsCollapsed,
		PreviewCollapsed: o.previewCollapsed,
	}
	if o.project != nil {
		s.ProjectName = o.project.Name
		s.ProjectDescription = o.project.Description
	}
	if s.ActiveID != models.NoFile {
		if f, ok := o.reg.ActiveFile(); ok {
			s.ActiveFileName = f.FileName
			s.Content = f.Content
		}
	}
	return s
}
