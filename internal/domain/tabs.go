package domain

// TabKind discriminates the Tab variant.
type TabKind string

const (
	TabSession    TabKind = "session"
	TabNewSession TabKind = "new_session"
	TabEditor     TabKind = "editor"
	TabDiff       TabKind = "diff"
)

// Tab is one entry in the ordered tab strip. Exactly one live session may be
// referenced by a session tab at a time; the workspace store enforces that.
type Tab struct {
	Kind      TabKind `json:"kind"`
	SessionID string  `json:"session_id,omitempty"` // session tabs only
	Path      string  `json:"path,omitempty"`       // editor tabs only

	// Diff tabs only.
	File   string `json:"file,omitempty"`
	Staged bool   `json:"staged,omitempty"`
	Base   string `json:"base,omitempty"`
	Commit string `json:"commit,omitempty"`
}

// SessionTab returns a tab referencing a live session.
func SessionTab(sessionID string) Tab {
	return Tab{Kind: TabSession, SessionID: sessionID}
}

// NewSessionTab returns the placeholder tab for creating a session.
func NewSessionTab() Tab {
	return Tab{Kind: TabNewSession}
}

// EditorTab returns a tab viewing a file.
func EditorTab(path string) Tab {
	return Tab{Kind: TabEditor, Path: path}
}

// DiffTab returns a tab viewing a diff.
func DiffTab(file string, staged bool, base, commit string) Tab {
	return Tab{Kind: TabDiff, File: file, Staged: staged, Base: base, Commit: commit}
}

// Same reports whether two tabs reference the same underlying view.
func (t Tab) Same(other Tab) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TabSession:
		return t.SessionID == other.SessionID
	case TabEditor:
		return t.Path == other.Path
	case TabDiff:
		return t.File == other.File && t.Staged == other.Staged &&
			t.Base == other.Base && t.Commit == other.Commit
	default:
		return true
	}
}
