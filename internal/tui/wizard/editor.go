package wizard

import (
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/editor"
	"github.com/mark3labs/stepform/internal/logger"
)

// FieldEditedMsg is sent when the external editor returns with new content
// for a textarea field.
type FieldEditedMsg struct {
	Field   string
	Content string
}

// editorAvailable reports whether ctrl+e can open an editor.
func editorAvailable() bool {
	return os.Getenv("EDITOR") != "" || os.Getenv("VISUAL") != ""
}

// openEditor launches $EDITOR on a temp file seeded with content.
func openEditor(field, content string) tea.Cmd {
	tmpfile, err := os.CreateTemp("", "stepform_"+field+"_*.md")
	if err != nil {
		logger.Warn("Failed to create temp file for editor: %v", err)
		return nil
	}

	if _, err := tmpfile.WriteString(content); err != nil {
		_ = tmpfile.Close()
		_ = os.Remove(tmpfile.Name())
		return nil
	}
	_ = tmpfile.Close()

	cmd, err := editor.Command("stepform", tmpfile.Name())
	if err != nil {
		_ = os.Remove(tmpfile.Name())
		logger.Warn("No editor available: %v", err)
		return nil
	}

	path := tmpfile.Name()
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		defer os.Remove(path)
		if err != nil {
			logger.Warn("Editor exited with error: %v", err)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		return FieldEditedMsg{Field: field, Content: string(data)}
	})
}
