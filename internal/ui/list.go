package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/scribe/internal/models"
)

var (
	_ list.Item = historyItem{}
)

// historyItem wraps [models.Transcription] to implement [list.Item].
type historyItem struct {
	transcription *models.Transcription
}

func (i historyItem) FilterValue() string { return i.transcription.DisplayName() }
func (i historyItem) Title() string {
	return fmt.Sprintf("#%d %s", i.transcription.Sequence(), i.transcription.DisplayName())
}
func (i historyItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.transcription.Source, i.transcription.CreatedAt().Local().Format("2006-01-02 15:04"))
	if i.transcription.Title != "" && i.transcription.Title != i.transcription.SourceName {
		desc = fmt.Sprintf("%s • %s", desc, i.transcription.SourceName)
	}
	return desc
}

func historyItems(ts []*models.Transcription) []list.Item {
	items := make([]list.Item, len(ts))
	for i, t := range ts {
		items[i] = historyItem{transcription: t}
	}
	return items
}
