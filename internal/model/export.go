package model

import (
	"time"
)

// ExportVersion is the version string written into export documents.
const ExportVersion = "1.0"

// StoredMessage is a message inside an exported chat.
type StoredMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// StoredChat is a single chat inside an export document.
type StoredChat struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	LastMessage string          `json:"lastMessage"`
	Timestamp   time.Time       `json:"timestamp"`
	Messages    []StoredMessage `json:"messages"`
}

// ChatExport is the export/import document exchanged with the UI.
type ChatExport struct {
	ExportedAt time.Time    `json:"exportedAt"`
	Version    string       `json:"version"`
	Chats      []StoredChat `json:"chats"`
}

// ImportResponse reports the outcome of an import.
type ImportResponse struct {
	Imported int `json:"imported"`
	Dropped  int `json:"dropped"`
	Total    int `json:"total"`
}
