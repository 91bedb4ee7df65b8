// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package i18n holds the user-visible strings of the chat session in French
// and English.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/model"
)

// Message keys. English text doubles as the key.
const (
	keyUser          = "You"
	keyAssistant     = "Assistant"
	keySources       = "Sources"
	keyServerError   = "Server error: %s"
	keyTryLater      = "try again later"
	keyInvalidReply  = "invalid response"
	keyTyping        = "Assistant is typing..."
	keyEmptyHistory  = "No history."
	keyHistoryTitle  = "Chat history"
	keyDownloadName  = "chat_history.txt"
	keyPlaceholder   = "Type a message..."
	keyCleared       = "History cleared."
	keySavedTo       = "Saved to %s"
	keyNothingToSave = "Nothing to export."
)

// DefaultLocale is used for empty or unrecognized locales.
var DefaultLocale = language.French

var supported = []language.Tag{language.French, language.English}

var matcher = language.NewMatcher(supported)

func init() {
	fr := language.French
	for key, text := range map[string]string{
		keyUser:          "Vous",
		keyAssistant:     "Assistant",
		keySources:       "Sources",
		keyServerError:   "Erreur serveur : %s",
		keyTryLater:      "réessayez plus tard",
		keyInvalidReply:  "réponse invalide",
		keyTyping:        "L'assistant écrit...",
		keyEmptyHistory:  "Aucun historique.",
		keyHistoryTitle:  "Historique du chat",
		keyDownloadName:  "historique_chat.txt",
		keyPlaceholder:   "Écrivez votre message...",
		keyCleared:       "Historique effacé.",
		keySavedTo:       "Enregistré dans %s",
		keyNothingToSave: "Rien à exporter.",
	} {
		message.SetString(fr, key, text)
	}
}

// Translator renders strings for one locale.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a translator for locale ("fr", "en", "fr-CA", ...).
// Unsupported or empty locales fall back to DefaultLocale.
func New(locale string) *Translator {
	tag := DefaultLocale
	if locale = strings.TrimSpace(locale); locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			if _, idx, conf := matcher.Match(parsed); conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Translator{tag: tag, printer: message.NewPrinter(tag)}
}

// Locale returns the resolved locale tag, e.g. "fr".
func (t *Translator) Locale() string {
	return t.tag.String()
}

// Supported lists the locales New resolves to.
func Supported() []string {
	out := make([]string, len(supported))
	for i, tag := range supported {
		out[i] = tag.String()
	}
	return out
}

// AuthorLabel returns the display name of an author.
func (t *Translator) AuthorLabel(a model.Author) string {
	if a == model.AuthorUser {
		return t.printer.Sprintf(keyUser)
	}
	return t.printer.Sprintf(keyAssistant)
}

// Labels returns the export labels for this locale.
func (t *Translator) Labels() export.Labels {
	return export.Labels{
		User:      t.printer.Sprintf(keyUser),
		Assistant: t.printer.Sprintf(keyAssistant),
		Sources:   t.printer.Sprintf(keySources),
	}
}

// ErrorNotice is the assistant message shown when a turn fails.
// An empty detail uses the "try again later" fallback.
func (t *Translator) ErrorNotice(detail string) string {
	if strings.TrimSpace(detail) == "" {
		detail = t.TryLater()
	}
	return t.printer.Sprintf(keyServerError, detail)
}

// TryLater is the generic failure detail.
func (t *Translator) TryLater() string {
	return t.printer.Sprintf(keyTryLater)
}

// InvalidReply is the failure detail for malformed backend replies.
func (t *Translator) InvalidReply() string {
	return t.printer.Sprintf(keyInvalidReply)
}

func (t *Translator) TypingNotice() string {
	return t.printer.Sprintf(keyTyping)
}

func (t *Translator) EmptyHistory() string {
	return t.printer.Sprintf(keyEmptyHistory)
}

func (t *Translator) HistoryTitle() string {
	return t.printer.Sprintf(keyHistoryTitle)
}

// DownloadFileName is the file written by the download action.
func (t *Translator) DownloadFileName() string {
	return t.printer.Sprintf(keyDownloadName)
}

func (t *Translator) Placeholder() string {
	return t.printer.Sprintf(keyPlaceholder)
}

func (t *Translator) Cleared() string {
	return t.printer.Sprintf(keyCleared)
}

func (t *Translator) SavedTo(path string) string {
	return t.printer.Sprintf(keySavedTo, path)
}

func (t *Translator) NothingToExport() string {
	return t.printer.Sprintf(keyNothingToSave)
}
