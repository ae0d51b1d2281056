package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/saswatpal/handlewarrior/internal/db"
	"github.com/saswatpal/handlewarrior/internal/relay"
	"github.com/saswatpal/handlewarrior/internal/telegram"
)

// Fixed user-visible diagnostics. All backend failures collapse to one of
// these; nothing propagates past the handler.
const (
	MsgGeminiError        = "⚠️ Gemini API Error. Please try again later."
	MsgTranscriptionError = "⚠️ Voice transcription not available now."
	MsgImageError         = "⚠️ Image analysis not available now."
)

const welcomeText = "👋 Hello! I'm *Handle Warrior*, your AI assistant.\n\n" +
	"📩 Send me *text*, 🎤 *voice*, or 🖼 *image*, and I’ll reply instantly.\n\n" +
	"Powered by OpenAI + Gemini."

// Messenger is the outbound chat-platform surface used by handlers.
type Messenger interface {
	SendMessage(chatID int64, text string) error
	GetFile(fileID string) (telegram.File, error)
	DownloadFile(filePath string) ([]byte, error)
}

// Transcriber converts a downloaded voice recording to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// ImageDescriber produces a free-text description of raw image bytes.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, imageData []byte) (string, error)
}

// Handler dispatches inbound updates to the per-modality flows. One
// handler instance serves all users; the dispatch loop calls it
// sequentially.
type Handler struct {
	Messenger   Messenger
	Coordinator *relay.Coordinator
	Transcriber Transcriber
	Images      ImageDescriber

	// DB is the operational event log; nil disables event recording.
	DB          *sql.DB
	RootEventID int64

	// TempDir holds downloaded attachments for the duration of one
	// handler invocation. Empty means os.TempDir().
	TempDir string
}

// HandleUpdate routes one update to its modality flow. It never returns
// an error: every failure ends as a user-visible diagnostic.
func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	switch {
	case msg.Text != nil && strings.TrimSpace(*msg.Text) == "/start":
		h.handleStart(msg)
	case msg.Text != nil && *msg.Text != "":
		h.handleText(ctx, msg, *msg.Text)
	case msg.Voice != nil:
		h.handleVoice(ctx, msg)
	case len(msg.Photo) > 0:
		h.handlePhoto(ctx, msg)
	}
}

func (h *Handler) handleStart(msg *telegram.Message) {
	h.send(msg.Chat.ID, welcomeText)
}

func (h *Handler) handleText(ctx context.Context, msg *telegram.Message, text string) {
	userID := senderID(msg)
	msgEventID := h.logEvent(h.RootEventID, db.EventMessageReceived, map[string]any{
		"handling_id": uuid.NewString(),
		"chat_id":     msg.Chat.ID,
		"kind":        "text",
	})

	res := h.Coordinator.Reply(ctx, userID, text)
	if res.PrimaryErr != nil {
		h.logEvent(msgEventID, db.EventPrimaryFailed, map[string]any{
			"error": truncate(res.PrimaryErr.Error(), 500),
		})
	}

	reply := res.Text
	switch {
	case res.OK() && res.Tier == relay.TierFallback:
		h.logEvent(msgEventID, db.EventFallbackUsed, nil)
	case !res.OK():
		h.logEvent(msgEventID, db.EventFallbackFailed, map[string]any{
			"error": truncate(res.Err.Error(), 500),
		})
		reply = MsgGeminiError
	}

	h.send(msg.Chat.ID, reply)
	h.logEvent(msgEventID, db.EventReplySent, map[string]any{"chat_id": msg.Chat.ID})
}

// handleVoice transcribes the voice note and runs the transcribed text
// through the with-memory primary flow. Voice has no fallback tier: any
// failure surfaces the transcription diagnostic.
func (h *Handler) handleVoice(ctx context.Context, msg *telegram.Message) {
	userID := senderID(msg)
	msgEventID := h.logEvent(h.RootEventID, db.EventMessageReceived, map[string]any{
		"handling_id": uuid.NewString(),
		"chat_id":     msg.Chat.ID,
		"kind":        "voice",
	})

	voicePath, err := h.downloadToTemp(msg.Voice.FileID, ".ogg")
	if err != nil {
		log.Printf("[bot] voice download error: %v", err)
		h.logEvent(msgEventID, db.EventTranscriptionFailed, map[string]any{
			"error": truncate(err.Error(), 500),
		})
		h.send(msg.Chat.ID, MsgTranscriptionError)
		return
	}
	defer os.Remove(voicePath)

	transcribed, err := h.Transcriber.Transcribe(ctx, voicePath)
	if err != nil {
		log.Printf("[bot] transcription error: %v", err)
		h.logEvent(msgEventID, db.EventTranscriptionFailed, map[string]any{
			"error": truncate(err.Error(), 500),
		})
		h.send(msg.Chat.ID, MsgTranscriptionError)
		return
	}

	res := h.Coordinator.WithMemory(ctx, userID, transcribed)
	if !res.OK() {
		h.logEvent(msgEventID, db.EventPrimaryFailed, map[string]any{
			"error": truncate(res.Err.Error(), 500),
		})
		h.send(msg.Chat.ID, MsgTranscriptionError)
		return
	}

	h.send(msg.Chat.ID, fmt.Sprintf("🗣 You said: %s\n🤖 Reply: %s", transcribed, res.Text))
	h.logEvent(msgEventID, db.EventReplySent, map[string]any{"chat_id": msg.Chat.ID})
}

// handlePhoto runs the stateless image-description flow. It never touches
// conversation history.
func (h *Handler) handlePhoto(ctx context.Context, msg *telegram.Message) {
	msgEventID := h.logEvent(h.RootEventID, db.EventMessageReceived, map[string]any{
		"handling_id": uuid.NewString(),
		"chat_id":     msg.Chat.ID,
		"kind":        "photo",
	})

	// Last entry is the largest size.
	photo := msg.Photo[len(msg.Photo)-1]
	photoPath, err := h.downloadToTemp(photo.FileID, ".jpg")
	if err != nil {
		log.Printf("[bot] photo download error: %v", err)
		h.logEvent(msgEventID, db.EventImageFailed, map[string]any{
			"error": truncate(err.Error(), 500),
		})
		h.send(msg.Chat.ID, MsgImageError)
		return
	}
	defer os.Remove(photoPath)

	imageData, err := os.ReadFile(photoPath)
	if err != nil {
		log.Printf("[bot] photo read error: %v", err)
		h.logEvent(msgEventID, db.EventImageFailed, map[string]any{
			"error": truncate(err.Error(), 500),
		})
		h.send(msg.Chat.ID, MsgImageError)
		return
	}

	description, err := h.Images.DescribeImage(ctx, imageData)
	if err != nil {
		log.Printf("[bot] image analysis error: %v", err)
		h.logEvent(msgEventID, db.EventImageFailed, map[string]any{
			"error": truncate(err.Error(), 500),
		})
		h.send(msg.Chat.ID, MsgImageError)
		return
	}

	h.send(msg.Chat.ID, "🖼 Image Analysis:\n"+description)
	h.logEvent(msgEventID, db.EventReplySent, map[string]any{"chat_id": msg.Chat.ID})
}

// downloadToTemp resolves and downloads an attachment into a uniquely
// named file under TempDir. Callers remove the file on every exit path.
func (h *Handler) downloadToTemp(fileID, suffix string) (string, error) {
	file, err := h.Messenger.GetFile(fileID)
	if err != nil {
		return "", err
	}
	data, err := h.Messenger.DownloadFile(file.FilePath)
	if err != nil {
		return "", err
	}

	dir := h.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, uuid.NewString()+suffix)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, nil
}

func (h *Handler) send(chatID int64, text string) {
	if err := h.Messenger.SendMessage(chatID, text); err != nil {
		log.Printf("[bot] sendMessage error chat_id=%d: %v", chatID, err)
	}
}

// logEvent records an operational event, returning its id. Event logging
// is best effort and never affects message handling.
func (h *Handler) logEvent(parentID int64, eventType string, payload map[string]any) int64 {
	if h.DB == nil {
		return 0
	}
	var parent *int64
	if parentID > 0 {
		parent = &parentID
	}
	id, err := db.LogEvent(h.DB, parent, eventType, payload)
	if err != nil {
		log.Printf("[bot] failed to log %s: %v", eventType, err)
		return 0
	}
	return id
}

func senderID(msg *telegram.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
