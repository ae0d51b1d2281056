package main

import (
	"context"
	"log"
	"os"
	"time"

	botpkg "github.com/saswatpal/handlewarrior/internal/bot"
	"github.com/saswatpal/handlewarrior/internal/config"
	"github.com/saswatpal/handlewarrior/internal/db"
	"github.com/saswatpal/handlewarrior/internal/gemini"
	"github.com/saswatpal/handlewarrior/internal/history"
	"github.com/saswatpal/handlewarrior/internal/openai"
	"github.com/saswatpal/handlewarrior/internal/relay"
	"github.com/saswatpal/handlewarrior/internal/telegram"
)

func main() {
	cfg := config.Load()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("[bot] %v", err)
	}
	defer database.Close()

	if err := db.InitSchema(database); err != nil {
		log.Fatalf("[bot] failed to init schema: %v", err)
	}

	rootEventID, err := db.LogEvent(database, nil, db.EventProcessStarted, map[string]any{
		"role":       "bot",
		"pid":        os.Getpid(),
		"chat_model": cfg.ChatModel,
	})
	if err != nil {
		log.Printf("[bot] failed to log process.started: %v", err)
	}

	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Second
	tg := telegram.NewClient(cfg.TelegramAPIBase, cfg.TelegramFileBase,
		time.Duration(cfg.PollTimeout+20)*time.Second)
	primary := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL,
		cfg.ChatModel, cfg.VisionModel, cfg.TranscribeModel, requestTimeout)
	fallback := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiURL, requestTimeout)
	store := history.NewStore(cfg.SystemPrompt, cfg.HistoryWindow)

	handler := &botpkg.Handler{
		Messenger: tg,
		Coordinator: &relay.Coordinator{
			History:  store,
			Primary:  primary,
			Fallback: fallback,
		},
		Transcriber: primary,
		Images:      primary,
		DB:          database,
		RootEventID: rootEventID,
		TempDir:     cfg.TempDir,
	}

	if err := tg.SetMyCommands([]telegram.BotCommand{
		{Command: "start", Description: "Start the bot"},
	}); err != nil {
		log.Printf("[bot] setMyCommands error: %v", err)
	}

	log.Printf("bot running chat_model=%s vision_model=%s window=%d",
		cfg.ChatModel, cfg.VisionModel, cfg.HistoryWindow)

	ctx := context.Background()
	var offset int64

	for {
		updates, err := tg.GetUpdates(offset, cfg.PollTimeout)
		if err != nil {
			log.Printf("getUpdates error: %v", err)
			time.Sleep(time.Duration(cfg.SleepSeconds) * time.Second)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			handler.HandleUpdate(ctx, update)
		}

		if len(updates) == 0 {
			time.Sleep(time.Duration(cfg.SleepSeconds) * time.Second)
		}
	}
}
