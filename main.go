package main

import (
	"context"
	"os"
	"slices"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ArshiaRabet/modbot/internal/bot"
	"github.com/ArshiaRabet/modbot/internal/config"
	"github.com/ArshiaRabet/modbot/internal/handlers"
	"github.com/ArshiaRabet/modbot/internal/i18n"
	"github.com/ArshiaRabet/modbot/internal/infra"
	"github.com/ArshiaRabet/modbot/internal/lifecycle"
	"github.com/ArshiaRabet/modbot/internal/observability"
	"github.com/ArshiaRabet/modbot/internal/storage/jsonfile"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.MbFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	if !slices.Contains(i18n.GetLanguagesList(), cfg.DefaultLanguage) {
		log.Warnf("unknown language %q, bot messages fall back to English", cfg.DefaultLanguage)
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	infra.GoRecoverable(-1, "process_updates", func() {
		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}
		defer botAPI.StopReceivingUpdates()

		warnings, err := jsonfile.NewWarningStore(cfg.StoragePath)
		if err != nil {
			log.WithError(err).Fatalln("cant open warnings store")
		}
		service := bot.NewService(botAPI, warnings)

		runtime := lifecycle.NewRuntime(observability.NewServer(cfg.MetricsAddr))
		if err := runtime.Start(ctx); err != nil {
			log.WithError(err).Fatalln("cant start components")
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if err := runtime.Stop(stopCtx); err != nil {
				log.WithError(err).Errorln("cant stop components")
			}
		}()

		bot.RegisterUpdateHandler("commands", handlers.NewCommands(service))
		bot.RegisterUpdateHandler("linkguard", handlers.NewLinkGuard(service))
		bot.RegisterUpdateHandler("greeter", handlers.NewGreeter(service))

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateConfig.AllowedUpdates = []string{"message", "edited_message", "my_chat_member", "chat_member"}
		updateProcessor := bot.NewUpdateProcessor(service)

		updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

		for {
			select {
			case err := <-errorChan:
				log.WithError(err).Fatalln("bot api get updates error")
			case update := <-updateChan:
				if err := updateProcessor.Process(ctx, &update); err != nil {
					log.WithError(err).Errorln("cant process update")
				}
			case <-ctx.Done():
				log.WithError(ctx.Err()).Errorln("no more updates")
				return
			}
		}
	})

	select {
	case <-infra.MonitorExecutable(ctx):
		log.Errorln("executable file was modified")
	}
	os.Exit(0)
}
