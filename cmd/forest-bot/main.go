package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/journeywithfriends/forest-bot/internal/bot"
	"github.com/journeywithfriends/forest-bot/internal/config"
	"github.com/journeywithfriends/forest-bot/internal/line"
	"github.com/journeywithfriends/forest-bot/internal/logging"
	"github.com/journeywithfriends/forest-bot/internal/reservation"
	"github.com/journeywithfriends/forest-bot/internal/server"
	"github.com/journeywithfriends/forest-bot/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "forest-bot",
		Short: "LINE chat bot with spreadsheet-backed seat reservations",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("spreadsheet-id", defaults.GetString("sheets.spreadsheet_id"), "Reservation spreadsheet identifier")
	cmd.PersistentFlags().String("sheets-partition", defaults.GetString("sheets.partition"), "Tab partition scheme (group or shared)")
	cmd.PersistentFlags().String("sheets-shared-tab", defaults.GetString("sheets.shared_tab"), "Tab name for the shared partition scheme")
	cmd.PersistentFlags().String("booking-page-url", defaults.GetString("booking.page_url"), "Booking page the reserve trigger links to")
	cmd.PersistentFlags().Duration("welcome-cooldown", defaults.GetDuration("bot.welcome_cooldown"), "Minimum interval between welcome replies")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "sheets.spreadsheet_id", "spreadsheet-id")
	bindFlag(cmd, "sheets.partition", "sheets-partition")
	bindFlag(cmd, "sheets.shared_tab", "sheets-shared-tab")
	bindFlag(cmd, "booking.page_url", "booking-page-url")
	bindFlag(cmd, "bot.welcome_cooldown", "welcome-cooldown")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sheetsService, err := sheets.NewService(ctx, appConfig.CredentialsB64)
	if err != nil {
		return err
	}

	store, err := sheets.NewClient(sheets.ClientConfig{
		SpreadsheetID: appConfig.SpreadsheetID,
		Service:       sheetsService,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	lineClient, err := line.NewClient(appConfig.ChannelToken)
	if err != nil {
		return err
	}

	reservations, err := reservation.NewService(reservation.ServiceConfig{
		Store:           store,
		Directory:       lineClient,
		PartitionScheme: appConfig.PartitionScheme,
		SharedTabName:   appConfig.SharedTabName,
		Clock:           time.Now,
		IDProvider:      reservation.NewUUIDProvider(),
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	dispatcher, err := bot.NewDispatcher(bot.DispatcherConfig{
		Replier:         lineClient,
		BookingPageURL:  appConfig.BookingPageURL,
		WelcomeCooldown: appConfig.WelcomeCooldown,
		Clock:           time.Now,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Dispatcher:    dispatcher,
		Reservations:  reservations,
		ChannelSecret: appConfig.ChannelSecret,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
