package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keebstack/switchbook/internal/auth"
	"github.com/keebstack/switchbook/internal/catalog"
	"github.com/keebstack/switchbook/internal/config"
	"github.com/keebstack/switchbook/internal/database"
	"github.com/keebstack/switchbook/internal/forcecurve"
	"github.com/keebstack/switchbook/internal/ids"
	"github.com/keebstack/switchbook/internal/images"
	"github.com/keebstack/switchbook/internal/logging"
	"github.com/keebstack/switchbook/internal/manufacturers"
	"github.com/keebstack/switchbook/internal/master"
	"github.com/keebstack/switchbook/internal/notify"
	"github.com/keebstack/switchbook/internal/server"
	"github.com/keebstack/switchbook/internal/switches"
	"github.com/keebstack/switchbook/internal/users"
	"github.com/keebstack/switchbook/internal/wishlist"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "switchbook-api",
		Short: "Switchbook keyboard switch catalogue backend",
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
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("uploads-dir", defaults.GetString("uploads.dir"), "Directory for uploaded images")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().String("force-curve-base-url", defaults.GetString("forcecurve.base_url"), "Force curve repository base URL")
	cmd.PersistentFlags().Bool("dev-login", defaults.GetBool("auth.dev_login"), "Expose the development login endpoint")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "uploads.dir", "uploads-dir")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "session.signing_secret", "signing-secret")
	bindFlag(cmd, "forcecurve.base_url", "force-curve-base-url")
	bindFlag(cmd, "auth.dev_login", "dev-login")
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

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	idProvider := ids.NewUUIDProvider()

	usersService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	manufacturerService, err := manufacturers.NewService(manufacturers.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher()
	notifyService, err := notify.NewService(notify.ServiceConfig{
		Database:     db,
		IDProvider:   idProvider,
		AdminUserIDs: usersService.AdminUserIDs,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	switchesService, err := switches.NewService(switches.ServiceConfig{
		Database:      db,
		IDProvider:    idProvider,
		Manufacturers: manufacturerService,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	masterService, err := master.NewService(master.ServiceConfig{
		Database:      db,
		IDProvider:    idProvider,
		Manufacturers: manufacturerService,
		Notifier:      notifyService,
		LinkedOwners:  switchesService.LinkedOwnerIDs,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	imageStore, err := images.NewDiskStore(appConfig.UploadDir, "/uploads")
	if err != nil {
		return err
	}
	imagesService, err := images.NewService(images.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Store:      imageStore,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	forceCurveService, err := forcecurve.NewService(forcecurve.ServiceConfig{
		Database: db,
		BaseURL:  appConfig.ForceCurveBaseURL,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.SessionSigningKey),
		Issuer:        appConfig.SessionIssuer,
		CookieName:    appConfig.SessionCookieName,
	})
	if err != nil {
		return err
	}
	sessionIssuer := auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: []byte(appConfig.SessionSigningKey),
		Issuer:        appConfig.SessionIssuer,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		SessionValidator: sessionValidator,
		SessionIssuer:    sessionIssuer,
		UsersService:     usersService,
		SwitchesService:  switchesService,
		MasterService:    masterService,
		ImagesService:    imagesService,
		Manufacturers:    manufacturerService,
		CatalogService:   catalogService,
		WishlistService:  wishlistService,
		NotifyService:    notifyService,
		Dispatcher:       dispatcher,
		ForceCurves:      forceCurveService,
		UploadDir:        appConfig.UploadDir,
		DevLoginEnabled:  appConfig.DevLoginEnabled,
		Logger:           logger,
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
