package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/clms-app/clms/apps/api/echo"
	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/course"
	"github.com/clms-app/clms/core/gamification"
	"github.com/clms-app/clms/core/user"
	emailsvc "github.com/clms-app/clms/services/email"
	logsvc "github.com/clms-app/clms/services/logger"
	rediscache "github.com/clms-app/clms/storage/cache/redis"
	"github.com/clms-app/clms/storage/database"
	sqlxrepos "github.com/clms-app/clms/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	sink, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(sink.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(sink.Named("db"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate, translator := newValidator()
	user.LoadCommonPasswords(logger)

	opts := gamification.Options{
		Conf:     conf,
		Logger:   logger,
		Validate: validate,
		MailSvc:  mailSvc,
	}
	if conf.Redis.Enabled {
		client, err := rediscache.NewClient(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer client.Close()
		opts.Cache = rediscache.NewLeaderboardCache(client, conf)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), validate)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db), validate)
	gmfSvc := gamification.NewService(sqlxrepos.NewGamificationStore(db), opts)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if n, err := gmfSvc.SeedBadges(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("seeding badges: %v", err), err)
	} else if n > 0 {
		logger.Info(fmt.Sprintf("%d badges seeded", n))
	}

	if opts.Cache != nil {
		sched, err := scheduleLeaderboardRebuild(conf, logger, gmfSvc.RebuildLeaderboard)
		if err != nil {
			logger.Fatal(fmt.Sprintf("scheduling leaderboard rebuild: %v", err), err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			UserSvc:         usrSvc,
			CourseSvc:       courseSvc,
			GamificationSvc: gmfSvc,
			Translator:      translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}
