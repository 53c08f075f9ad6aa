package main

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/gamification"
	"github.com/clms-app/clms/core/user"
	logsvc "github.com/clms-app/clms/services/logger"
	rediscache "github.com/clms-app/clms/storage/cache/redis"
	"github.com/clms-app/clms/storage/database"
	sqlxrepos "github.com/clms-app/clms/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	sink, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(sink.Named("admin"), conf)
	defer logger.Close()

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	validate, translator := newValidator()
	user.LoadCommonPasswords(logger)

	opts := gamification.Options{Conf: conf, Logger: logger, Validate: validate}
	if conf.Redis.Enabled {
		client, err := rediscache.NewClient(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer client.Close()
		opts.Cache = rediscache.NewLeaderboardCache(client, conf)
	}

	// start CLI
	cli := commandLine{
		db:         db,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db), validate),
		gmfSvc:     gamification.NewService(sqlxrepos.NewGamificationStore(db), opts),
		translator: translator,
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", cli.describe(err))
		}
		logger.Close()
		os.Exit(1)
	}
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}
