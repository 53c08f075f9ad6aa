package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/gamification"
	"github.com/clms-app/clms/core/user"
	"github.com/clms-app/clms/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	usrSvc     *user.Service
	gmfSvc     *gamification.Service
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, ...)")
	fmt.Fprintln(cli.out, "  seedbadges - create the missing default badges")
	fmt.Fprintln(cli.out, "  resetpassword -role teacher|student -email EMAIL - reset an account's password")
	fmt.Fprintln(cli.out, "  rebuildleaderboard - rebuild the leaderboard cache")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordRole := resetPasswordCmd.String("role", core.RoleStudent, "The account's role: teacher or student.")
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return migrateFunc(ctx, cli.db, args[2], args[3:]...)

	case "seedbadges":
		n, err := cli.gmfSvc.SeedBadges(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%d badges created\n", n)
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			if err == flag.ErrHelp {
				return errHelp
			}
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.usrSvc.SetPassword(ctx, user.SetPassword{
			Role:     *resetPasswordRole,
			Email:    *resetPasswordEmail,
			Password: string(pwd),
		})

	case "rebuildleaderboard":
		if err := cli.gmfSvc.RebuildLeaderboard(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "leaderboard rebuilt")
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

// describe renders validation errors with their translated messages.
func (cli *commandLine) describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || cli.translator == nil {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+": "+fe.Translate(cli.translator))
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
