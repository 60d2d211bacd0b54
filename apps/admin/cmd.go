package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/libreta/backend/core/gradebook"
	"github.com/libreta/backend/core/student"
	"github.com/libreta/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db           *sqlx.DB // nil with in-memory storage
	out          io.Writer
	usrSvc       *user.Service
	tokens       *user.ResetTokens
	studentSvc   *student.Service
	gradebookSvc *gradebook.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the database")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME [-email EMAIL] [-admin] - create or reactivate a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  resetlink -username USERNAME|EMAIL - issue a password reset token for the user to confirm through the API")
	fmt.Fprintln(cli.out, "  importroster -file FILE.csv [-year YEAR] - enroll the students listed in a CSV file")
	fmt.Fprintln(cli.out, "  recompute [-area AREA] [-bimester N] [-grade N -section S -year YEAR] - recompute stored grades")
}

func (cli *commandLine) readPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	resetLinkCmd := flag.NewFlagSet("resetlink", flag.ContinueOnError)
	resetLinkUname := resetLinkCmd.String("username", "", "The user's username or email.")

	importCmd := flag.NewFlagSet("importroster", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "CSV file with a header row.")
	importYear := importCmd.Int("year", 0, "School year of rows without a year column.")

	recomputeCmd := flag.NewFlagSet("recompute", flag.ContinueOnError)
	recomputeArea := recomputeCmd.String("area", "", "Subject area code.")
	recomputeBimester := recomputeCmd.Int("bimester", 0, "Bimester (1-4).")
	recomputeGrade := recomputeCmd.Int("grade", 0, "Classroom grade.")
	recomputeSection := recomputeCmd.String("section", "", "Classroom section.")
	recomputeYear := recomputeCmd.Int("year", 0, "School year.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, resetLinkCmd, importCmd, recomputeCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "resetlink":
		if err := resetLinkCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetLinkUname == "" {
			resetLinkCmd.Usage()
			return errHelp
		}
		return cli.resetLink(*resetLinkUname)

	case "importroster":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importRoster(*importFile, *importYear)

	case "recompute":
		if err := recomputeCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.recompute(gradebook.RecordFilter{
			Area:     *recomputeArea,
			Bimester: *recomputeBimester,
			Grade:    *recomputeGrade,
			Section:  *recomputeSection,
			Year:     *recomputeYear,
		})

	default:
		cli.printUsage()
		return errHelp
	}
}
