package main

import (
	"errors"

	"github.com/pressly/goose/v3"

	"github.com/libreta/backend/storage/database"
)

var (
	gooseRunFunc = goose.Run // mockable

	errNoDatabase = errors.New("migrate needs the postgres storage")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseRunFunc(args[0], cli.db.DB, database.MigrationsDir, args[1:]...)
}
