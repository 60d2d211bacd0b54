package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/gradebook"
	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/student"
	"github.com/libreta/backend/core/user"
	logsvc "github.com/libreta/backend/services/logger"
	"github.com/libreta/backend/storage"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB; migrations are left to the migrate command
	repos, err := storage.Open(conf, false)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	auditSvc := audit.NewService(repos.Audit)
	studentSvc := student.NewService(repos.Student, auditSvc, validate)

	// start CLI
	cli := commandLine{
		db:           repos.DB,
		out:          os.Stdout,
		usrSvc:       user.NewService(repos.User),
		tokens:       user.NewResetTokens(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		studentSvc:   studentSvc,
		gradebookSvc: gradebook.NewService(repos.Grade, studentSvc, auditSvc, grading.DefaultCurriculum(), validate),
	}
	err = cli.run(os.Args)
	if cErr := repos.Close(); cErr != nil {
		logger.Error("Failed to close storage", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
