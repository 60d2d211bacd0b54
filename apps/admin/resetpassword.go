package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	_, err := cli.usrSvc.SetPassword(context.Background(), uname, pwd)
	return err
}

// resetLink prints the uid and token to POST to /v1/users/password-reset-confirm.
func (cli *commandLine) resetLink(uname string) error {
	uid, token, err := cli.usrSvc.IssueResetToken(context.Background(), cli.tokens, uname)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "uid: %s\ntoken: %s\n", uid, token)
	return nil
}
