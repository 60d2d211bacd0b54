package main

import (
	"context"
	"fmt"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	usr, err := cli.usrSvc.AddOrUpdate(context.Background(), uname, email, pwd, isAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q saved with roles %v\n", usr.DisplayName(), usr.Roles)
	return nil
}
