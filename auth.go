package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/ruutu-tools/ruutu-client/services/common"
)

func makeLoginCMD() cli.Command {
	cmd := cli.Command{
		Name:   "login",
		Usage:  "sign in and persist the session",
		Action: login,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	return cmd
}

func makeLogoutCMD() cli.Command {
	cmd := cli.Command{
		Name:   "logout",
		Usage:  "clear persisted credentials",
		Action: logout,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	return cmd
}

func login(c *cli.Context) error {
	username := c.String(common.UsernameFlag)
	password := c.String(common.PasswordFlag)
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	if err := cl.sess.Login(context.Background(), username, password); err != nil {
		return err
	}
	fmt.Printf("logged in, role: %s\n", cl.sess.Role())
	return nil
}

func logout(c *cli.Context) error {
	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	cl.sess.Reset()
	fmt.Printf("role: %s\n", cl.sess.Role())
	return nil
}
