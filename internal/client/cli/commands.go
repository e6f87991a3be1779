package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hobbyvault/internal/client/client"
	"github.com/dmitrijs2005/hobbyvault/internal/common"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// ErrUnknownCommand is returned by exec for anything it does not handle.
var ErrUnknownCommand = errors.New("unknown command")

func (a *App) exec(ctx context.Context, cmd string) error {
	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "logout":
		return a.Logout(ctx)
	case "delete-account":
		return a.DeleteAccount(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) readCredentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func (a *App) Register(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.client.Register(ctx, email, string(password))
	if err != nil {
		return a.report("Registration failed", err)
	}
	a.email = u.Email
	fmt.Fprintf(a.out, "Registered and logged in as %s\n", u.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return a.report("Login failed", err)
	}
	a.email = u.Email
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.client.WhoAmI(ctx)
	if err != nil {
		return a.report("Request failed", err)
	}
	a.email = u.Email
	fmt.Fprintf(a.out, "%s (%s)\n", u.Email, u.ID)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return a.report("Logout failed", err)
	}
	a.email = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// accountDeleter is implemented by clients that support account removal.
type accountDeleter interface {
	DeleteAccount(ctx context.Context) error
}

func (a *App) DeleteAccount(ctx context.Context) error {
	d, ok := a.client.(accountDeleter)
	if !ok {
		return a.report("Delete failed", fmt.Errorf("not supported over %s", a.config.Transport))
	}
	if err := d.DeleteAccount(ctx); err != nil {
		return a.report("Delete failed", err)
	}
	a.email = ""
	fmt.Fprintln(a.out, "Account deleted")
	return nil
}

// report prints a user-facing line for err and returns it.
func (a *App) report(action string, err error) error {
	var inputErr *client.InputError
	switch {
	case errors.As(err, &inputErr):
		fmt.Fprintf(a.out, "%s: %s\n", action, inputErr.Error())
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintf(a.out, "%s: not authorized, please log in\n", action)
	case errors.Is(err, client.ErrConflict):
		fmt.Fprintf(a.out, "%s: email already registered\n", action)
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintf(a.out, "%s: server unavailable\n", action)
	default:
		fmt.Fprintf(a.out, "%s: %v\n", action, err)
	}
	return err
}
