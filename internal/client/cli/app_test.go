package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hobbyvault/internal/client/client"
	"github.com/dmitrijs2005/hobbyvault/internal/client/config"
)

type fakeClient struct {
	loggedIn bool
	user     *client.User
	err      error
	closed   bool
	deleted  bool

	gotEmail, gotPassword string
}

func (f *fakeClient) Register(ctx context.Context, email, password string) (*client.User, error) {
	return f.session(email, password)
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*client.User, error) {
	return f.session(email, password)
}

func (f *fakeClient) session(email, password string) (*client.User, error) {
	f.gotEmail, f.gotPassword = email, password
	if f.err != nil {
		return nil, f.err
	}
	f.loggedIn = true
	return f.user, nil
}

func (f *fakeClient) WhoAmI(ctx context.Context) (*client.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.err
}

func (f *fakeClient) DeleteAccount(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = true
	f.loggedIn = false
	return nil
}

func (f *fakeClient) LoggedIn() bool { return f.loggedIn }
func (f *fakeClient) Close() error   { f.closed = true; return nil }

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := getPassword
	t.Cleanup(func() { getPassword = old })
	getPassword = func(w io.Writer) ([]byte, error) { return []byte(pw), nil }
}

func testApp(api client.Client, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return newApp(cfg, api, nil, strings.NewReader(input), &out), &out
}

func TestCommandArg(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"login"}, "login"},
		{[]string{"-a", "http://x", "-t", "grpc", "whoami"}, "whoami"},
		{[]string{"-config=cli.json", "logout"}, "logout"},
		{[]string{"-d", "t.db"}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, commandArg(tt.args), "%v", tt.args)
	}
}

func TestRun_LoginCommand(t *testing.T) {
	stubPassword(t, "Secret123!")
	api := &fakeClient{user: &client.User{ID: "u1", Email: "a@x.com"}}
	app, out := testApp(api, "a@x.com\n")

	require.NoError(t, app.Run(context.Background(), []string{"-t", "http", "login"}))

	assert.Equal(t, "a@x.com", api.gotEmail)
	assert.Equal(t, "Secret123!", api.gotPassword)
	assert.Contains(t, out.String(), "Logged in as a@x.com")
	assert.True(t, api.closed)
}

func TestRun_UnknownCommand(t *testing.T) {
	app, _ := testApp(&fakeClient{}, "")
	require.ErrorIs(t, app.Run(context.Background(), []string{"frobnicate"}), ErrUnknownCommand)
}

func TestCommands_ReportErrors(t *testing.T) {
	stubPassword(t, "pw")

	tests := []struct {
		name string
		err  error
		run  func(a *App) error
		want string
	}{
		{"register conflict", client.ErrConflict, func(a *App) error { return a.Register(context.Background()) }, "email already registered"},
		{"register invalid", &client.InputError{Fields: map[string]string{"email": "invalid"}}, func(a *App) error { return a.Register(context.Background()) }, "invalid input (email: invalid)"},
		{"login unauthorized", client.ErrUnauthorized, func(a *App) error { return a.Login(context.Background()) }, "not authorized"},
		{"whoami unavailable", client.ErrUnavailable, func(a *App) error { return a.WhoAmI(context.Background()) }, "server unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, out := testApp(&fakeClient{err: tt.err}, "a@x.com\n")
			require.ErrorIs(t, tt.run(app), tt.err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestWhoAmIAndDelete(t *testing.T) {
	api := &fakeClient{loggedIn: true, user: &client.User{ID: "u1", Email: "a@x.com"}}
	app, out := testApp(api, "")

	require.NoError(t, app.WhoAmI(context.Background()))
	assert.Contains(t, out.String(), "a@x.com (u1)")
	assert.Equal(t, "(a@x.com)", app.status())

	require.NoError(t, app.DeleteAccount(context.Background()))
	assert.True(t, api.deleted)
	assert.Equal(t, "(logged out)", app.status())
}

func TestREPL_Flow(t *testing.T) {
	stubPassword(t, "Secret123!")
	api := &fakeClient{user: &client.User{ID: "u1", Email: "a@x.com"}}

	input := strings.Join([]string{"help", "", "login", "a@x.com", "whoami", "help", "logout", "bogus", "exit", "whoami"}, "\n") + "\n"
	app, out := testApp(api, input)

	runREPL(context.Background(), app, app.status, app.reader, out)

	text := out.String()
	assert.Contains(t, text, "Available commands: register, login, exit")
	assert.Contains(t, text, "Available commands: whoami, logout, delete-account, exit")
	assert.Contains(t, text, "Logged out")
	assert.Contains(t, text, "Unknown command: bogus")
	assert.Contains(t, text, "Bye!")
	assert.Equal(t, 1, strings.Count(text, "a@x.com (u1)"), "nothing runs after exit")
}
