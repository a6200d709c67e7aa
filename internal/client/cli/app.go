// Package cli implements the gatekeeper command-line tool: administrator
// bootstrap and token inspection against the server's own configuration,
// plus account commands that talk to a running server over gRPC.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/client/config"
	servercfg "github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type App struct {
	config *config.Config
	reader *bufio.Reader
	out    io.Writer

	// serverConfig loads the server settings used by create-admin and
	// inspect-token.
	serverConfig func() *servercfg.Config
	dial         func(addr string) (*grpc.ClientConn, error)
}

func NewApp(c *config.Config) *App {
	return &App{
		config:       c,
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		serverConfig: servercfg.LoadConfig,
		dial: func(addr string) (*grpc.ClientConn, error) {
			return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		},
	}
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"create-admin":  {"create-admin                 create the first administrator in the configured store", (*App).createAdmin},
	"inspect-token": {"inspect-token <token>        verify a token with the configured key and print its claims", (*App).inspectToken},
	"signup":        {"signup                       register a local account", (*App).signUp},
	"verify":        {"verify                       activate an account with the emailed code", (*App).verify},
	"login":         {"login                        log in and print the token pair", (*App).login},
	"me":            {"me <access-token>            show the account behind an access token", (*App).me},
	"passwd":        {"passwd <access-token>        change the password of the token's account", (*App).passwd},
}

// Run dispatches args[0] to a command. Flags anywhere in args are read by
// the config loaders and skipped here.
func (a *App) Run(ctx context.Context, args []string) error {
	positional := positionalArgs(args)
	if len(positional) == 0 || positional[0] == "help" {
		a.usage()
		return nil
	}

	cmd, ok := commands[positional[0]]
	if !ok {
		a.usage()
		return fmt.Errorf("unknown command %q", positional[0])
	}
	return cmd.run(a, ctx, positional[1:])
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: gatekeeper-cli <command> [flags]")
	for _, name := range []string{"create-admin", "inspect-token", "signup", "verify", "login", "me", "passwd"} {
		fmt.Fprintln(a.out, "  "+commands[name].usage)
	}
}

// positionalArgs drops "-flag value" and "-flag=value" pairs. Every flag
// known to the tool takes a value.
func positionalArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) > 1 && arg[0] == '-' {
			if !strings.Contains(arg, "=") {
				i++
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}
