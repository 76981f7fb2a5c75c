package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ivanoskov/kopilka_bot/internal/security"
)

type genkeyCmd struct{}

func (*genkeyCmd) Name() string     { return "genkey" }
func (*genkeyCmd) Synopsis() string { return "print a new random ENCRYPTION_KEY" }
func (*genkeyCmd) Usage() string {
	return `keytool genkey

  Prints 64 hex characters (32 bytes) suitable for ENCRYPTION_KEY.
`
}

func (*genkeyCmd) SetFlags(*flag.FlagSet) {}

func (*genkeyCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key, err := security.GenerateKeyHex()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(key)
	return subcommands.ExitSuccess
}
