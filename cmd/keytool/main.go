// keytool - служебные команды для ключа шифрования и конфигурации бота
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&genkeyCmd{}, "keys")
	commander.Register(&reencryptCmd{}, "keys")
	commander.Register(&checkconfigCmd{}, "config")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
