package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/ivanoskov/kopilka_bot/internal/repository"
	"github.com/ivanoskov/kopilka_bot/internal/security"
)

type reencryptCmd struct {
	oldKey string
	newKey string
	file   string
}

func (*reencryptCmd) Name() string     { return "reencrypt" }
func (*reencryptCmd) Synopsis() string { return "re-encrypt stored exchange keys with a new ENCRYPTION_KEY" }
func (*reencryptCmd) Usage() string {
	return `keytool reencrypt -old <hex> -new <hex> [-file user_data.json]

  Decrypts the exchange keys in the profile file with the old key and saves
  them encrypted with the new one. Fields that cannot be decrypted are kept
  as a marker and the bot asks those users to enter their keys again.
`
}

func (c *reencryptCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.oldKey, "old", "", "The current ENCRYPTION_KEY (64 hex characters).")
	f.StringVar(&c.newKey, "new", "", "The new ENCRYPTION_KEY (64 hex characters).")
	f.StringVar(&c.file, "file", "user_data.json", "The profile file to rewrite.")
}

func (c *reencryptCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	report, err := reencryptFile(ctx, c.file, c.oldKey, c.newKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Profiles: %d, re-encrypted fields: %d\n", report.profiles, report.fields)
	for _, userID := range report.failed {
		fmt.Printf("User %d: keys could not be decrypted with the old key\n", userID)
	}
	return subcommands.ExitSuccess
}

type reencryptReport struct {
	profiles int
	fields   int
	failed   []int64
}

func reencryptFile(ctx context.Context, file, oldKey, newKey string) (*reencryptReport, error) {
	if _, err := security.ParseKey(oldKey); err != nil {
		return nil, fmt.Errorf("-old: %w", err)
	}
	if _, err := security.ParseKey(newKey); err != nil {
		return nil, fmt.Errorf("-new: %w", err)
	}

	docs := repository.NewFileDocuments()
	oldCipher, _ := security.NewCipher(oldKey)
	newCipher, _ := security.NewCipher(newKey)
	from := repository.NewStore(docs, oldCipher, file, "", zerolog.Nop())
	to := repository.NewStore(docs, newCipher, file, "", zerolog.Nop())

	profiles, err := from.LoadProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}

	report := &reencryptReport{profiles: len(profiles)}
	for userID, p := range profiles {
		broken := false
		for _, value := range []string{p.ExchangeAPIKey, p.ExchangeAPISecret} {
			switch value {
			case "":
			case security.DecryptionFailed:
				broken = true
			default:
				report.fields++
			}
		}
		if broken {
			report.failed = append(report.failed, userID)
		}
	}

	if err := to.SaveProfiles(ctx, profiles); err != nil {
		return nil, fmt.Errorf("save %s: %w", file, err)
	}
	return report, nil
}
