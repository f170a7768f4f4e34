package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credvault/cmd/app/commands"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key for encryption at rest",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-provider",
					Usage: "KMS provider for key wrapping (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateMasterKey(
					ctx,
					commands.DefaultIO().Writer,
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "init-keys",
			Usage: "Create the first vault key version (idempotent)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunInitKeys(ctx, commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "rotate-keys",
			Usage: "Generate a new vault key version and report the re-encryption backlog",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunRotateKeys(ctx, commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "reencrypt-credentials",
			Usage: "Re-encrypt credentials stored under stale key versions",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   100,
					Usage:   "Number of records to process per batch",
				},
				&cli.IntFlag{
					Name:    "workers",
					Aliases: []string{"w"},
					Value:   4,
					Usage:   "Number of parallel workers per batch",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunReencryptCredentials(
					ctx,
					commands.DefaultIO().Writer,
					int(cmd.Int("batch-size")),
					int(cmd.Int("workers")),
				)
			},
		},
		{
			Name:  "backup-keys",
			Usage: "Export a passphrase-sealed backup of the vault keys",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "passphrase",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Passphrase used to seal the backup",
				},
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Required: true,
					Usage:    "Output file path for the backup blob",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunBackupKeys(
					ctx,
					commands.DefaultIO().Writer,
					cmd.String("passphrase"),
					cmd.String("file"),
				)
			},
		},
		{
			Name:  "restore-keys",
			Usage: "Restore vault keys from a passphrase-sealed backup",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "passphrase",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Passphrase used to seal the backup",
				},
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Required: true,
					Usage:    "Backup file to restore from",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunRestoreKeys(
					ctx,
					commands.DefaultIO().Writer,
					cmd.String("passphrase"),
					cmd.String("file"),
				)
			},
		},
	}
}
