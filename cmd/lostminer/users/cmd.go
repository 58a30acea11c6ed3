package users

import (
	"github.com/andrebq/lostminer/internal/cmdflags"
	"github.com/andrebq/lostminer/internal/logutil"
	"github.com/andrebq/lostminer/store"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var st *store.Store
	var dataDir string
	var contentModel string
	return &cli.Command{
		Name:  "users",
		Usage: "Administrative tasks on registered users",
		Flags: []cli.Flag{
			cmdflags.DataDir(&dataDir),
			cmdflags.ContentModel(&contentModel),
		},
		Before: func(ctx *cli.Context) error {
			model, err := store.ParseContentModel(contentModel)
			if err != nil {
				return err
			}
			st, err = store.Open(ctx.Context, dataDir, store.Options{ContentModel: model})
			return err
		},
		After: func(ctx *cli.Context) error {
			if st == nil {
				return nil
			}
			return st.Close()
		},
		Subcommands: []*cli.Command{
			creatorCmd(&st),
			deleteCmd(&st),
		},
	}
}

func emailFlag(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "email",
		Aliases:     []string{"e"},
		Usage:       "Email of the user",
		Destination: out,
		Required:    true,
	}
}

func creatorCmd(st **store.Store) *cli.Command {
	var email string
	var revoke bool
	return &cli.Command{
		Name:  "creator",
		Usage: "Mark the user as a content creator",
		Flags: []cli.Flag{
			emailFlag(&email),
			&cli.BoolFlag{
				Name:        "revoke",
				Usage:       "Remove the creator mark instead",
				Destination: &revoke,
			},
		},
		Action: func(ctx *cli.Context) error {
			users := (*st).Users()
			u, err := users.ByEmail(ctx.Context, email)
			if err != nil {
				return err
			}
			err = users.SetCreator(ctx.Context, u.ID, !revoke)
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Int64("user", u.ID).Bool("creator", !revoke).Msg("User updated")
			return nil
		},
	}
}

func deleteCmd(st **store.Store) *cli.Command {
	var email string
	return &cli.Command{
		Name:  "delete",
		Usage: "Remove the user and its connections",
		Flags: []cli.Flag{
			emailFlag(&email),
		},
		Action: func(ctx *cli.Context) error {
			users := (*st).Users()
			u, err := users.ByEmail(ctx.Context, email)
			if err != nil {
				return err
			}
			err = users.Delete(ctx.Context, u.ID)
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Int64("user", u.ID).Msg("User removed")
			return nil
		},
	}
}
