package migrate

import (
	"github.com/andrebq/lostminer/internal/cmdflags"
	"github.com/andrebq/lostminer/internal/logutil"
	"github.com/andrebq/lostminer/store"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var dataDir string
	var contentModel string
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the database without starting the server",
		Flags: []cli.Flag{
			cmdflags.DataDir(&dataDir),
			cmdflags.ContentModel(&contentModel),
		},
		Action: func(ctx *cli.Context) error {
			model, err := store.ParseContentModel(contentModel)
			if err != nil {
				return err
			}
			st, err := store.Open(ctx.Context, dataDir, store.Options{ContentModel: model})
			if err != nil {
				return err
			}
			defer st.Close()
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Str("dir", dataDir).Str("contentModel", string(st.ContentModel())).Msg("Database is up to date")
			return nil
		},
	}
}
