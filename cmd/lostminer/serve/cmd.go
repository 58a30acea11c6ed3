package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/andrebq/lostminer/api"
	"github.com/andrebq/lostminer/auth"
	"github.com/andrebq/lostminer/internal/cmdflags"
	"github.com/andrebq/lostminer/internal/httpserver"
	"github.com/andrebq/lostminer/internal/imagestore"
	"github.com/andrebq/lostminer/internal/logutil"
	"github.com/andrebq/lostminer/internal/mailer"
	"github.com/andrebq/lostminer/store"
	"github.com/urfave/cli/v2"
)

type (
	mailOptions struct {
		driver   string
		template string
		from     string
		smtp     mailer.SMTPOptions
	}
)

func Cmd() *cli.Command {
	bindAddr := "localhost:8080"
	var dataDir string
	var contentModel string
	var secretEnvVar string
	codeTTL := auth.DefaultCodeTTL
	connTTL := auth.DefaultConnectionTTL
	sweepInterval := time.Minute
	shutdownTimeout := httpserver.DefaultShutdownTimeout
	var maxBody int64 = httpserver.DefaultMaxBodyBytes
	var singleUse bool
	mail := mailOptions{driver: "log"}
	var s3opts imagestore.S3Options
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind the HTTP server",
				EnvVars:     []string{"LOSTMINER_BIND"},
				Value:       bindAddr,
				Destination: &bindAddr,
			},
			cmdflags.DataDir(&dataDir),
			cmdflags.ContentModel(&contentModel),
			cmdflags.SecretEnvVar(&secretEnvVar),
			cmdflags.Duration("code-ttl", "CODE_TTL", "How long a confirmation code stays valid", &codeTTL),
			cmdflags.Duration("connection-ttl", "CONNECTION_TTL", "How long a connection (and its token) stays valid", &connTTL),
			cmdflags.Duration("shutdown-timeout", "SHUTDOWN_TIMEOUT", "How long running requests can take once the server is asked to stop", &shutdownTimeout),
			&cli.Int64Flag{
				Name:        "max-body-bytes",
				Usage:       "Largest request body accepted, image uploads included",
				EnvVars:     []string{"LOSTMINER_MAX_BODY_BYTES"},
				Value:       maxBody,
				Destination: &maxBody,
			},
			cmdflags.Duration("sweep-interval", "SWEEP_INTERVAL", "How often expired confirmation codes are removed", &sweepInterval),
			&cli.BoolFlag{
				Name:        "single-use-codes",
				Usage:       "Confirmation codes stop working once exchanged, instead of when they expire",
				EnvVars:     []string{"LOSTMINER_SINGLE_USE_CODES"},
				Destination: &singleUse,
			},
			cmdflags.String("mail-driver", "MAIL_DRIVER", "How emails are delivered: smtp or log", &mail.driver),
			cmdflags.String("mail-template", "MAIL_TEMPLATE", "Lua script that renders the confirmation email, the embedded one is used when empty", &mail.template),
			cmdflags.String("mail-from", "MAIL_FROM", "Sender address of the emails", &mail.from),
			cmdflags.String("smtp-addr", "SMTP_ADDR", "host:port of the SMTP server", &mail.smtp.Addr),
			cmdflags.String("smtp-user", "SMTP_USER", "SMTP user, authentication is skipped when empty", &mail.smtp.User),
			cmdflags.String("smtp-password", "SMTP_PASSWORD", "SMTP password", &mail.smtp.Password),
			cmdflags.String("s3-bucket", "S3_BUCKET", "Bucket for the uploaded images, uploads are disabled when empty", &s3opts.Bucket),
			cmdflags.String("s3-region", "S3_REGION", "Region of the bucket", &s3opts.Region),
			cmdflags.String("s3-endpoint", "S3_ENDPOINT", "Custom S3 endpoint (eg.: minio)", &s3opts.Endpoint),
			cmdflags.String("s3-access-key", "S3_ACCESS_KEY", "S3 access key, the default aws credential chain is used when empty", &s3opts.AccessKey),
			cmdflags.String("s3-secret-key", "S3_SECRET_KEY", "S3 secret key", &s3opts.SecretKey),
			cmdflags.String("s3-public-url", "S3_PUBLIC_URL", "Prefix of the public image urls", &s3opts.PublicURL),
		},
		Action: func(ctx *cli.Context) error {
			log := logutil.GetOrDefault(ctx.Context)
			model, err := store.ParseContentModel(contentModel)
			if err != nil {
				return err
			}
			secret, err := auth.SecretFromEnv(secretEnvVar, nil, nil)
			if err != nil {
				return err
			}
			st, err := store.Open(ctx.Context, dataDir, store.Options{ContentModel: model})
			if err != nil {
				return err
			}
			defer st.Close()
			codes, err := auth.InMemoryCodeStore(auth.CodeStoreOptions{TTL: codeTTL})
			if err != nil {
				return err
			}
			m, err := newMailer(mail)
			if err != nil {
				return err
			}
			uploader, err := newUploader(ctx.Context, s3opts)
			if err != nil {
				return err
			}
			handler, err := api.AsHandler(ctx.Context, api.Config{
				Store:          st,
				Codes:          codes,
				Tokens:         auth.NewTokenCodec(secret),
				Mailer:         m,
				Uploader:       uploader,
				ConnectionTTL:  connTTL,
				SingleUseCodes: singleUse,
			})
			if err != nil {
				return err
			}
			go auth.Sweep(ctx.Context, codes, sweepInterval)
			log.Info().Str("contentModel", string(model)).Bool("singleUseCodes", singleUse).Str("mailDriver", mail.driver).Msg("Services ready")
			return httpserver.Serve(ctx.Context, httpserver.Options{
				Bind:            bindAddr,
				ShutdownTimeout: shutdownTimeout,
				MaxBodyBytes:    maxBody,
			}, handler)
		},
	}
}

func newMailer(opts mailOptions) (*mailer.Mailer, error) {
	tmpl := mailer.DefaultTemplate()
	if opts.template != "" {
		var err error
		tmpl, err = mailer.LoadTemplate(opts.template)
		if err != nil {
			return nil, err
		}
	}
	var sender mailer.Sender
	switch opts.driver {
	case "log", "":
		sender = mailer.LogSender{}
	case "smtp":
		s, err := mailer.NewSMTPSender(opts.smtp)
		if err != nil {
			return nil, err
		}
		sender = s
	default:
		return nil, fmt.Errorf("unknown mail driver %q, use smtp or log", opts.driver)
	}
	return mailer.New(sender, tmpl, opts.from), nil
}

func newUploader(ctx context.Context, opts imagestore.S3Options) (imagestore.Uploader, error) {
	if opts.Bucket == "" {
		log := logutil.GetOrDefault(ctx)
		log.Warn().Msg("No S3 bucket configured, image uploads are disabled")
		return imagestore.Disabled(), nil
	}
	return imagestore.NewS3(ctx, opts)
}
