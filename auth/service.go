package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/andrebq/lostminer/internal/logutil"
	"github.com/andrebq/lostminer/store"
)

type (
	Users interface {
		Create(ctx context.Context, username, email string) (store.User, error)
		ByID(ctx context.Context, id int64) (store.User, error)
		ByEmail(ctx context.Context, email string) (store.User, error)
		EmailExists(ctx context.Context, email string) (bool, error)
		SetPassword(ctx context.Context, id int64, hash string) error
	}

	// Mailer delivers confirmation codes
	Mailer interface {
		SendCode(ctx context.Context, email, username, code string) error
	}

	Config struct {
		Users    Users
		Registry *Registry
		Codes    CodeStore
		Tokens   *TokenCodec
		Mailer   Mailer
		// SingleUseCodes removes a code once it was exchanged, otherwise
		// codes stay valid until they expire
		SingleUseCodes bool
		// Random is the source of confirmation codes, crypto/rand when nil
		Random io.Reader
	}

	Service struct {
		users     Users
		registry  *Registry
		codes     CodeStore
		tokens    *TokenCodec
		mailer    Mailer
		singleUse bool
		random    io.Reader
	}
)

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

	errUnauthorized  = jsonio.Unauthorized("Unauthorized!")
	errInvalidEmail  = jsonio.Unprocessable("Incorrect email format.")
	errEmailExists   = jsonio.Conflict("Email already exists.")
	errUserNotFound  = jsonio.NotFound("User not found.")
	errWrongPassword = jsonio.Unauthorized("Incorrect password.")
	errEmptyPassword = jsonio.Unprocessable("Invalid type for <password>. Expected a non-empty string.")
	errLongPassword  = jsonio.Unprocessable(fmt.Sprintf("Ensure <password> has no more than %v bytes.", MaxPasswordBytes))
)

// ValidEmail performs a basic syntax check of an email address
func ValidEmail(email string) bool {
	return len(email) <= 254 && emailRE.MatchString(email)
}

func NewService(cfg Config) *Service {
	return &Service{
		users:     cfg.Users,
		registry:  cfg.Registry,
		codes:     cfg.Codes,
		tokens:    cfg.Tokens,
		mailer:    cfg.Mailer,
		singleUse: cfg.SingleUseCodes,
		random:    cfg.Random,
	}
}

// Register starts the registration of a new user, the user is only
// created once the mailed code is exchanged.
func (s *Service) Register(ctx context.Context, username, email string) error {
	if !ValidEmail(email) {
		return errInvalidEmail
	}
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return err
	} else if exists {
		return errEmailExists
	}
	return s.sendCode(ctx, email, username, Pending{
		Operation: OpRegister,
		Username:  username,
		Email:     email,
	})
}

// Authorize exchanges a confirmation code. Register and login operations
// return a token for a new connection, password changes return an empty
// token since they do not open a session.
func (s *Service) Authorize(ctx context.Context, code string) (string, error) {
	pending, found, err := s.codes.Get(ctx, code)
	if err != nil {
		return "", err
	} else if !found {
		return "", errUnauthorized
	}

	var user store.User
	switch pending.Operation {
	case OpRegister:
		user, err = s.users.Create(ctx, pending.Username, pending.Email)
		var conflict store.Conflict
		if errors.As(err, &conflict) {
			return "", conflictProblem(conflict)
		} else if err != nil {
			return "", err
		}
	case OpLogin:
		user, err = s.users.ByEmail(ctx, pending.Email)
		if errors.As(err, &store.NotFound{}) {
			return "", errUnauthorized
		} else if err != nil {
			return "", err
		}
	case OpPassword:
		return "", s.applyPassword(ctx, code, pending)
	default:
		return "", errUnauthorized
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return "", err
	}
	s.consume(ctx, code)
	return token, nil
}

func (s *Service) applyPassword(ctx context.Context, code string, pending Pending) error {
	user, err := s.users.ByID(ctx, pending.UserID)
	if errors.As(err, &store.NotFound{}) {
		return errUnauthorized
	} else if err != nil {
		return err
	}
	hash, err := HashPassword(pending.Password)
	if err != nil {
		return err
	}
	err = s.users.SetPassword(ctx, user.ID, hash)
	if err != nil {
		return err
	}
	s.consume(ctx, code)
	return nil
}

// Login returns a token right away when the password matches, without a
// password a confirmation code is mailed and the returned token is empty.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if !ValidEmail(email) {
		return "", errInvalidEmail
	}
	user, err := s.users.ByEmail(ctx, email)
	if errors.As(err, &store.NotFound{}) {
		return "", errUserNotFound
	} else if err != nil {
		return "", err
	}
	if password != "" {
		if !VerifyPassword(password, user.PasswordHash) {
			return "", errWrongPassword
		}
		return s.openSession(ctx, user.ID)
	}
	return "", s.sendCode(ctx, user.Email, user.Username, Pending{
		Operation: OpLogin,
		Email:     user.Email,
	})
}

// SetPassword mails a code that, once exchanged, replaces the password
// of the session user.
func (s *Service) SetPassword(ctx context.Context, session Session, password string) error {
	if strings.TrimSpace(password) == "" {
		return errEmptyPassword
	} else if len(password) > MaxPasswordBytes {
		return errLongPassword
	}
	return s.sendCode(ctx, session.User.Email, session.User.Username, Pending{
		Operation: OpPassword,
		UserID:    session.User.ID,
		Password:  password,
	})
}

// RefreshToken replaces the session connection with a new one, the old
// token stops working immediately.
func (s *Service) RefreshToken(ctx context.Context, session Session) (string, error) {
	conn, err := s.registry.Create(ctx, session.User.ID)
	if err != nil {
		return "", err
	}
	err = s.registry.Revoke(ctx, session.Connection.ID)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(conn.ID)
}

// Authenticate resolves a bearer token into the session it represents.
// Every failure is reported as the same unauthorized problem.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	log := logutil.GetOrDefault(ctx)
	id, err := s.tokens.Parse(token)
	if err != nil {
		log.Debug().Err(err).Msg("Token rejected")
		return Session{}, errUnauthorized
	}
	conn, err := s.registry.Resolve(ctx, id)
	if errors.As(err, &InvalidConnection{}) {
		log.Debug().Err(err).Int64("connection", id).Msg("Connection rejected")
		return Session{}, errUnauthorized
	} else if err != nil {
		return Session{}, err
	}
	user, err := s.users.ByID(ctx, conn.UserID)
	if errors.As(err, &store.NotFound{}) {
		return Session{}, errUnauthorized
	} else if err != nil {
		return Session{}, err
	}
	return Session{Connection: conn, User: user}, nil
}

func (s *Service) openSession(ctx context.Context, userID int64) (string, error) {
	conn, err := s.registry.Create(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(conn.ID)
}

func (s *Service) sendCode(ctx context.Context, email, username string, p Pending) error {
	code, err := NewCode(s.random)
	if err != nil {
		return err
	}
	err = s.codes.Put(ctx, code, p)
	if err != nil {
		return err
	}
	return s.mailer.SendCode(ctx, email, username, code)
}

func (s *Service) consume(ctx context.Context, code string) {
	if !s.singleUse {
		return
	}
	if err := s.codes.Delete(ctx, code); err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Warn().Err(err).Msg("Unable to remove used confirmation code")
	}
}

func conflictProblem(c store.Conflict) error {
	for _, f := range c.Fields {
		if f == "username" {
			return jsonio.Conflict("Username already exists.")
		}
	}
	return errEmailExists
}
