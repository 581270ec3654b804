package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-edu-portal/functions"
	"github.com/jrsteele09/go-edu-portal/internal/config"
	"github.com/jrsteele09/go-edu-portal/internal/logging"
	"github.com/jrsteele09/go-edu-portal/mailer"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/provider/local"
	"github.com/jrsteele09/go-edu-portal/provider/remote"
	"github.com/jrsteele09/go-edu-portal/server"
	"github.com/jrsteele09/go-edu-portal/server/loginsession"
	"github.com/jrsteele09/go-edu-portal/token"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/jrsteele09/go-edu-portal/users/pgrepo"
	fakeuserrepo "github.com/jrsteele09/go-edu-portal/users/repofake"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const sweepInterval = time.Minute

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb redis.UniversalClient
	if addr := c.GetRedisAddr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: c.GetRedisPassword(), DB: c.GetRedisDB()})
		defer rdb.Close()
	}

	backend, closeBackend, err := newBackend(ctx, c, rdb)
	if err != nil {
		return err
	}
	defer closeBackend()

	deps := server.Deps{Backend: backend, LoginSessions: newLoginSessions(c, rdb)}
	if baseURL := c.GetFunctionsBaseURL(); baseURL != "" {
		fns, err := functions.New(baseURL, c.GetFunctionsAPIKey(), c.GetFunctionsTimeout())
		if err != nil {
			return errors.Wrap(err, "[run] functions client")
		}
		deps.Functions = fns
	}

	s, err := server.New(c, deps)
	if err != nil {
		return errors.Wrap(err, "[run] server")
	}
	go s.Clients().Run(ctx, sweepInterval)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: s}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// newBackend builds the configured auth provider. The returned func releases
// anything the backend holds open.
func newBackend(ctx context.Context, c config.Config, rdb redis.UniversalClient) (provider.Backend, func(), error) {
	noop := func() {}
	if c.GetProviderKind() == config.ProviderRemote {
		b, err := remote.NewBackend(ctx, remote.Config{
			IssuerURL:    c.GetOIDCIssuerURL(),
			ClientID:     c.GetOIDCClientID(),
			ClientSecret: c.GetOIDCClientSecret(),
			SignUpURL:    c.GetProviderSignUpURL(),
			RecoverURL:   c.GetProviderRecoverURL(),
			LogoutURL:    c.GetProviderLogoutURL(),
		})
		if err != nil {
			return nil, noop, errors.Wrap(err, "[newBackend] remote provider")
		}
		log.Info().Str("issuer", c.GetOIDCIssuerURL()).Msg("using remote auth provider")
		return b, noop, nil
	}

	var cache token.RevokedTokenCache = token.NewInMemoryRevokedTokenCache(nil)
	if rdb != nil {
		cache = token.NewRedisRevokedTokenCache(rdb)
	}
	tokens, err := token.New(c.GetTokenSecret(),
		token.WithIssuer(c.GetTokenIssuer()),
		token.WithTokenExpiry(token.PurposeAccess, c.GetAccessTokenExpiry()),
		token.WithTokenExpiry(token.PurposeRefresh, c.GetRefreshTokenExpiry()),
		token.WithTokenExpiry(token.PurposeRecovery, c.GetRecoveryTokenExpiry()),
		token.WithRevokedTokenCache(cache),
	)
	if err != nil {
		return nil, noop, errors.Wrap(err, "[newBackend] token manager")
	}

	repo, closeRepo, err := newUserRepo(ctx, c)
	if err != nil {
		return nil, noop, err
	}

	b, err := local.NewBackend(repo, tokens, newMailer(c),
		local.WithAppName(c.GetAppName()),
		local.WithEmailConfirmation(c.GetRequireEmailConfirmation(), c.GetConfirmRedirectURL()),
	)
	if err != nil {
		closeRepo()
		return nil, noop, errors.Wrap(err, "[newBackend] local provider")
	}
	return b, closeRepo, nil
}

func newUserRepo(ctx context.Context, c config.Config) (users.UserRepo, func(), error) {
	dsn := c.GetDatabaseURL()
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, users are kept in memory")
		return fakeuserrepo.NewFakeUserRepo(), func() {}, nil
	}
	pool, err := pgrepo.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[newUserRepo]")
	}
	repo := pgrepo.New(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "[newUserRepo]")
	}
	return repo, pool.Close, nil
}

func newMailer(c config.Config) mailer.Sender {
	if key := c.GetSendgridAPIKey(); key != "" {
		sender, err := mailer.NewSendgridSender(key, c.GetMailFromName(), c.GetMailFrom())
		if err == nil {
			return sender
		}
		log.Warn().Err(err).Msg("SendGrid unavailable, mail goes to the log")
	}
	return mailer.LogSender{}
}

func newLoginSessions(c config.Config, rdb redis.UniversalClient) loginsession.Repo {
	if rdb == nil {
		return loginsession.NewInMemoryLoginSessionRepo()
	}
	return loginsession.NewRedisLoginSessionRepo(rdb, c.GetMaxSessionAge())
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
