package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gitlab.com/wheresmygrants/grantvotes/internal/db"
	"gitlab.com/wheresmygrants/grantvotes/internal/email"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
	"gitlab.com/wheresmygrants/grantvotes/internal/render"
	"gitlab.com/wheresmygrants/grantvotes/internal/routes"
	"gitlab.com/wheresmygrants/grantvotes/web"
)

const usage = `Usage:
	- start
	- migrate [up/down/drop]
`

func main() {
	godotenv.Load()
	if len(os.Args) == 1 {
		fmt.Println(usage)
		return
	}
	envConfig := models.ReadEnvConfig()
	switch os.Args[1] {
	case "start":
		server := GrantvotesServer{EnvConfig: envConfig}
		server.Setup()
		server.Run()
	case "migrate":
		if len(os.Args) < 3 {
			fmt.Println(usage)
			return
		}
		var err error
		switch os.Args[2] {
		case "up":
			err = db.MigrateUp(envConfig.DatabaseURL)
		case "down":
			err = db.MigrateDown(envConfig.DatabaseURL)
		case "drop":
			err = db.Drop(envConfig.DatabaseURL)
		default:
			fmt.Println(usage)
			return
		}
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println("Done")
	default:
		fmt.Println(usage)
	}
}

type GrantvotesServer struct {
	models.EnvConfig
	addr       string
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	database   db.SharedDB
	notifier   *email.Notifier
	templates  render.Templates
}

func (server *GrantvotesServer) setupLogger() {
	var writer io.Writer
	if server.Debug {
		writer = zerolog.ConsoleWriter{Out: os.Stdout}
	} else {
		writer = os.Stdout
	}
	log := zerolog.New(writer).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	server.logger = log
}
func (server *GrantvotesServer) setupTemplates() {
	server.templates = render.GetTemplates()
	server.templates.SetFS(web.FS)
}
func (server *GrantvotesServer) setupDB() {
	err := db.MigrateUp(server.DatabaseURL)
	if err != nil {
		server.logger.Fatal().Err(err).Send()
	}
	database, err := db.Connect(context.Background(), &server.EnvConfig)
	if err != nil {
		server.logger.Fatal().AnErr("Connecting to db", err).Send()
	}
	server.database = database
}
func (server *GrantvotesServer) setupNotifier() {
	server.notifier = email.NewNotifier(&server.EnvConfig, server.logger)
}
func (server *GrantvotesServer) setupRouter() {
	server.router = routes.NewRouter(&server.EnvConfig, &server.database, server.logger, server.notifier, &server.templates)
}
func (server *GrantvotesServer) setupHttpServer() {
	server.addr = ":" + server.EnvConfig.Port
	server.httpServer = &http.Server{
		Addr:         server.addr,
		Handler:      server.router,
		ReadTimeout:  1 * time.Minute,
		WriteTimeout: 1 * time.Minute,
	}
}
func (server *GrantvotesServer) Setup() {
	server.setupLogger()
	server.setupTemplates()
	server.setupDB()
	server.setupNotifier()
	server.setupRouter()
	server.setupHttpServer()
}
func (server *GrantvotesServer) Shutdown() {
	if err := server.httpServer.Shutdown(context.Background()); err != nil {
		server.logger.Error().
			Err(err).
			Msg("Error shutting down")
	}
	server.notifier.Stop()
	server.database.Close()
}
func (server *GrantvotesServer) Run() {
	server.logger.Info().Str("server_address", server.addr).Msg("Server is starting")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go server.httpServer.ListenAndServe()
	server.logger.Info().Msg("Ready")

	<-ctx.Done()
	stop() // Stop listening for signals
	server.logger.Info().Msg("Shutting down gracefully")
	server.Shutdown()
}
