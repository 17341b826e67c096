package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/revu/internal/pkg/filer"
	"github.com/airenas/revu/internal/pkg/postgres"
	"github.com/airenas/revu/internal/pkg/reviews"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &reviews.Data{}
	data.Port = cfg.GetInt("port")

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	data.Reader, err = filer.NewFiler(ctx, filer.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), SSL: cfg.GetBool("filer.https")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}

	printBanner()

	if err := reviews.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
     ____  _______    ____  __
    / __ \/ ____/ |  / / / / /
   / /_/ / __/  | | / / / / /
  / _, _/ /___  | |/ / /_/ /
 /_/ |_/_____/  |___/\____/   v: %s

                    _
   ________ _   __(_)__ _      _______
  / ___/ _ \ | / / / _ \ | /| / / ___/
 / /  /  __/ |/ / /  __/ |/ |/ (__  )
/_/   \___/|___/_/\___/|__/|__/____/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/revu"))
}
