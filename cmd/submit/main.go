package main

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/revu/internal/pkg/consul"
	"github.com/airenas/revu/internal/pkg/filer"
	"github.com/airenas/revu/internal/pkg/ocr"
	"github.com/airenas/revu/internal/pkg/pipeline"
	"github.com/airenas/revu/internal/pkg/postgres"
	"github.com/airenas/revu/internal/pkg/submit"
	"github.com/airenas/revu/internal/pkg/translator"
	"github.com/airenas/revu/internal/pkg/utils"
	api "github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &submit.Data{}
	data.Port = cfg.GetInt("port")
	data.DefaultLang = cfg.GetString("lang.target")
	if data.DefaultLang == "" {
		data.DefaultLang = "en"
	}

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

	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	data.Saver, err = filer.NewFiler(ctx, filer.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), SSL: cfg.GetBool("filer.https")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}

	data.OCR, err = ocr.NewClient(cfg.GetString("ocr.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init OCR client")
	}

	provider, err := consul.NewProvider(makeConsulConfig(), cfg.GetString("consul.srvName"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init consul provider")
	}
	ctxReg, cancelReg := context.WithCancel(ctx)
	defer cancelReg()
	regDoneCh, err := provider.StartRegistryLoop(ctxReg, cfg.GetDuration("consul.checkInterval"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start consul registry loop")
	}

	tr, err := makeTranslator(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init translator")
	}

	orch, err := pipeline.NewOrchestrator(provider, tr, data.DefaultLang)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init pipeline")
	}
	if d := cfg.GetDuration("transcriber.timeout"); d > 0 {
		orch = orch.WithTranscribeTimeout(d)
	}
	data.Pipeline = orch

	printBanner()

	go utils.RunPerfEndpoint()

	if err := submit.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
	cancelReg()
	select {
	case <-regDoneCh:
	case <-time.After(time.Second * 5):
	}
}

func makeConsulConfig() *api.Config {
	res := api.DefaultConfig()
	if addr := goapp.Config.GetString("consul.address"); addr != "" {
		res.Address = addr
	}
	return res
}

func makeTranslator(cfg *viper.Viper) (pipeline.Translator, error) {
	if key := cfg.GetString("translator.openAIKey"); key != "" {
		goapp.Log.Info().Str("translator", "openAI").Msg("cfg")
		return translator.NewOpenAIClient(key, cfg.GetString("translator.model"))
	}
	goapp.Log.Info().Str("translator", "http").Msg("cfg")
	return translator.NewClient(cfg.GetString("translator.url"))
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

               __              _ __
   _______  __/ /_  ____ ___  (_) /_
  / ___/ / / / __ \/ __ ` + "`" + `__ \/ / __/
 (__  ) /_/ / /_/ / / / / / / / /_
/____/\__,_/_.___/_/ /_/ /_/_/\__/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/revu"))
}
