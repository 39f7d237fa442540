package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skullboard/bot"
	"skullboard/command"
	"skullboard/config"
	"skullboard/database"
	rendergrpc "skullboard/grpc"
	"skullboard/handlers"
	"skullboard/render"
	"skullboard/skullboard"
	"skullboard/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type renderService struct {
	server *render.Server
	health *render.HealthService
	engine *render.Engine
}

func startRender(settings config.RenderSettings) (*renderService, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := render.NewMetrics(reg)

	assets := render.NewAssetProxy(&http.Client{Timeout: 20 * time.Second}, metrics)
	payloads := render.NewPayloadStore()
	render.RegisterCacheGauges(reg, assets.Len, payloads.Len)

	engine := render.NewEngine(render.ChromeLauncher(settings))
	health := render.NewHealthService()

	server, err := render.NewServer(render.ServerDeps{
		Assets:         assets,
		Payloads:       payloads,
		Renderer:       render.NewRenderer(engine, nil, metrics),
		Metrics:        metrics,
		Gatherer:       reg,
		Health:         health,
		RequestTimeout: settings.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := server.Start(settings.Listen); err != nil {
		return nil, err
	}
	go func() {
		if err := health.Serve(settings.GRPCListen); err != nil {
			utils.Error("Render", "GRPCHealth", err.Error())
		}
	}()
	return &renderService{server: server, health: health, engine: engine}, nil
}

func (r *renderService) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.server.Stop(ctx); err != nil {
		utils.Logger.Warn("render server shutdown", zap.Error(err))
	}
	r.health.Stop()
	r.engine.Close()
}

func startBot(settings *config.Settings) (*bot.Bot, func(), error) {
	db, err := database.InitDB(settings.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	probe, err := rendergrpc.NewClient(settings.Render.GRPCTarget, 10*time.Second)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	b, err := bot.NewBot(settings.Bot, probe)
	if err != nil {
		probe.Close()
		db.Close()
		return nil, nil, err
	}
	b.RegisterCommands(command.AllCommands)

	platform := skullboard.NewSession(b.Session)
	engine := skullboard.NewEngine(
		platform,
		database.NewStore(db),
		skullboard.NewAssembler(platform, nil),
		skullboard.NewRenderClient(settings.Render.BaseURL, nil),
	)
	deps := handlers.Deps{
		Engine:       engine,
		Auth:         utils.NewAuth(settings.Commands.Auth),
		EventTimeout: settings.Render.RequestTimeout + time.Minute,
	}

	if err := b.Start(func(b *bot.Bot) { handlers.Register(b, deps) }); err != nil {
		b.Stop()
		db.Close()
		return nil, nil, err
	}
	return b, func() {
		b.Stop()
		db.Close()
	}, nil
}

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	if err := utils.InitZap(settings.Log.Development); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer utils.Logger.Sync()

	var stops []func()
	if settings.Mode == config.ModeRender || settings.Mode == config.ModeAll {
		rs, err := startRender(settings.Render)
		if err != nil {
			utils.Logger.Fatal("failed to start render service", zap.Error(err))
		}
		stops = append(stops, rs.stop)
	}
	if settings.Mode == config.ModeBot || settings.Mode == config.ModeAll {
		_, stop, err := startBot(settings)
		if err != nil {
			utils.Logger.Fatal("failed to start bot", zap.Error(err))
		}
		stops = append(stops, stop)
	}

	utils.Logger.Info("skullboard is running, press CTRL-C to exit", zap.String("mode", settings.Mode))
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}
}
