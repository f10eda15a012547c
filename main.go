package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"vankeyword/app/api"
	"vankeyword/app/api/mcptools"
	"vankeyword/app/config"
	"vankeyword/app/service/admin"
	"vankeyword/app/service/cooldown"
	"vankeyword/app/service/decoder"
	"vankeyword/app/service/engine"
	"vankeyword/app/service/lexicon"
	"vankeyword/app/service/queue"
	"vankeyword/app/service/settings"
	"vankeyword/app/service/store"
	"vankeyword/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "vankeyword",
		Short:         "Keyword reply engine for chat bots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "mcp",
		Short: "Serve keyword tools over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveMCP(cmd.Context(), configPath)
		},
	})

	mylog.Preinit()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func setup(ctx context.Context, configPath string) (*do.Injector, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err = mylog.Init(cfg); err != nil {
		return nil, err
	}

	di := do.New()
	do.ProvideValue(di, cfg)

	do.Provide(di, store.New)
	do.Provide(di, queue.New)
	do.Provide(di, admin.New)
	do.Provide(di, settings.New)
	do.Provide(di, lexicon.New)
	do.Provide(di, cooldown.New)
	do.Provide(di, decoder.New)
	do.Provide(di, engine.New)
	do.Provide(di, api.New)
	do.Provide(di, mcptools.New)

	return di, nil
}

func serve(ctx context.Context, configPath string) error {
	di, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	engineSvc, err := do.Invoke[*engine.Service](di)
	if err != nil {
		return err
	}
	server, err := do.Invoke[*api.Server](di)
	if err != nil {
		return err
	}

	log.Info("Service started")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		engineSvc.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return server.Run(ctx)
	})

	return g.Wait()
}

func serveMCP(ctx context.Context, configPath string) error {
	di, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer di.Shutdown()

	engineSvc, err := do.Invoke[*engine.Service](di)
	if err != nil {
		return err
	}
	tools, err := do.Invoke[*mcptools.Server](di)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		engineSvc.Run(ctx)
	}()

	err = tools.Serve()

	cancel()
	<-done

	return err
}
