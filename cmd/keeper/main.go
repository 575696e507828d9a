package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"proxykeeper/internal/shared/config"
	"proxykeeper/internal/shared/logger"
	"proxykeeper/internal/shared/types"
	"proxykeeper/proxypool"
	"proxykeeper/proxypool/gate"
	"proxykeeper/proxypool/provider"
	"proxykeeper/proxypool/storage"
	"proxykeeper/proxypool/validator"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "keeper.ini")

	// 1. 加载 .ini 行为配置
	cfg := new(types.Config)
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 组装存储后端
	var store storage.Store
	switch cfg.StorageConf.Backend {
	case "firebase":
		if cfg.StorageConf.BaseURL == "" {
			logger.Fatal().Msg("storage backend 'firebase' requires base_url (or STORE_BASE_URL).")
		}
		store = storage.NewFirebaseStore(cfg.StorageConf.BaseURL)
	case "file":
		store = storage.NewFileStore(cfg.StorageConf.FilePath)
	default:
		logger.Fatal().Str("backend", cfg.StorageConf.Backend).Msg("Unknown storage backend.")
	}

	// 3. 组装并启动管理器
	g := gate.New(cfg.PoolConf.ConcurrencyLimit)
	v := validator.New(cfg.PoolConf.CheckURL, cfg.PoolConf.ProbeTimeout())
	mgr := proxypool.NewManager(cfg, store, v, g)

	mgr.AddProvider(provider.NewProxyScrapeProvider(cfg.ProviderConf.APIURL))
	if cfg.ProviderConf.EnableScrapers {
		mgr.AddProvider(provider.NewProxyListDownloadProvider())
		mgr.AddProvider(provider.NewFreeProxyListProvider())
	}

	if err := mgr.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start proxy pool manager.")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down...")
	mgr.Stop()
}
