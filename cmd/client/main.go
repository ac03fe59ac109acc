package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"somp/ordersync/internal/controller"
	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/notify"
	"somp/ordersync/internal/realtime"
	"somp/ordersync/internal/session"
	"somp/ordersync/internal/store"
	"somp/ordersync/pkg/apix"
	"somp/ordersync/pkg/config"
	"somp/ordersync/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/client.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 初始化日志
	log.Println("========================================")
	log.Println("  ORDERSYNC Client Starting...")
	log.Println("========================================")

	// 2. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	log.Printf("Config loaded: %s, env: %s, log_level: %s\n", cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)

	// 3. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. 会话与 REST 客户端（任意请求 401 触发一次性会话销毁）
	sess := session.New(
		cfg.Session.UserID,
		cfg.Session.UserName,
		entity.StaffRole(cfg.Session.Role),
		cfg.Session.Token,
		func() {
			log.Println("Session expired, please login again")
			cancel()
		},
		zapLogger,
	)

	api := apix.NewClient(cfg.API.BaseURL, cfg.API.Timeout, zapLogger,
		apix.WithTokenSource(sess.Token),
		apix.WithUnauthorizedHook(sess.HandleUnauthorized),
	)

	// 5. 实时事件源（Redis Pub/Sub，断线不补投，重连后全量刷新）
	source, err := realtime.NewRedisSource(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Realtime.BufferSize,
		cfg.Realtime.ErrorBackoff,
		zapLogger,
	)
	if err != nil {
		log.Fatalf("Failed to create event source: %v", err)
	}
	defer source.Close()

	sink := notify.NewLoggerSink(zapLogger)

	// 6. 装配屏幕控制器并聚焦
	orders := store.NewOrderStore(api, zapLogger)
	staff := store.NewStaffStore(api, zapLogger)

	ordersCtl := controller.NewOrdersController(api, sess, orders, staff, source, sink, zapLogger)
	myOrdersCtl := controller.NewMyOrdersController(api, sess, source, sink, zapLogger)
	inventoryCtl := controller.NewInventoryController(api, source, sink, zapLogger)

	if err := ordersCtl.Focus(ctx); err != nil {
		log.Fatalf("Orders screen focus failed: %v", err)
	}
	if err := myOrdersCtl.Focus(ctx); err != nil {
		log.Fatalf("My-orders screen focus failed: %v", err)
	}
	if err := inventoryCtl.Focus(ctx); err != nil {
		log.Fatalf("Inventory screen focus failed: %v", err)
	}

	log.Println("Client started. Press Ctrl+C to shutdown.")

	// 7. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v\n", sig)
	case <-ctx.Done():
		log.Println("Session terminated")
	}

	log.Println("========================================")
	log.Println("  Shutting down Client...")
	log.Println("========================================")

	// 8. 失焦卸载全部订阅
	ordersCtl.Blur()
	myOrdersCtl.Blur()
	inventoryCtl.Blur()

	fmt.Println("========================================")
	fmt.Println("  Client exited gracefully")
	fmt.Println("========================================")
}
