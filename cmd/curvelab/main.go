package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"curvelab/internal/config"
	"curvelab/internal/server"
)

var (
	port       = flag.Int("port", 0, "服务端口 (覆盖配置文件)")
	devMode    = flag.Bool("dev", false, "开发模式")
	dataDir    = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	configPath = flag.String("config", "config.toml", "配置文件路径")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  Curvelab - 订房曲线数据管线")
	fmt.Println("==========================================")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 命令行参数覆盖配置
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	for _, dir := range []string{cfg.Data.DataDir, cfg.Data.OutputDir, cfg.AckDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("创建目录失败 %s: %v", dir, err)
		}
	}
	fmt.Printf("数据目录: %s\n", cfg.Data.DataDir)
	fmt.Printf("输出目录: %s\n", cfg.Data.OutputDir)

	srv := server.NewServer(cfg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	fmt.Println("\n按 Ctrl+C 停止服务...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
	if err := srv.Close(); err != nil {
		log.Printf("关闭底层存储失败: %v", err)
	}
}
