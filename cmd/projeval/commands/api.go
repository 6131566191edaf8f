package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/projeval/internal/api"
	"github.com/wonny/projeval/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `학습 대시보드 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check (database, redis)
  GET  /api/learning/snapshots/latest   - 최신 정확도 스냅샷
  GET  /api/learning/snapshots?limit=   - 정확도 스냅샷 목록
  GET  /api/learning/suggestions?status=
  GET  /api/learning/proposals?status=
  GET  /api/learning/matches?project_id=
  GET  /api/learning/alerts?status=&severity=&limit=
  GET  /api/learning/runs?limit=        - 학습 실행 이력
  POST /api/learning/run                - 학습 수동 실행 (실행 중이면 409)
  GET  /metrics                         - Prometheus (METRICS_ENABLED)

Example:
  go run ./cmd/projeval api
  go run ./cmd/projeval api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본 PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== projeval API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Wire dependencies
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 2. Create handler
	learningHandler := handlers.NewLearningHandler(a.repo, a.orchestrator, a.cache, a.log)

	// 3. Create router
	router := api.NewRouter(learningHandler, api.RouterOptions{
		Health: map[string]api.Pinger{
			"database": a.db,
			"redis":    a.rdb,
		},
		MetricsEnabled: a.cfg.MetricsEnabled,
	}, a.log)

	// 4. Create server
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// 5. Serve until interrupted, then graceful shutdown
	if err := server.Run(ctx, 30*time.Second); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
