package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/projeval/internal/learning"
)

// learnCmd represents the learn command
var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "학습 파이프라인",
	Long: `결과 학습 파이프라인을 수동으로 실행합니다.

Subcommands:
  run  - 학습 1회 실행 (compare → ledger → calibrate → weights → patterns → alerts → delivery)`,
}

var (
	learnJSON bool

	learnRunCmd = &cobra.Command{
		Use:   "run",
		Short: "학습 1회 실행",
		Long: `대기 중인 결과를 비교하고 정확도 스냅샷, 벤치마크 제안,
가중치 제안, 패턴 매칭, 알림을 생성합니다.

다른 인스턴스가 실행 중이면 건너뜁니다 (exit code 0).

Example:
  go run ./cmd/projeval learn run
  go run ./cmd/projeval learn run --json`,
		RunE: runLearn,
	}
)

func init() {
	rootCmd.AddCommand(learnCmd)
	learnCmd.AddCommand(learnRunCmd)

	learnRunCmd.Flags().BoolVar(&learnJSON, "json", false, "RunResult를 JSON으로 출력")
}

func runLearn(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orchestrator.Run(ctx)
	if errors.Is(err, learning.ErrRunInProgress) {
		fmt.Println("⏭️  Another learning run is in progress, skipped")
		return nil
	}

	if learnJSON && result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return encErr
		}
	} else if result != nil {
		printRunResult(result)
	}

	if err != nil {
		return fmt.Errorf("learning run failed: %w", err)
	}
	return nil
}

func printRunResult(r *learning.RunResult) {
	status := "✅"
	if !r.Success {
		status = "❌"
	}
	fmt.Printf("%s Run %s (%s)\n", status, r.RunID, r.Duration)
	fmt.Printf("   Stages: %v\n", r.CompletedStages())
	fmt.Printf("   Compared: %d (skipped %d, insufficient data %d)\n", r.Counts.Compared, r.Counts.Skipped, r.Counts.InsufficientData)
	fmt.Printf("   Benchmark suggestions: %d\n", r.Counts.Suggestions)
	fmt.Printf("   Weight proposals: %d\n", r.Counts.Proposals)
	fmt.Printf("   Pattern matches: %d (library %d synced)\n", r.Counts.Matches, r.Counts.PatternsSynced)
	fmt.Printf("   Alerts: %d created, %d duplicate\n", r.Counts.AlertsCreated, r.Counts.AlertsDuplicate)
	fmt.Printf("   Delivery: %d delivered, %d failed\n", r.Counts.AlertsDelivered, r.Counts.AlertsDeliveryFailed)
	if r.Error != "" {
		fmt.Printf("   Error: %s\n", r.Error)
	}
}
