package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "projeval",
	Short: "projeval - 프로젝트 평가 결과 학습 파이프라인",
	Long: `projeval Unified CLI

완료된 프로젝트의 실제 결과를 예측과 비교하고,
정확도 원장 / 벤치마크 보정 / 가중치 제안 / 패턴 매칭 / 알림을 생성합니다.

Usage:
  go run ./cmd/projeval [command]

Examples:
  go run ./cmd/projeval migrate
  go run ./cmd/projeval learn run
  go run ./cmd/projeval scheduler start
  go run ./cmd/projeval api
  go run ./cmd/projeval patterns validate ./library.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug 로그 출력")
}
