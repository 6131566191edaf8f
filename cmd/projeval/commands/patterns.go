package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wonny/projeval/internal/patterns"
)

// patternsCmd represents the patterns command
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "의사결정 패턴 라이브러리",
	Long: `패턴 라이브러리(YAML)를 검증하거나 조회합니다.

Subcommands:
  validate [file]  - 라이브러리 파일 검증
  list             - 현재 라이브러리 패턴 목록 (PATTERN_LIBRARY_PATH 또는 내장 기본값)

Example:
  go run ./cmd/projeval patterns validate ./library.yaml
  go run ./cmd/projeval patterns list`,
}

var (
	patternsValidateCmd = &cobra.Command{
		Use:   "validate [file]",
		Short: "라이브러리 파일 검증",
		Args:  cobra.ExactArgs(1),
		RunE:  validatePatterns,
	}

	patternsListCmd = &cobra.Command{
		Use:   "list",
		Short: "패턴 목록",
		RunE:  listPatterns,
	}
)

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsValidateCmd)
	patternsCmd.AddCommand(patternsListCmd)
}

func validatePatterns(cmd *cobra.Command, args []string) error {
	lib, err := patterns.LoadLibrary(args[0])
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	hash, err := patterns.Hash(lib)
	if err != nil {
		return err
	}

	fmt.Printf("✅ %s is valid\n", args[0])
	fmt.Printf("   Version: %s\n", lib.Version)
	fmt.Printf("   Patterns: %d\n", len(lib.Patterns))
	fmt.Printf("   Hash: %s\n", hash)
	return nil
}

func listPatterns(cmd *cobra.Command, args []string) error {
	// DB 연결 없이 경로만 필요 (config 검증 오류 시 내장 기본값)
	path := os.Getenv("PATTERN_LIBRARY_PATH")
	if cfg, _, err := loadConfig(); err == nil {
		path = cfg.Learning.PatternLibraryPath
	}

	lib, err := loadLibrary(path)
	if err != nil {
		return err
	}

	source := "embedded default"
	if path != "" {
		source = path
	}
	fmt.Printf("Pattern library %s (%s)\n\n", lib.Version, source)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tCATEGORY\tCONDITIONS\tNAME")
	for _, p := range lib.Patterns {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", p.ID, p.Version, p.Category, len(p.Conditions), p.Name)
	}
	return w.Flush()
}
