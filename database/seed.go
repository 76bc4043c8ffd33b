package database

import (
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/utils"
)

// ExecuteSQLFile runs the statements of a seed file one by one. Statements
// are separated by semicolons at the end of a line; "--" comment lines are
// skipped. Execution stops at the first failing statement.
func ExecuteSQLFile(db *gorm.DB, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	executed := 0
	for _, stmt := range splitStatements(string(content)) {
		if err := db.Exec(stmt).Error; err != nil {
			utils.ErrorLogger.Printf("Error executing seed statement: %v\nStatement: %s", err, stmt)
			return executed, fmt.Errorf("seed statement %d: %w", executed+1, err)
		}
		executed++
	}
	utils.InfoLogger.Printf("Seed file %s applied (%d statements)", path, executed)
	return executed, nil
}

func splitStatements(sql string) []string {
	var (
		stmts   []string
		current strings.Builder
	)
	for _, line := range strings.Split(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";"); stmt != "" {
				stmts = append(stmts, stmt)
			}
			current.Reset()
		}
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		stmts = append(stmts, stmt)
	}
	return stmts
}
