package validation

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// WriteErrorLog writes failures and issues to a text file at filePath.
// Nothing is written when both are empty.
func WriteErrorLog(filePath string, failures []error, issues []*Issue) error {
	if len(failures) == 0 && len(issues) == 0 {
		return nil
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Payroll Intake - Error Log\nGenerated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	writer.WriteString("================================================================================\n\n")
	writer.WriteString(FormatErrors(failures, issues))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return file.Close()
}
