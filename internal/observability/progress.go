package observability

import (
	"fmt"

	"github.com/jonathan/env-validator/internal/types"
)

// The methods below print the run's human-readable progress lines.

//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) line(s string) {
	fmt.Fprintln(p.out, s)
}

// Starting announces the start of the program.
func (p *Printer) Starting() {
	p.line(p.styles.success.Render("Starting app"))
}

// ValidationTarget names the project and environment being validated.
func (p *Printer) ValidationTarget(info *types.EnvironmentInfo) {
	p.line(fmt.Sprintf("Starting validation for project '%s' and environment '%s'",
		p.styles.highlight.Render(info.Name), p.styles.highlight.Render(info.Environment)))
}

// Waiting is printed before each status check.
func (p *Printer) Waiting() {
	p.line(p.styles.waiting.Render("Waiting for validation to finish"))
}

// ResponseFetched is printed once the task has finished.
func (p *Printer) ResponseFetched() {
	p.line("Validation response fetched")
}

// NoIssues reports a clean environment.
func (p *Printer) NoIssues() {
	p.line(p.styles.success.Render("Success! No validation issues found"))
}

// ItemCount reports how many validation items were returned.
func (p *Printer) ItemCount(n int) {
	p.line(fmt.Sprintf("Validation finished with '%s' validation items",
		p.styles.highlight.Render(fmt.Sprintf("%d", n))))
}

// FileCreated confirms an export file was written.
func (p *Printer) FileCreated(path string) {
	p.line(fmt.Sprintf("File '%s' successfully created", p.styles.highlight.Render(path)))
}

// Warning prints a non-fatal problem.
func (p *Printer) Warning(format string, args ...any) {
	p.line(p.styles.highlight.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Failed reports the error that ended the run.
func (p *Printer) Failed(err error) {
	p.line(p.styles.fail.Render(fmt.Sprintf("Validation run failed: %v", err)))
}
