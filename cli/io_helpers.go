package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives everything the commands print. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// prompter asks questions on out and reads one line per answer from in
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// line prints label and returns the trimmed answer. EOF counts as a blank answer.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	text, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *prompter) required(label string) (string, error) {
	value, err := p.line(label)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.TrimRight(label, ": "))
	}
	return value, nil
}

// yesNo returns def for a blank answer and true only for y/yes otherwise
func (p *prompter) yesNo(label string, def bool) (bool, error) {
	value, err := p.line(label)
	if err != nil {
		return false, err
	}
	if value == "" {
		return def, nil
	}
	answer := strings.ToLower(value)
	return answer == "y" || answer == "yes", nil
}

// quality falls back to def when the answer is not a number in 1..100
func (p *prompter) quality(label string, def int) (int, error) {
	value, err := p.line(label)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return def, nil
	}
	q, convErr := strconv.Atoi(value)
	if convErr != nil || q < 1 || q > 100 {
		fmt.Fprintf(p.out, "Invalid quality, using %d\n", def)
		return def, nil
	}
	return q, nil
}

// limit returns 0 (no limit) for a blank or invalid answer
func (p *prompter) limit(label string) (int, error) {
	value, err := p.line(label)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	n, convErr := strconv.Atoi(value)
	if convErr != nil || n <= 0 {
		fmt.Fprintln(p.out, "Invalid value, no limit applied.")
		return 0, nil
	}
	return n, nil
}
