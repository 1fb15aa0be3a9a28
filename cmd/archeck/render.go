package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/mranv/agentARChecker/internal/arquery"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		return statusKindColor(kind).Sprint(base)
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) *color.Color {
	var c *color.Color
	switch kind {
	case statusOK:
		c = color.New(color.FgGreen)
	case statusWarn:
		c = color.New(color.FgYellow)
	case statusError:
		c = color.New(color.FgRed)
	default:
		c = color.New(color.FgBlue)
	}
	// The caller already decided; don't let color's own tty probe override it.
	c.EnableColor()
	return c
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressPrinter renders driver transitions: progress and results to out,
// failures and operator hints to errOut.
type progressPrinter struct {
	out         io.Writer
	errOut      io.Writer
	colorOut    bool
	colorErr    bool
	endpoint    string
	headerShown bool
}

func newProgressPrinter(out, errOut io.Writer, endpoint string) *progressPrinter {
	return &progressPrinter{
		out:      out,
		errOut:   errOut,
		colorOut: shouldColorize(out),
		colorErr: shouldColorize(errOut),
		endpoint: endpoint,
	}
}

func (p *progressPrinter) Report(e arquery.Event) {
	label := "Agent " + e.Agent
	switch e.State {
	case arquery.StateAttempting:
		if !p.headerShown {
			p.headerShown = true
			fmt.Fprintln(p.out, renderStatusLine("Remote", statusInfo, p.endpoint, p.colorOut))
		}
		if e.Attempt > 1 {
			fmt.Fprintln(p.out, renderStatusLine(label, statusInfo,
				fmt.Sprintf("attempt %d/%d", e.Attempt, e.MaxAttempts), p.colorOut))
		}
	case arquery.StateWaiting:
		fmt.Fprintln(p.out, renderStatusLine(label, statusWarn,
			fmt.Sprintf("attempt %d/%d failed; retrying in %s", e.Attempt, e.MaxAttempts, formatDelay(e.Delay)), p.colorOut))
	case arquery.StateSucceeded:
		kind := statusOK
		if e.Response.Status != arquery.StatusOK {
			kind = statusWarn
		}
		fmt.Fprintln(p.out, renderStatusLine(label, kind, formatResponse(e.Response), p.colorOut))
	case arquery.StateFailed:
		fmt.Fprintln(p.errOut, renderStatusLine(label, statusError, errorMessage(e.Err), p.colorErr))
		if hint := arquery.Hint(e.Err); hint != "" {
			fmt.Fprintf(p.errOut, "%s%-*s %s\n", statusIndent, statusLabelWidth, "", "hint: "+hint)
		}
	}
}

func formatResponse(resp arquery.Response) string {
	body := strings.TrimSpace(resp.Body)
	if body == "" {
		return resp.Status
	}
	return resp.Status + " | " + body
}

func formatDelay(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func errorMessage(err error) string {
	if err == nil {
		return "failed"
	}
	return err.Error()
}
