package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/absurd-lang/relbuild/internal/artifact"
	"github.com/sirupsen/logrus"
)

// Format selects how progress is written.
type Format string

const (
	// FormatText prints ">>> " prefixed lines for people.
	FormatText Format = "text"
	// FormatKV prints one logfmt record per event.
	FormatKV Format = "kv"
)

// ParseFormat accepts "text" or "kv" (case-insensitive). Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatKV:
		return FormatKV, nil
	default:
		return "", fmt.Errorf("unknown output format %q: supported formats are %q and %q", s, FormatText, FormatKV)
	}
}

type progress struct {
	w  io.Writer
	kv *logrus.Logger
}

func newProgress(w io.Writer, f Format) *progress {
	p := &progress{w: w}
	if f == FormatKV {
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(logrus.InfoLevel)
		l.SetFormatter(&logrus.TextFormatter{
			DisableColors:    true,
			DisableTimestamp: true,
		})
		p.kv = l
	}
	return p
}

func (p *progress) stage(s Stage, text string, fields logrus.Fields) {
	if p.kv != nil {
		p.kv.WithFields(fields).WithField("stage", string(s)).Info(strings.TrimSuffix(text, "..."))
		return
	}
	fmt.Fprintf(p.w, ">>> %s\n", text)
}

func (p *progress) report(r *artifact.SizeReport) {
	if p.kv != nil {
		p.kv.WithFields(r.Fields()).WithField("stage", string(StageReport)).Info("artifact size")
		return
	}
	fmt.Fprintf(p.w, ">>> %s\n", r)
}

func (p *progress) missing(path string) {
	if p.kv != nil {
		p.kv.WithFields(logrus.Fields{"stage": string(StageReport), "path": path}).Error("artifact does not exist")
		return
	}
	fmt.Fprintf(p.w, ">>> %s does not exist.\n", path)
}
