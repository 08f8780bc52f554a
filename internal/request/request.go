// Package request defines the envelope the dispatcher sends to the agent over
// the data channel of a restricted SSH session.
//
// The forced command bound to the restricted key ignores the command string the
// client asked for. The real request travels as the first line of stdin:
//
//	run
//	setup
//	update-script
//	info service nginx
//	info docker redis:latest
//
// An optional trailing --format=<text|json|yaml> token selects the output form
// for run and info.
package request

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
)

// MaxLineLength bounds the request line read by the gate.
const MaxLineLength = 512

// Kind is the request variant.
type Kind string

const (
	Run          Kind = "run"
	Setup        Kind = "setup"
	Info         Kind = "info"
	UpdateScript Kind = "update-script"
)

// ItemKind is what an info request looks at.
type ItemKind string

const (
	Service ItemKind = "service"
	Docker  ItemKind = "docker"
)

// Format is the output form of a report.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// validName matches unit and image names: letters, digits and the punctuation
// used by systemd units and image references (nginx.service, redis:7, ghcr.io/a/b@sha256:...).
var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/@+-]*$`)

// Request is a parsed, validated envelope.
type Request struct {
	Kind     Kind
	ItemKind ItemKind // Info only
	Name     string   // Info only
	Format   Format   // empty means text
}

// NewRun builds a run request.
func NewRun(format Format) Request {
	return Request{Kind: Run, Format: format}
}

// NewInfo builds an info request.
func NewInfo(kind ItemKind, name string, format Format) Request {
	return Request{Kind: Info, ItemKind: kind, Name: name, Format: format}
}

// String encodes the request as a single line without the trailing newline.
func (r Request) String() string {
	parts := []string{string(r.Kind)}
	if r.Kind == Info {
		parts = append(parts, string(r.ItemKind), r.Name)
	}
	if r.Format != "" && r.Format != FormatText {
		parts = append(parts, "--format="+string(r.Format))
	}
	return strings.Join(parts, " ")
}

// Validate checks the request is well formed.
func (r Request) Validate() error {
	switch r.Kind {
	case Run, Setup, UpdateScript:
		if r.ItemKind != "" || r.Name != "" {
			return invalid(fmt.Sprintf("'%s' takes no arguments", r.Kind))
		}
	case Info:
		if r.ItemKind != Service && r.ItemKind != Docker {
			return invalid(fmt.Sprintf("info kind must be service or docker, got '%s'", r.ItemKind))
		}
		if !validName.MatchString(r.Name) || len(r.Name) > 255 {
			return invalid(fmt.Sprintf("'%s' isn't a valid name", r.Name))
		}
	default:
		return invalid(fmt.Sprintf("unknown request '%s'", r.Kind))
	}

	if r.Format != "" {
		if _, err := ParseFormat(string(r.Format)); err != nil {
			return err
		}
		if r.Kind != Run && r.Kind != Info {
			return invalid(fmt.Sprintf("'%s' doesn't take --format", r.Kind))
		}
	}
	return nil
}

// Parse decodes one request line.
func Parse(line string) (Request, error) {
	if len(line) > MaxLineLength {
		return Request{}, invalid("request line too long")
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Request{}, invalid("empty request")
	}

	var req Request
	if last := fields[len(fields)-1]; strings.HasPrefix(last, "--format=") {
		req.Format = Format(strings.TrimPrefix(last, "--format="))
		fields = fields[:len(fields)-1]
		if len(fields) == 0 {
			return Request{}, invalid("empty request")
		}
	}

	req.Kind = Kind(fields[0])
	switch req.Kind {
	case Info:
		if len(fields) != 3 {
			return Request{}, invalid("usage: info <service|docker> <name>")
		}
		req.ItemKind = ItemKind(fields[1])
		req.Name = fields[2]
	default:
		if len(fields) != 1 {
			return Request{}, invalid(fmt.Sprintf("'%s' takes no arguments", fields[0]))
		}
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// ParseFormat validates an output format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", invalid(fmt.Sprintf("unknown format '%s'", s))
}

func invalid(msg string) error {
	return errors.New(errors.ErrRequest, "Invalid request: "+msg,
		"Valid requests: run, setup, update-script, info <service|docker> <name>")
}
