// Package console drives a single session from line-oriented commands.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"stylefuse/internal/domain"
	"stylefuse/internal/i18n"
	"stylefuse/internal/infra"
	"stylefuse/internal/reference"
	"stylefuse/internal/session"
)

const helpText = `commands:
  image <path>     use the file at path as the reference image
  clear            remove the reference image
  text <content>   set the content text
  generate         generate a design prompt and wait for it
  status           show the current state
  prompt           print the last generated prompt
  help             show this help
  quit             exit`

// Console executes commands against one session and writes replies to Out.
type Console struct {
	Session        *session.Session
	Catalog        *i18n.Catalog
	Locale         string
	Logger         *infra.Logger
	Out            io.Writer
	MaxUploadBytes int64
}

// Execute runs one command line. It reports false once the user asked to quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	line = strings.TrimLeft(line, " \t")
	cmd, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "":
	case "image":
		c.image(ctx, strings.TrimSpace(arg))
	case "clear":
		c.Session.SetImage(nil)
		c.status()
	case "text":
		c.Session.SetText(arg)
		c.status()
	case "generate":
		c.generate(ctx)
	case "status":
		c.status()
	case "prompt":
		c.prompt()
	case "help", "?":
		c.println(helpText)
	case "quit", "exit":
		return false
	default:
		c.printf("unknown command %q, type help\n", cmd)
	}
	return true
}

func (c *Console) image(ctx context.Context, path string) {
	if path == "" {
		c.println("usage: image <path>")
		return
	}
	ticket := c.Session.BeginUpload()
	up, err := reference.ReadFile(ctx, path, c.MaxUploadBytes)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn().Err(err).Str("path", path).Msg("console: image not loaded")
		}
		if errors.Is(err, domain.ErrUnsupportedMedia) {
			c.println(c.msg("upload.unsupported"))
			return
		}
		c.println(c.msg("upload.failed"))
		return
	}
	c.Session.CompleteUpload(ticket, up)
	c.status()
}

func (c *Console) generate(ctx context.Context) {
	before := c.Session.Snapshot()
	if !c.Session.Generate(ctx) {
		if before.Ready {
			c.println(c.msg("generate.busy"))
		} else {
			c.println(c.msg("generate.not_ready"))
		}
		return
	}
	snap := c.Session.Snapshot()
	if snap.Phase == domain.PhaseError {
		c.println(c.msg("phase.error"))
		if snap.Err != nil {
			c.printf("  %v\n", snap.Err)
		}
		return
	}
	c.println(c.msg("phase.success") + ":")
	c.println(snap.Prompt)
}

func (c *Console) status() {
	snap := c.Session.Snapshot()
	c.printf("phase: %s\n", snap.Phase)
	if snap.Image != nil {
		c.printf("image: %s (%s, %d bytes)\n", snap.Image.Name, snap.Image.MIMEType, snap.Image.Size)
	} else {
		c.println("image: none")
	}
	c.printf("text:  %q\n", snap.Text)
	c.printf("ready: %t\n", snap.Ready)
	c.println(c.msg("phase." + string(snap.Phase)))
}

func (c *Console) prompt() {
	text, err := c.Session.Prompt()
	if err != nil {
		c.println(c.msg("prompt.none"))
		return
	}
	c.println(text)
}

func (c *Console) msg(key string) string {
	catalog := c.Catalog
	if catalog == nil {
		catalog = i18n.Default()
	}
	return catalog.Message(c.Locale, key)
}

func (c *Console) println(s string) {
	_, _ = fmt.Fprintln(c.Out, s)
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.Out, format, args...)
}
