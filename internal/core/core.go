// Package core contains the main struct of the software.
package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/sunfish-shogi/bufseekio"

	"github.com/bluenviron/fmp4mux/internal/conf"
	"github.com/bluenviron/fmp4mux/internal/inspect"
	"github.com/bluenviron/fmp4mux/internal/job"
	"github.com/bluenviron/fmp4mux/internal/logger"
	"github.com/bluenviron/fmp4mux/internal/watcher"
)

var version = "v0.0.0"

var defaultConfPaths = []string{
	"fmp4mux.yml",
	"/usr/local/etc/fmp4mux.yml",
	"/etc/fmp4mux/fmp4mux.yml",
}

type cliArgs struct {
	Version bool `help:"print version"`

	Mux struct {
		Confpath string `arg:"" optional:""`
		Watch    bool   `help:"run the job again when the config file or an input file changes"`
	} `cmd:"" default:"withargs" help:"mux the configured tracks into a fMP4 stream (default command)"`

	Inspect struct {
		File   string `arg:"" help:"MP4 file to inspect"`
		Fields bool   `help:"print the fields of every box"`
	} `cmd:"" help:"print the box structure of a MP4 file"`
}

// Core is an instance of fmp4mux.
type Core struct {
	ctx       context.Context
	ctxCancel func()
	args      cliArgs
	command   string
	confPath  string
	conf      *conf.Conf
	logger    *logger.Logger
	watcher   *watcher.Watcher
	jobCancel func()
	err       error

	// out
	done chan struct{}
}

// New allocates a Core.
func New(args []string) (*Core, bool) {
	p := &Core{}

	parser, err := kong.New(&p.args,
		kong.Description("fmp4mux "+version),
		kong.UsageOnError(),
		kong.ValueFormatter(func(value *kong.Value) string {
			switch value.Name {
			case "confpath":
				return "path to a config file. The default is fmp4mux.yml."

			default:
				return kong.DefaultHelpValueFormatter(value)
			}
		}))
	if err != nil {
		panic(err)
	}

	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	if p.args.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	p.command = strings.Fields(kctx.Command())[0]
	p.ctx, p.ctxCancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})

	if p.command == "inspect" {
		go p.runInspect()
		return p, true
	}

	p.conf, p.confPath, err = conf.Load(p.args.Mux.Confpath, defaultConfPaths)
	if err != nil {
		fmt.Printf("ERR: %s\n", err)
		return nil, false
	}

	err = p.createResources()
	if err != nil {
		if p.logger != nil {
			p.Log(logger.Error, "%s", err)
		} else {
			fmt.Printf("ERR: %s\n", err)
		}
		p.closeResources()
		return nil, false
	}

	go p.run()

	return p, true
}

// Close closes Core and waits for all goroutines to return.
func (p *Core) Close() {
	p.ctxCancel()
	<-p.done
}

// Wait waits for the Core to exit.
// It returns the error that caused the exit, if any.
func (p *Core) Wait() error {
	<-p.done
	return p.err
}

// Log is the main logging function.
func (p *Core) Log(level logger.Level, format string, args ...any) {
	p.logger.Log(level, format, args...)
}

func (p *Core) runInspect() {
	defer close(p.done)

	p.err = func() error {
		f, err := os.Open(p.args.Inspect.File)
		if err != nil {
			return err
		}
		defer f.Close()

		r := bufseekio.NewReadSeeker(f, 128*1024, 4)

		boxes, err := inspect.Read(r, p.args.Inspect.Fields)
		if err != nil {
			return err
		}

		return inspect.Print(os.Stdout, boxes)
	}()

	if p.err != nil {
		fmt.Printf("ERR: %s\n", p.err)
	}
}

func (p *Core) startJob() chan error {
	var jobCtx context.Context
	jobCtx, p.jobCancel = context.WithCancel(p.ctx)

	j := &job.Job{
		Conf:   p.conf,
		Parent: p,
	}

	ch := make(chan error, 1)

	go func() {
		_, err := j.Run(jobCtx)
		ch <- err
	}()

	return ch
}

func (p *Core) run() {
	defer close(p.done)

	filesChanged := func() chan struct{} {
		if p.watcher != nil {
			return p.watcher.Watch()
		}
		return make(chan struct{})
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	jobDone := p.startJob()

outer:
	for {
		select {
		case err := <-jobDone:
			jobDone = nil

			if err != nil {
				p.Log(logger.Error, "%s", err)
				if p.watcher == nil {
					p.err = err
				}
			}

			if p.watcher == nil {
				break outer
			}

			p.Log(logger.Info, "waiting for changes")

		case _, ok := <-filesChanged():
			if !ok {
				p.err = fmt.Errorf("file watcher stopped")
				p.Log(logger.Error, "%s", p.err)
				break outer
			}

			p.Log(logger.Info, "running job again (file changed)")

			if jobDone != nil {
				p.jobCancel()
				<-jobDone
			}

			err := p.reloadConf()
			if err != nil {
				p.Log(logger.Error, "%s", err)
				p.err = err
				break outer
			}

			jobDone = p.startJob()

		case <-interrupt:
			p.Log(logger.Info, "shutting down gracefully")
			break outer

		case <-p.ctx.Done():
			break outer
		}
	}

	p.ctxCancel()

	if jobDone != nil {
		<-jobDone
	}

	p.closeResources()
}

func (p *Core) watchedFiles() []string {
	var ret []string

	if p.confPath != "" {
		ret = append(ret, p.confPath)
	}

	for _, t := range p.conf.Tracks {
		ret = append(ret, t.File)
	}

	return ret
}

func (p *Core) createResources() error {
	if p.logger == nil {
		p.logger = &logger.Logger{
			Level:        logger.Level(p.conf.LogLevel),
			Destinations: p.conf.LogDestinations,
			File:         p.conf.LogFile,
		}
		err := p.logger.Initialize()
		if err != nil {
			p.logger = nil
			return err
		}

		p.Log(logger.Info, "fmp4mux %s", version)

		if p.confPath != "" {
			p.Log(logger.Debug, "configuration loaded from %s", p.confPath)
		}
	}

	if p.args.Mux.Watch && p.watcher == nil {
		w := &watcher.Watcher{FilePaths: p.watchedFiles()}
		err := w.Initialize()
		if err != nil {
			return err
		}
		p.watcher = w
	}

	return nil
}

func (p *Core) closeResources() {
	if p.watcher != nil {
		p.watcher.Close()
		p.watcher = nil
	}

	if p.logger != nil {
		p.logger.Close()
		p.logger = nil
	}
}

// reloadConf loads the configuration again.
// Files to watch can change, therefore the watcher is recreated.
func (p *Core) reloadConf() error {
	newConf, _, err := conf.Load(p.confPath, nil)
	if err != nil {
		return err
	}

	p.watcher.Close()
	p.watcher = nil

	p.conf = newConf

	return p.createResources()
}
