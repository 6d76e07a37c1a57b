package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path"
	"text/tabwriter"
	"time"

	"github.com/b1naryth1ef/adbfs"
	"github.com/b1naryth1ef/adbfs/bridge"
	"github.com/b1naryth1ef/adbfs/transport"
	flag "github.com/spf13/pflag"
)

var configPath = flag.String("config", "", "load settings from a YAML file, flags take precedence")
var tool = flag.String("adb", "adb", "path to the adb executable")
var serial = flag.StringP("serial", "s", "", "serial of the device to use")
var runAs = flag.String("run-as", "", "package whose /data/data directory is accessed through run-as")
var sshHost = flag.String("ssh", "", "run adb on this host over ssh")
var stagingDir = flag.String("staging-dir", adbfs.DefaultStagingDir, "device directory used to stage run-as uploads")
var uploadStrategy = flag.String("upload-strategy", string(adbfs.UploadStage), "how run-as uploads are written: stage or stream")
var listen = flag.String("listen", "localhost:9594", "address the serve command listens on")
var server = flag.String("server", "", "send ls, get, put and rm to a running adbfs server")
var progress = flag.Duration("progress", 0, "log transfer progress at this interval")
var verbose = flag.BoolP("verbose", "v", false, "log every adb invocation")

func usage() {
	fmt.Fprintf(os.Stderr, "usage: adbfs [flags] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "commands:\n")
	fmt.Fprintf(os.Stderr, "  devices                 list attached devices\n")
	fmt.Fprintf(os.Stderr, "  ls [remote]             list a directory\n")
	fmt.Fprintf(os.Stderr, "  get <remote> [local]    download a file\n")
	fmt.Fprintf(os.Stderr, "  put <local> <remote>    upload a file\n")
	fmt.Fprintf(os.Stderr, "  rm <remote>             delete a file or directory tree\n")
	fmt.Fprintf(os.Stderr, "  serve                   expose the session over HTTP\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	err := cli()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (adbfs.Config, error) {
	cfg := adbfs.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = adbfs.LoadConfig(*configPath)
		if err != nil {
			return cfg, err
		}
	}

	changed := flag.CommandLine.Changed
	if changed("adb") {
		cfg.Tool = *tool
	}
	if changed("serial") {
		cfg.Device = *serial
	}
	if changed("run-as") {
		cfg.RunAs = *runAs
	}
	if changed("ssh") {
		cfg.SSHHost = *sshHost
	}
	if changed("staging-dir") {
		cfg.StagingDir = *stagingDir
	}
	if changed("upload-strategy") {
		cfg.UploadStrategy = *uploadStrategy
	}
	if changed("listen") {
		cfg.Listen = *listen
	}
	if changed("verbose") {
		cfg.Verbose = *verbose
	}
	return cfg, cfg.Validate()
}

func openBrowser(ctx context.Context, cfg adbfs.Config) (*adbfs.Browser, func(), error) {
	var runner bridge.Runner = bridge.LocalRunner{}
	closer := func() {}
	if cfg.SSHHost != "" {
		sshRunner := bridge.NewSSHRunner(cfg.SSHHost)
		runner = sshRunner
		closer = func() { sshRunner.Close() }
	}

	b := bridge.New(cfg.Tool, runner)
	b.SetVerbose(cfg.Verbose)

	browser := adbfs.NewBrowser(adbfs.NewFileSystem(b, cfg.Options()), adbfs.NewSession())
	browser.SetScope(cfg.RunAs)
	if cfg.Device != "" {
		if err := browser.SelectDevice(ctx, cfg.Device); err != nil {
			closer()
			return nil, nil, err
		}
	}
	return browser, closer, nil
}

func cli() error {
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *server != "" {
		return remote(transport.NewHTTPClientTransport(*server), args)
	}

	browser, closer, err := openBrowser(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer()

	switch args[0] {
	case "devices":
		devices, err := browser.Devices(ctx)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			return adbfs.ErrNoDevice
		}
		for _, device := range devices {
			fmt.Printf("%s\t%s\n", device.Serial, device.State)
		}
	case "ls":
		if len(args) > 1 {
			browser.Chdir(args[1])
		}
		entries, err := browser.List(ctx)
		printEntries(os.Stdout, browser.Path(), entries)
		return err
	case "get":
		if len(args) < 2 {
			return adbfs.ErrNoSelection
		}
		local := path.Base(args[1])
		if len(args) > 2 {
			local = args[2]
		}
		return download(ctx, browser, args[1], local)
	case "put":
		if len(args) < 3 {
			flag.Usage()
			return nil
		}
		start := time.Now()
		err := browser.Upload(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		logTransfer("put "+args[2], args[1], start)
	case "rm":
		if len(args) < 2 {
			return adbfs.ErrNoSelection
		}
		return browser.Delete(ctx, args[1])
	case "serve":
		return adbfs.NewServer(adbfs.ServerOpts{Listen: cfg.Listen}, browser).ListenAndServe()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

// download pulls remote into local. With --progress the file is streamed
// through exec-out instead so the bytes can be counted as they arrive.
func download(ctx context.Context, browser *adbfs.Browser, remotePath, local string) error {
	if *progress <= 0 {
		start := time.Now()
		err := browser.Download(ctx, remotePath, local)
		if err != nil {
			return err
		}
		logTransfer("get "+remotePath, local, start)
		return nil
	}

	out, err := os.Create(local)
	if err != nil {
		return err
	}
	defer out.Close()

	meter := adbfs.NewMeter("get " + remotePath)
	stop := meter.Report(*progress)
	defer stop()
	return browser.DownloadTo(ctx, remotePath, meter.Writer(out))
}

func logTransfer(label, local string, start time.Time) {
	meter := adbfs.NewMeterAt(label, start)
	if info, err := os.Stat(local); err == nil {
		meter.Add(info.Size())
	}
	log.Printf("%s -> %.2fMb/s", meter, meter.MbPerSecond())
}

func remote(tp *transport.HTTPClientTransport, args []string) error {
	switch args[0] {
	case "ls":
		dir := ""
		if len(args) > 1 {
			dir = args[1]
		}
		result, err := tp.List(dir)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "%s\n", result.Path)
		for _, entry := range result.Entries {
			name := entry.Name
			if entry.Target != "" {
				name += " -> " + entry.Target
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", entry.Permissions, entry.Owner, entry.Group, entry.Size, entry.ModTime, name)
		}
		w.Flush()
		if result.Error != "" {
			return fmt.Errorf("%s", result.Error)
		}
	case "get":
		if len(args) < 2 {
			return adbfs.ErrNoSelection
		}
		local := path.Base(args[1])
		if len(args) > 2 {
			local = args[2]
		}
		out, err := os.Create(local)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = tp.Fetch(args[1], out)
		return err
	case "put":
		if len(args) < 3 {
			flag.Usage()
			return nil
		}
		in, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer in.Close()
		return tp.Push(args[2], in)
	case "rm":
		if len(args) < 2 {
			return adbfs.ErrNoSelection
		}
		return tp.Delete(args[1])
	default:
		return fmt.Errorf("%q is not supported with --server", args[0])
	}
	return nil
}

func printEntries(out io.Writer, dir string, entries []adbfs.RemoteEntry) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\n", dir)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.Permissions, entry.Owner, entry.Group, entry.Size, entry.ModifiedAt, entry.Display())
	}
	w.Flush()
}
