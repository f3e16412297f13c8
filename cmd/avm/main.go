package main

import (
	"abstractvm/pkg/assembler"
	"abstractvm/pkg/config"
	"abstractvm/pkg/fault"
	"abstractvm/pkg/input"
	"abstractvm/pkg/lexer"
	"abstractvm/pkg/logging"
	"abstractvm/pkg/report"
	"abstractvm/pkg/runner"
	"abstractvm/pkg/server"
	"abstractvm/pkg/token"
	"abstractvm/pkg/version"
	"abstractvm/pkg/vm"
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
)

const PROMPT = "avm> "

func main() {
	if len(os.Args) < 2 {
		os.Exit(runCommand(loadConfig(), nil))
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "--version", "-v", "version":
		printVersion()
		return
	case "--help", "-h", "help":
		printHelp()
		return
	}

	cfg := loadConfig()

	// If the first argument ends with .avm, treat it as a file to run
	if strings.HasSuffix(command, ".avm") {
		os.Exit(runCommand(cfg, os.Args[1:]))
	}

	switch command {
	case "run":
		os.Exit(runCommand(cfg, args))
	case "repl":
		os.Exit(startREPL())
	case "check":
		if len(args) < 1 {
			fmt.Println("Usage: avm check <file>")
			os.Exit(1)
		}
		os.Exit(checkFile(cfg, args[0]))
	case "inspect":
		if len(args) < 1 {
			fmt.Println("Usage: avm inspect <file>")
			os.Exit(1)
		}
		os.Exit(inspectFile(cfg, args[0]))
	case "tokens":
		if len(args) < 1 {
			fmt.Println("Usage: avm tokens '<line>'")
			os.Exit(1)
		}
		os.Exit(printTokens(args[0]))
	case "serve":
		os.Exit(serve(cfg, args))
	case "hash-password":
		os.Exit(hashPassword(args))
	case "report":
		if len(args) < 1 {
			fmt.Println("Usage: avm report <file.cbor>")
			os.Exit(1)
		}
		os.Exit(printReport(args[0]))
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printHelp()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Configure(cfg.Log.Verbosity, cfg.Log.Path)
	if cfg.Path != "" {
		logging.Get("avm.config").Infof("loaded %s", cfg.Path)
	}
	return cfg
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// openSource returns the named file, or standard input for "" or "-".
func openSource(path string) (input.Source, string, func(), error) {
	if path != "" && path != "-" {
		r, err := input.Open(path)
		if err != nil {
			return nil, "", nil, err
		}
		return r, path, func() { r.Close() }, nil
	}
	if stdinIsTerminal() {
		p := input.NewPrompt(PROMPT)
		return p, "<stdin>", func() { p.Close() }, nil
	}
	return input.NewReader(os.Stdin, true), "<stdin>", func() {}, nil
}

func printFailure(ln input.Line, err error) {
	fmt.Fprintln(os.Stderr, fault.Render(err, ln.Text))
}

func runCommand(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	tolerant := fs.Bool("t", cfg.Run.Tolerant, "keep running after a failing line")
	reportPath := fs.String("report", cfg.Report.Path, "write a CBOR run report to `file`")
	batch := fs.Int("batch", cfg.Run.BatchSize, "lines read per batch")
	fs.Parse(args)
	if fs.NArg() > 1 {
		fmt.Println("Usage: avm run [-t] [-report file] [file]")
		return 1
	}

	src, name, closeSrc, err := openSource(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return 1
	}
	defer closeSrc()

	machine := vm.New(os.Stdout)
	started := time.Now()
	res, err := runner.Run(src, machine, runner.Options{
		BatchSize: *batch,
		Tolerant:  *tolerant,
		OnError:   printFailure,
	})

	switch {
	case errors.Is(err, runner.ErrNoExit):
		fmt.Fprintln(os.Stderr, "Error: input ended without an exit instruction")
	case errors.Is(err, input.ErrAborted):
		fmt.Fprintln(os.Stderr, "Interrupted")
	case err != nil && fault.KindOf(err) == fault.KindInvalid:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	rep := report.New(name, started, res, err, machine)
	if *reportPath != "" {
		if werr := report.WriteFile(*reportPath, rep); werr != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", werr)
		}
	}
	if _, merr := report.NewMailer(cfg.MailConfig()).SendIfFailed(rep); merr != nil {
		logging.Get("avm.report").Errorf("%s", merr)
	}

	if err != nil || res.Failed() {
		return 1
	}
	return 0
}

func startREPL() int {
	var src input.Source
	if stdinIsTerminal() {
		p := input.NewPrompt(PROMPT)
		defer p.Close()
		src = p
		fmt.Printf("avm %s, type ;; or Ctrl-D to leave\n", version.Version)
	} else {
		src = input.NewReader(os.Stdin, true)
	}

	machine := vm.New(os.Stdout)
	res, err := runner.Run(src, machine, runner.Options{
		BatchSize: 1,
		Tolerant:  true,
		OnError:   printFailure,
	})
	switch {
	case errors.Is(err, runner.ErrNoExit):
		return 0
	case errors.Is(err, input.ErrAborted):
		return 130
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(res.Errors) > 0 {
		return 1
	}
	return 0
}

func assembleFile(cfg *config.Config, filename string) (*assembler.Program, []error, error) {
	r, err := input.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	prog, diags := assembler.Assemble(r, cfg.Run.BatchSize)
	return prog, diags, nil
}

func checkFile(cfg *config.Config, filename string) int {
	prog, diags, err := assembleFile(cfg, filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return 1
	}
	if len(diags) != 0 {
		fmt.Fprint(os.Stderr, assembler.Diagnose(prog, diags))
		fmt.Fprintf(os.Stderr, "%s: %d problem(s)\n", filename, len(diags))
		return 1
	}
	fmt.Printf("%s: ok, %d instruction(s)\n", filename, len(prog.Instructions))
	return 0
}

func inspectFile(cfg *config.Config, filename string) int {
	prog, diags, err := assembleFile(cfg, filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return 1
	}
	printStats(prog.Stats())
	printListing(prog)
	if len(diags) != 0 {
		fmt.Printf("Problems (%d)\n", len(diags))
		fmt.Print(assembler.Diagnose(prog, diags))
	}
	return 0
}

func printTokens(line string) int {
	fmt.Printf("Input: %s\n\n", line)
	fmt.Println("Tokens:")
	fmt.Println("-------")

	l := lexer.New(1, line)
	for {
		tok, err := l.NextToken()
		if err != nil {
			fmt.Fprintln(os.Stderr, fault.Render(err, line))
			return 1
		}
		fmt.Printf("%-8s %-12s (col %d)\n", tok.Type, fmt.Sprintf("'%s'", tok.Literal), tok.Column)
		if tok.Type == token.END {
			return 0
		}
	}
}

func serve(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.Server.Addr, "listen `address`")
	fs.Parse(args)

	ttl, _ := cfg.TokenTTL()
	srv := server.New(server.Options{
		Secret:       cfg.Server.Secret,
		PasswordHash: cfg.Server.PasswordHash,
		TokenTTL:     ttl,
		MaxLine:      cfg.Server.MaxLine,
	})
	if cfg.Server.Secret == "" {
		logging.Get("avm.server").Warningf("no server.secret configured, sessions are unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Printf("Listening on %s\n", *addr)
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// hashPassword prints the bcrypt hash of the password given as argument or
// on the first line of standard input.
func hashPassword(args []string) int {
	var password string
	if len(args) > 0 {
		password = args[0]
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			password = scanner.Text()
		}
	}
	if password == "" {
		fmt.Println("Usage: avm hash-password <password>")
		return 1
	}
	hash, err := server.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}

func printReport(filename string) int {
	rep, err := report.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading report: %v\n", err)
		return 1
	}
	fmt.Print(rep.Summary())
	if rep.Failed() {
		return 1
	}
	return 0
}

func printVersion() {
	fmt.Printf("avm %s\n", version.Version)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}

func printHelp() {
	fmt.Println("avm, a stack machine for typed arithmetic")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  avm <file.avm>             Run a program (shortcut for 'avm run')")
	fmt.Println("  avm run [flags] [file]     Run a program; reads stdin up to ';;' without a file")
	fmt.Println("      -t                     Keep going after a failing line")
	fmt.Println("      -report <file>         Write a CBOR run report")
	fmt.Println("      -batch <n>             Lines read per batch")
	fmt.Println("  avm repl                   Interactive session that survives errors")
	fmt.Println("  avm check <file>           Report every problem without running")
	fmt.Println("  avm inspect <file>         Summarize opcodes, types and stack depth")
	fmt.Println("  avm tokens '<line>'        Print the tokens of one line")
	fmt.Println("  avm serve [-addr a]        Serve sessions over websockets")
	fmt.Println("  avm hash-password <pw>     Print a bcrypt hash for server.password-hash")
	fmt.Println("  avm report <file.cbor>     Print a stored run report")
	fmt.Println("  avm version                Display build metadata")
	fmt.Println("  avm help                   Show this help message")
	fmt.Println()
	fmt.Println("Configuration is read from avm.toml (searched upward), .env and AVM_* variables.")
}
