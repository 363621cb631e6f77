package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/illarion/lockpass/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		runAdd(ctx, os.Args[2:])
	case "ls", "list":
		runLs(ctx, os.Args[2:])
	case "show":
		runShow(ctx, os.Args[2:])
	case "copy", "cp":
		runCopy(ctx, os.Args[2:])
	case "edit":
		runEdit(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func loadEnv() *cmd.Env {
	e, err := cmd.NewEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return e
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// singleArg returns the one positional argument or exits with usage
func singleArg(fs *flag.FlagSet, usage string) string {
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	label := fs.String("label", "", "Record label")
	user := fs.String("user", "", "Username")
	parseFlags(fs, args)

	// A bare positional argument is taken as the label
	if *label == "" && fs.NArg() > 0 {
		*label = strings.Join(fs.Args(), " ")
	}

	cmd.Add(ctx, loadEnv(), *label, *user)
}

func runLs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.List(ctx, loadEnv())
}

func runShow(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	reveal := fs.Bool("reveal", false, "Print the password")
	parseFlags(fs, args)

	query := singleArg(fs, "lockpass show [-reveal] <id|label>")
	cmd.Show(ctx, loadEnv(), query, *reveal)
}

func runCopy(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("copy", flag.ExitOnError)
	parseFlags(fs, args)

	query := singleArg(fs, "lockpass copy <id|label>")
	cmd.Copy(ctx, loadEnv(), query)
}

func runEdit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	label := fs.String("label", "", "New label")
	user := fs.String("user", "", "New username")
	password := fs.Bool("password", false, "Prompt for a new password")
	parseFlags(fs, args)

	query := singleArg(fs, "lockpass edit [-label L] [-user U] [-password] <id|label>")

	// Only flags given on the command line change a field, so an
	// explicit empty -user clears the username
	opts := cmd.EditOptions{NewPassword: *password}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "label":
			opts.Label = label
		case "user":
			opts.Username = user
		}
	})

	cmd.Edit(ctx, loadEnv(), query, opts)
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	force := fs.Bool("force", false, "Remove without confirmation")
	parseFlags(fs, args)

	cmd.Remove(ctx, loadEnv(), fs.Args(), *force)
}

func runStatus(_ context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Status(loadEnv())
}

func runCompact(_ context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Compact(loadEnv())
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lockpass keyring <save|delete|status>")
		os.Exit(1)
	}

	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx, loadEnv())
	case "delete":
		cmd.KeyringDelete(loadEnv())
	case "status":
		cmd.KeyringStatus(loadEnv())
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: lockpass keyring <save|delete|status>")
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lockpass completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("lockpass - passphrase-protected credential vault")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lockpass <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  add         Add a credential, creating the vault on first use")
	fmt.Println("  ls          List stored credentials")
	fmt.Println("  show        Show a credential")
	fmt.Println("  copy        Copy a password to the clipboard")
	fmt.Println("  edit        Change a credential")
	fmt.Println("  rm          Remove credentials")
	fmt.Println("  status      Show vault status without a passphrase")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  keyring     Manage passphrase in OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  LOCKPASS_VAULT         Vault file (default .lockpass)")
	fmt.Println("  LOCKPASS_PASSWORD      Passphrase, skips the prompt")
	fmt.Println("  LOCKPASS_LOG_LEVEL     debug, info, warn or error (default warn)")
	fmt.Println("  LOCKPASS_NO_KEYRING    Do not use the OS keyring")
	fmt.Println("  LOCKPASS_OPEN_TIMEOUT  How long to wait for the vault lock (default 1s)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  lockpass add -label github -user octocat   # Store a credential")
	fmt.Println("  lockpass ls                                # List credentials")
	fmt.Println("  lockpass copy github                       # Copy the password")
	fmt.Println()
	fmt.Println("Use 'lockpass help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "add":
		fmt.Println("lockpass add [-label L] [-user U] [label]")
		fmt.Println()
		fmt.Println("Adds a credential. Missing fields are prompted for; the password")
		fmt.Println("is always read without echo.")
		fmt.Println("When no vault exists yet, asks for a new passphrase twice and")
		fmt.Println("creates it. The passphrase is not stored anywhere unless you run")
		fmt.Println("'lockpass keyring save'.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  lockpass add github")
		fmt.Println("  lockpass add -label github -user octocat")
	case "ls", "list":
		fmt.Println("lockpass ls")
		fmt.Println()
		fmt.Println("Lists ids, labels and usernames in insertion order.")
		fmt.Println("Passwords are never printed.")
	case "show":
		fmt.Println("lockpass show [-reveal] <id|label>")
		fmt.Println()
		fmt.Println("Shows one credential. The password is masked unless -reveal is given.")
		fmt.Println("Records are matched by id, then by label (case-insensitive).")
	case "copy", "cp":
		fmt.Println("lockpass copy <id|label>")
		fmt.Println()
		fmt.Println("Copies the password of a credential to the system clipboard.")
	case "edit":
		fmt.Println("lockpass edit [-label L] [-user U] [-password] <id|label>")
		fmt.Println()
		fmt.Println("Changes the given fields of a credential. Flags must come before")
		fmt.Println("the record. -password prompts for the new password.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  lockpass edit -user octocat github")
		fmt.Println("  lockpass edit -password github")
	case "rm":
		fmt.Println("lockpass rm [-force] <id|label> [id|label...]")
		fmt.Println()
		fmt.Println("Removes credentials, asking before each one unless -force is given.")
		fmt.Println("Unknown records are skipped.")
		fmt.Println("The vault is compacted afterwards.")
	case "status":
		fmt.Println("lockpass status")
		fmt.Println()
		fmt.Println("Shows vault status including:")
		fmt.Println("  - File size and encryption details")
		fmt.Println("  - Created and modified times")
		fmt.Println("  - Keyring and git status")
		fmt.Println()
		fmt.Println("Does not require a passphrase.")
	case "compact":
		fmt.Println("lockpass compact")
		fmt.Println()
		fmt.Println("Compacts the vault database to reclaim unused disk space.")
		fmt.Println("This is automatically done after 'rm', but can be run manually.")
		fmt.Println()
		fmt.Println("Does not require a passphrase.")
	case "keyring":
		fmt.Println("lockpass keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("  save    Verify the passphrase and store it in the OS keyring")
		fmt.Println("  delete  Remove the stored passphrase")
		fmt.Println("  status  Report whether a passphrase is stored")
	case "completion":
		fmt.Println("lockpass completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(lockpass completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(lockpass completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  lockpass completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
