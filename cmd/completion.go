package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

// Record labels are not completed: listing them needs the passphrase.

const bashCompletion = `_lockpass() {
    local cur prev words cword
    _init_completion || return

    local commands="add ls show copy edit rm status compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        add)
            COMPREPLY=($(compgen -W "-label -user" -- "$cur"))
            ;;
        show)
            COMPREPLY=($(compgen -W "-reveal" -- "$cur"))
            ;;
        edit)
            COMPREPLY=($(compgen -W "-label -user -password" -- "$cur"))
            ;;
        rm)
            COMPREPLY=($(compgen -W "-force" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _lockpass lockpass
`

const zshCompletion = `#compdef lockpass

_lockpass() {
    local -a commands
    commands=(
        'add:Add a credential, creating the vault on first use'
        'ls:List stored credentials'
        'show:Show a credential'
        'copy:Copy a password to the clipboard'
        'edit:Change a credential'
        'rm:Remove credentials'
        'status:Show vault status without a passphrase'
        'compact:Compact vault to reclaim disk space'
        'keyring:Manage passphrase in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'lockpass commands' commands
            ;;
        args)
            case "${words[2]}" in
                add)
                    _arguments \
                        '-label[Record label]:label:' \
                        '-user[Username]:username:'
                    ;;
                show)
                    _arguments '-reveal[Print the password]'
                    ;;
                edit)
                    _arguments \
                        '-label[New label]:label:' \
                        '-user[New username]:username:' \
                        '-password[Prompt for a new password]'
                    ;;
                rm)
                    _arguments '-force[Remove without confirmation]'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'lockpass commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_lockpass "$@"
`

const fishCompletion = `# lockpass fish completions

set -l commands add ls show copy edit rm status compact keyring help completion

complete -c lockpass -f

# Commands
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a add -d 'Add a credential'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List credentials'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a show -d 'Show a credential'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a copy -d 'Copy a password'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a edit -d 'Change a credential'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove credentials'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault status'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrase in OS keyring'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# add flags
complete -c lockpass -n "__fish_seen_subcommand_from add" -o label -r -d 'Record label'
complete -c lockpass -n "__fish_seen_subcommand_from add" -o user -r -d 'Username'

# show flags
complete -c lockpass -n "__fish_seen_subcommand_from show" -o reveal -d 'Print the password'

# edit flags
complete -c lockpass -n "__fish_seen_subcommand_from edit" -o label -r -d 'New label'
complete -c lockpass -n "__fish_seen_subcommand_from edit" -o user -r -d 'New username'
complete -c lockpass -n "__fish_seen_subcommand_from edit" -o password -d 'Prompt for a new password'

# rm flags
complete -c lockpass -n "__fish_seen_subcommand_from rm" -o force -d 'Remove without confirmation'

# keyring subcommands
complete -c lockpass -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c lockpass -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c lockpass -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
