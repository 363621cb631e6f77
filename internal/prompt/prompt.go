// Package prompt reads passphrases and record fields from the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/illarion/lockpass/internal/crypto"
	"golang.org/x/term"
)

var ErrMismatch = errors.New("passwords do not match")

// stdin is shared so that buffered line reads and password reads do not
// lose input to each other when stdin is a pipe.
var stdin = bufio.NewReader(os.Stdin)

var isTerminal = term.IsTerminal

// ReadLine prints prompt and reads one line, without the trailing newline
func ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadPassword reads a password from the terminal without echoing.
// When stdin is not a terminal, a plain line is read instead.
func ReadPassword(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		line, err := ReadLine(prompt)
		if err != nil {
			return nil, err
		}
		return []byte(line), nil
	}

	fmt.Print(prompt)
	password, err := term.ReadPassword(fd)
	fmt.Println() // New line after password

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	password1, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := ReadPassword("Confirm: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, ErrMismatch
	}

	// Return a copy of the password
	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// Confirm asks a yes/no question; anything but y or yes is no
func Confirm(question string) bool {
	answer, err := ReadLine(question + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
