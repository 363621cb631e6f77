package git

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// VaultStatus describes how git sees the vault file
type VaultStatus struct {
	IsRepo  bool
	Tracked bool
	Ignored bool
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckVault reports the git status of the vault file. The repository is
// looked up from the directory containing vaultPath.
func CheckVault(vaultPath string) *VaultStatus {
	dir := filepath.Dir(vaultPath)
	name := filepath.Base(vaultPath)

	status := &VaultStatus{}
	if !IsGitRepo(dir) {
		return status
	}
	status.IsRepo = true
	status.Tracked = IsTracked(dir, name)
	status.Ignored = IsIgnored(dir, name)
	return status
}

// Format renders the status for lockpass status
func (s *VaultStatus) Format(name string) string {
	if !s.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")

	switch {
	case s.Tracked:
		result.WriteString("   ok: " + name + " is tracked by git\n")
	case s.Ignored:
		result.WriteString("   note: " + name + " is ignored by git and will not be versioned\n")
	default:
		result.WriteString("   note: " + name + " is not tracked (run: git add " + name + ")\n")
	}

	return result.String()
}
