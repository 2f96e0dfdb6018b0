// Package approvals implements fnord's C4 component: the layered approval
// state machine that gates shell commands and file edits before the
// completion loop is allowed to execute them. Two independent workflows
// (shell, edit) share one policy substrate: a built-in allow-list, a
// session-scoped accumulator, and the durable settings store (C1).
package approvals

import (
	"fmt"
	"regexp"
	"strings"
)

// Decision is the outcome of an approval check, shared by the shell and
// edit workflows.
type Decision struct {
	Approved bool
	Denied   bool
	Reason   string // set when Denied
}

var approved = Decision{Approved: true}

func denied(reason string) Decision {
	return Decision{Denied: true, Reason: reason}
}

// Command is one element of a shell pipeline/chain.
type Command struct {
	Command string
	Args    []string
}

// Pipeline is the shell workflow's input: a sequence of commands joined by
// Operator ("|" or "&&"), plus the model's stated purpose (shown to the
// user in the approval dialog, not used in matching).
type Pipeline struct {
	Operator string
	Commands []Command
	Purpose  string
}

// shellInterpreters is the hard-rejection list: any command whose basename
// is one of these, invoked with -c/-lc or via "env VAR=... shell ...", is
// rejected unconditionally regardless of any approval list. This prevents
// approval laundering (spec.md §4.4 "Hard rejection").
var shellInterpreters = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "ksh": true, "dash": true, "fish": true,
}

// readOnlyPrefixes is the built-in prefix allow-list consulted at decision
// step 1. Entries are canonicalised "cmd subcmd" token sequences.
var readOnlyPrefixes = map[string]bool{
	"git log": true, "git show": true, "git diff": true, "git status": true,
	"git branch": true, "git blame": true, "git rev-parse": true,
	"ls": true, "cat": true, "grep": true, "rg": true, "find": true,
	"pwd": true, "echo": true, "head": true, "tail": true, "wc": true,
	"docker ps": true, "docker images": true,
	"kubectl get": true, "kubectl describe": true, "kubectl logs": true,
}

// writeAllowedPrefixes is consulted at step 1 only when edit mode and
// session-auto approval are both active.
var writeAllowedPrefixes = map[string]bool{
	"git add": true, "git commit": true, "git checkout": true,
	"npm install": true, "go mod": true,
}

// commandFamilies maps a command basename to the set of subcommand tokens
// recognised for prefix canonicalisation, plus flags that take a value
// (and so must be skipped along with their argument) versus bare switches.
// Unlisted basenames fall back to "basename" alone as their prefix.
type family struct {
	subcommands map[string]bool
	valueFlags  map[string]bool
}

var commandFamilies = map[string]family{
	"git": {
		subcommands: map[string]bool{
			"log": true, "show": true, "diff": true, "status": true, "branch": true,
			"blame": true, "rev-parse": true, "add": true, "commit": true, "checkout": true,
			"push": true, "pull": true, "fetch": true, "stash": true, "reset": true,
		},
		valueFlags: map[string]bool{"-C": true, "--git-dir": true, "--work-tree": true},
	},
	"docker": {
		subcommands: map[string]bool{"ps": true, "images": true, "image": true, "container": true, "run": true, "exec": true, "build": true, "rm": true},
		valueFlags:  map[string]bool{"-H": true, "--host": true, "--context": true},
	},
	"kubectl": {
		subcommands: map[string]bool{"get": true, "describe": true, "logs": true, "apply": true, "delete": true, "exec": true},
		valueFlags:  map[string]bool{"-n": true, "--namespace": true, "--context": true, "-o": true},
	},
	"npm": {subcommands: map[string]bool{"install": true, "run": true, "test": true, "ci": true}},
	"go":  {subcommands: map[string]bool{"mod": true, "build": true, "test": true, "run": true, "vet": true}},
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	if i := strings.LastIndexByte(path, '\\'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// canonicalPrefix computes the "cmd subcmd" match string for a command,
// per spec.md §4.4: known families skip leading flags (and their values)
// to find the subcommand token; unknown commands canonicalise to their
// bare basename.
func canonicalPrefix(cmd Command) string {
	base := basename(cmd.Command)
	fam, ok := commandFamilies[base]
	if !ok {
		return base
	}
	i := 0
	for i < len(cmd.Args) {
		a := cmd.Args[i]
		if !strings.HasPrefix(a, "-") {
			break
		}
		if fam.valueFlags[a] {
			i += 2
			continue
		}
		i++
	}
	if i < len(cmd.Args) && fam.subcommands[cmd.Args[i]] {
		return base + " " + cmd.Args[i]
	}
	return base
}

// fullCommandString is the second match string: basename plus every
// argument, space-joined, used for regex/full-string matching at decision
// steps 2-3.
func fullCommandString(cmd Command) string {
	if len(cmd.Args) == 0 {
		return basename(cmd.Command)
	}
	return basename(cmd.Command) + " " + strings.Join(cmd.Args, " ")
}

// checkHardRejection implements the unconditional shell-interpreter block.
// It recognises both "bash -c ..."/"bash -lc ..." and the "env VAR=x bash
// -c ..." laundering pattern.
func checkHardRejection(cmd Command) (bool, string) {
	base := basename(cmd.Command)
	args := cmd.Args

	if base == "env" {
		i := 0
		for i < len(args) && strings.Contains(args[i], "=") {
			i++
		}
		if i < len(args) {
			base = basename(args[i])
			args = args[i+1:]
		}
	}

	if !shellInterpreters[base] {
		return false, ""
	}
	for _, a := range args {
		if a == "-c" || a == "-lc" {
			full := fullCommandString(cmd)
			return true, fmt.Sprintf("shell invocation not allowed: %s", full)
		}
	}
	return false, ""
}

// compileShellFull compiles pattern as a regex if wrapped in "/.../", else
// returns nil (meaning "match as a literal prefix" is the caller's job).
func compileShellFull(pattern string) (*regexp.Regexp, bool) {
	if len(pattern) >= 2 && pattern[0] == '/' && pattern[len(pattern)-1] == '/' {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err != nil {
			return nil, false
		}
		return re, true
	}
	return nil, false
}

func matchesPattern(pattern, prefix, full string) bool {
	if re, isRegex := compileShellFull(pattern); isRegex {
		return re.MatchString(full)
	}
	return pattern == prefix || strings.HasPrefix(full, pattern)
}
