package config

// ExecutionConfig holds the execution settings handed to the approvals
// engine (internal/approvals) and the shell tool's default timeout.
type ExecutionConfig struct {
	// AllowedBinaries is a configured list of executables. The approvals
	// engine does not read it: its read-only allow-list is built in.
	AllowedBinaries []string `yaml:"allowed_binaries" json:"allowed_binaries,omitempty"`

	// DefaultTimeout bounds any shell command lacking an explicit timeout.
	DefaultTimeout string `yaml:"default_timeout" json:"default_timeout,omitempty"`

	// WorkingDirectory is the default cwd for spawned commands.
	WorkingDirectory string `yaml:"working_directory" json:"working_directory,omitempty"`

	// AllowedEnvVars is the set of environment variables passed through to
	// spawned commands and frob subprocesses.
	AllowedEnvVars []string `yaml:"allowed_env_vars" json:"allowed_env_vars,omitempty"`

	// EditMode enables the edit-family tools (apply-patch and friends) and
	// the approvals engine's edit workflow. Off by default: a read-only
	// session never needs C4's edit path at all.
	EditMode bool `yaml:"edit_mode" json:"edit_mode,omitempty"`

	// AutoApprove approves edits without prompting (the diff is still
	// rendered and audited) and, together with EditMode, adds the built-in
	// write-allowed command prefixes to the shell checks. Other pending
	// shell commands are still prompted for.
	AutoApprove bool `yaml:"auto_approve" json:"auto_approve,omitempty"`

	// Quiet suppresses interaction output on C5 other than errors.
	Quiet bool `yaml:"quiet" json:"quiet,omitempty"`

	// ApprovalAutoApproveMs and ApprovalAutoDenyMs implement C4's auto-policy
	// timing: a pending prompt left untouched for this long resolves itself
	// without user input. Zero disables the corresponding auto-policy.
	ApprovalAutoApproveMs int `yaml:"approval_auto_approve_ms" json:"approval_auto_approve_ms,omitempty"`
	ApprovalAutoDenyMs    int `yaml:"approval_auto_deny_ms" json:"approval_auto_deny_ms,omitempty"`
}
