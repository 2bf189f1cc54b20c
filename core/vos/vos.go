package vos

// VDir gives access to the working directory of the shell.
type VDir interface {
	// Getwd returns a rooted path name corresponding to the current directory.
	Getwd() (string, error)

	// Chdir changes the current working directory to the named directory.
	// The path is passed through as-is, it is not cleaned first.
	Chdir(dir string) error
}

// VOS is the slice of the operating system the shell and its builtins
// interact with.
type VOS interface {
	VEnv
	VIO
	VDir
}
