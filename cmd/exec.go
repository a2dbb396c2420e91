package cmd

import (
	"os/exec"
)

// Replaced in tests so deploy runs without the AWS CLI.
var (
	findExecutable = exec.LookPath
	execCommand    = exec.Command
)
