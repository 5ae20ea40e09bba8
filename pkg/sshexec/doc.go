/*
Package sshexec executes ordered command sequences on remote machines
over SSH.

One authenticated connection is opened per RunCommands call; each
command runs on its own session and any non-zero exit aborts the
remainder of the chain. Stdout and stderr stream line-by-line into the
structured log for observability, and the tail of stderr is captured
into the returned *CommandError.

	runner := sshexec.NewExecutor(10 * time.Second)
	err := runner.RunCommands(ctx, sshexec.Target{
		Host:       node.IPAddress,
		Port:       node.SSHPort,
		User:       node.SSHUser,
		PrivateKey: key,
	}, commands)

Private keys are held only for the duration of the call and never
logged. Host key verification is intentionally disabled: targets are
freshly provisioned machines with no recorded host key.
*/
package sshexec
