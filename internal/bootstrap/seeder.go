package bootstrap

import "context"

// SeedCommand seeds the data store by running the installed server binary's
// seed subcommand.
type SeedCommand struct {
	// EnvFile is forwarded as --env-file when set.
	EnvFile string

	runner Runner
	binary string
	root   string
}

func NewSeedCommand(runner Runner, binary, root string) *SeedCommand {
	return &SeedCommand{runner: runner, binary: binary, root: root}
}

func (s *SeedCommand) Seed(ctx context.Context, env []string) error {
	return s.runner.Run(ctx, Command{
		Name: s.binary,
		Args: SubcommandArgs(s.EnvFile, "seed"),
		Dir:  s.root,
		Env:  env,
	})
}

// SubcommandArgs builds the arguments of a server binary subcommand that
// reads the same dotenv file as the bootstrapper.
func SubcommandArgs(envFile, name string) []string {
	if envFile == "" {
		return []string{name}
	}
	return []string{"--env-file", envFile, name}
}
