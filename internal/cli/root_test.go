package cli

import (
	"context"
	"testing"
)

func TestRootRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("expected %s subcommand, got %v (%v)", name, sub, err)
		}
	}
	if cmd.PersistentFlags().Lookup("config") == nil || cmd.PersistentFlags().Lookup("port") == nil {
		t.Fatalf("expected --config and --port flags")
	}
}

func TestMigrateRequiresPostgresURL(t *testing.T) {
	if err := runMigrations(context.Background(), defaultConfigPath); err == nil {
		t.Fatalf("expected error without postgres url")
	}
}

func TestOptionalConfig(t *testing.T) {
	if !optionalConfig(defaultConfigPath) {
		t.Fatalf("default path must be optional")
	}
	if optionalConfig("/etc/quizboard.yaml") {
		t.Fatalf("explicit path must be required")
	}
}
